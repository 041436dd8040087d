// Package inventory lists the files of a robot install, such as the frame
// tree, with their size and modification time.
package inventory

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Entry struct {
	Path    string    `yaml:"path"`
	Dir     bool      `yaml:"dir,omitempty"`
	Size    int64     `yaml:"size,omitempty"`
	ModTime time.Time `yaml:"modified,omitempty"`
	Err     string    `yaml:"error,omitempty"`
}

const timeFormat = "2006-01-02 15:04:05"

// List walks root and returns an entry per file and directory below it.
// Directories in exclude are neither listed nor descended into. Files that
// cannot be inspected are listed with their error.
func List(root string, exclude []string) ([]Entry, error) {
	skip := make(map[string]bool)
	for _, ex := range exclude {
		abs, err := filepath.Abs(ex)
		if err != nil {
			return nil, fmt.Errorf("inventory: %w", err)
		}
		skip[abs] = true
	}
	w := &walker{root: root, skip: skip}
	err := filepath.WalkDir(root, w.visit)
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	return w.entries, nil
}

type walker struct {
	root    string
	skip    map[string]bool
	entries []Entry
}

func (w *walker) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		if path == w.root {
			return err
		}
		// A directory that cannot be read is visited a second time with
		// the error.
		if n := len(w.entries); n > 0 && w.entries[n-1].Path == path {
			w.entries[n-1].Err = err.Error()
			return nil
		}
		w.entries = append(w.entries, Entry{Path: path, Err: err.Error()})
		return nil
	}
	if path == w.root {
		return nil
	}
	if d.IsDir() {
		if abs, err := filepath.Abs(path); err == nil && w.skip[abs] {
			return fs.SkipDir
		}
		w.entries = append(w.entries, Entry{Path: path, Dir: true})
		return nil
	}
	info, err := d.Info()
	if err != nil {
		w.entries = append(w.entries, Entry{Path: path, Err: err.Error()})
		return nil
	}
	w.entries = append(w.entries, Entry{Path: path, Size: info.Size(), ModTime: info.ModTime()})
	return nil
}

// WriteText writes the entries as blank line separated records.
func WriteText(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		fmt.Fprintf(bw, "Path: %s\n", e.Path)
		switch {
		case e.Err != "":
			fmt.Fprintf(bw, "Error: %s\n", e.Err)
		case e.Dir:
			fmt.Fprintf(bw, "Size (bytes): N/A\nLast Modified: N/A\nType: directory\n")
		default:
			fmt.Fprintf(bw, "Size (bytes): %d\nLast Modified: %s\nType: file\n", e.Size, e.ModTime.Format(timeFormat))
		}
		fmt.Fprintln(bw)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}
	return nil
}

// WriteYAML writes the entries as a YAML sequence.
func WriteYAML(w io.Writer, entries []Entry) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}
	return nil
}
