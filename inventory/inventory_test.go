package inventory

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func tree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for name, data := range map[string]string{
		"final.py":                  "print()",
		"emotions/happy/frame1.png": "x",
		"docs/notes.txt":            "hello",
	} {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mtime := time.Date(2024, 3, 1, 12, 30, 0, 0, time.Local)
	if err := os.Chtimes(filepath.Join(root, "final.py"), mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestList(t *testing.T) {
	root := tree(t)
	entries, err := List(root, []string{filepath.Join(root, "emotions")})
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]Entry)
	for _, e := range entries {
		rel, _ := filepath.Rel(root, e.Path)
		got[filepath.ToSlash(rel)] = e
	}
	if len(got) != 3 {
		t.Errorf("got %d entries: %v", len(got), entries)
	}
	if e, ok := got["docs"]; !ok || !e.Dir {
		t.Errorf("docs: got %+v", e)
	}
	if e := got["docs/notes.txt"]; e.Size != 5 {
		t.Errorf("notes.txt: got size %d", e.Size)
	}
	for path := range got {
		if strings.HasPrefix(path, "emotions") {
			t.Errorf("excluded path %s listed", path)
		}
	}
}

func TestListMissing(t *testing.T) {
	if _, err := List(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Error("listed a missing directory")
	}
}

func TestUnreadableDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "locked")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	d := fs.FileInfoToDirEntry(info)
	// WalkDir visits a directory before reading it, then again with the
	// read error.
	w := &walker{root: root}
	if err := w.visit(dir, d, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.visit(dir, d, fs.ErrPermission); err != nil {
		t.Fatal(err)
	}
	if len(w.entries) != 1 {
		t.Fatalf("got %d entries for one directory: %+v", len(w.entries), w.entries)
	}
	if e := w.entries[0]; !e.Dir || e.Err != fs.ErrPermission.Error() {
		t.Errorf("got %+v", e)
	}
}

func TestWriteText(t *testing.T) {
	mtime := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	entries := []Entry{
		{Path: "final.py", Size: 7, ModTime: mtime},
		{Path: "docs", Dir: true},
		{Path: "broken", Err: "permission denied"},
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, entries); err != nil {
		t.Fatal(err)
	}
	want := `Path: final.py
Size (bytes): 7
Last Modified: 2024-03-01 12:30:00
Type: file

Path: docs
Size (bytes): N/A
Last Modified: N/A
Type: directory

Path: broken
Error: permission denied

`
	if got := buf.String(); got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestWriteYAML(t *testing.T) {
	root := tree(t)
	entries, err := List(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteYAML(&buf, entries); err != nil {
		t.Fatal(err)
	}
	var got []Entry
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i := range got {
		if got[i].Path != entries[i].Path || got[i].Size != entries[i].Size || !got[i].ModTime.Equal(entries[i].ModTime) {
			t.Errorf("entry %d: got %+v, want %+v", i, got[i], entries[i])
		}
	}
}
