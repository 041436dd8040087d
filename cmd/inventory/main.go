// Command inventory writes a report of the files below a directory, such
// as a robot install, skipping the given directories.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"emorobot.org/inventory"
)

var (
	root    = flag.String("root", ".", "directory to list")
	output  = flag.String("o", "file_details.txt", "report file, - for standard output")
	format  = flag.String("format", "text", "report format ('text', 'yaml')")
	exclude []string
)

func main() {
	flag.Func("exclude", "directory to skip, may be repeated", func(s string) error {
		exclude = append(exclude, s)
		return nil
	})
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "inventory: %v\n", err)
		os.Exit(2)
	}
}

func run() error {
	var write func(io.Writer, []inventory.Entry) error
	switch strings.ToLower(*format) {
	case "text":
		write = inventory.WriteText
	case "yaml":
		write = inventory.WriteYAML
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	entries, err := inventory.List(*root, exclude)
	if err != nil {
		return err
	}
	if *output == "-" {
		return write(os.Stdout, entries)
	}
	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	if err := write(f, entries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("File details have been saved to %s\n", *output)
	return nil
}
