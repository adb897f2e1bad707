package desktop

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// DefaultSection is the section keys belong to until a [Section] marker is seen.
const DefaultSection = "Desktop Entry"

// Entries maps section-qualified keys ("Desktop Entry/Name") to raw values.
type Entries map[string]string

// Get returns the value of key in the default section.
func (e Entries) Get(key string) string {
	return e[DefaultSection+"/"+key]
}

// GetIn returns the value of key in the given section.
func (e Entries) GetIn(section, key string) string {
	return e[section+"/"+key]
}

// ParseError reports a desktop or order file that could not be opened or read.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads key=value lines. Blank lines and lines starting with '#' or ';'
// are skipped wherever they occur, the final line included. Everything from
// the first " ;" on a line is an inline comment. Lines without '=' are ignored.
func Parse(r io.Reader) (Entries, error) {
	entries := make(Entries)
	section := DefaultSection

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}

		if idx := strings.Index(line, " ;"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		if len(line) > 2 && line[0] == '[' && line[len(line)-1] == ']' {
			section = line[1 : len(line)-1]
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		entries[section+"/"+key] = strings.TrimSpace(value)
	}

	return entries, scanner.Err()
}

// ParseFile parses the file at path. On failure it returns an empty, non-nil
// Entries together with a *ParseError so directory scans can carry on.
func ParseFile(path string) (Entries, error) {
	file, err := os.Open(path)
	if err != nil {
		return Entries{}, &ParseError{Path: path, Err: err}
	}
	defer file.Close()

	entries, err := Parse(file)
	if err != nil {
		return Entries{}, &ParseError{Path: path, Err: err}
	}
	return entries, nil
}

// Write emits one key=value line per entry, sorted by key. Keys of the default
// section lose their prefix; other keys stay qualified. No section headers are
// written, so entries outside the default section do not survive a round trip.
func Write(w io.Writer, entries Entries) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bw := bufio.NewWriter(w)
	for _, k := range keys {
		name := strings.TrimPrefix(k, DefaultSection+"/")
		if _, err := fmt.Fprintf(bw, "%s=%s\n", name, entries[k]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes entries to path, replacing it atomically.
func WriteFile(path string, entries Entries) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	if err := Write(file, entries); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}
