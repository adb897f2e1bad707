// Package order persists ordered name lists such as favorites and plugin order.
package order

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chess10kp/xdock/internal/desktop"
	"github.com/chess10kp/xdock/internal/logging"
)

var log = logging.For("order")

// Parse reads one name per line. Blank lines and '#'/';' comment lines are
// skipped, and an inline " ;" comment is cut off.
func Parse(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		if idx := strings.Index(line, " ;"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names, scanner.Err()
}

// Load reads an order file. A missing file is an empty list; other failures
// return a *desktop.ParseError.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &desktop.ParseError{Path: path, Err: err}
	}
	defer file.Close()

	names, err := Parse(file)
	if err != nil {
		return nil, &desktop.ParseError{Path: path, Err: err}
	}
	return names, nil
}

// Save writes names to path atomically.
func Save(path string, names []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create order directory: %w", err)
	}

	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('\n')
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write temp order file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename temp order file: %w", err)
	}
	return nil
}

// Apply returns the names of list that are keys of present, in list order.
// Keys of present that list does not mention are not part of the result, so
// callers wanting every item shown must keep list complete.
func Apply[T any](list []string, present map[string]T) []T {
	scratch := make(map[string]T, len(present))
	for k, v := range present {
		scratch[k] = v
	}

	out := make([]T, 0, len(list))
	for _, name := range list {
		v, ok := scratch[name]
		if !ok {
			continue
		}
		out = append(out, v)
		delete(scratch, name)
	}
	return out
}

// Store is a file-backed order list.
type Store struct {
	path  string
	names []string
	mu    sync.RWMutex
}

// NewStore loads the list at path. Load failures are logged and leave the
// store empty.
func NewStore(path string) *Store {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		log.Warnf("failed to load order file: %v", err)
	}
	return s
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the backing file.
func (s *Store) Reload() error {
	names, err := Load(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.names = names
	s.mu.Unlock()
	return nil
}

// Names returns a copy of the list.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Contains reports whether name is in the list.
func (s *Store) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

// Set replaces the list and persists it. Duplicates keep their first position.
func (s *Store) Set(names []string) error {
	seen := make(map[string]bool, len(names))
	clean := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		clean = append(clean, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Save(s.path, clean); err != nil {
		return err
	}
	s.names = clean
	return nil
}

// Add appends name if it is not already present.
func (s *Store) Add(name string) error {
	if s.Contains(name) {
		return nil
	}
	return s.Set(append(s.Names(), name))
}

// Remove drops name from the list.
func (s *Store) Remove(name string) error {
	names := s.Names()
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return s.Set(out)
}

// Move places name at index, clamping index to the list bounds.
func (s *Store) Move(name string, index int) error {
	names := s.Names()
	pos := -1
	for i, n := range names {
		if n == name {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("%q is not in the order list", name)
	}

	names = append(names[:pos], names[pos+1:]...)
	if index < 0 {
		index = 0
	}
	if index > len(names) {
		index = len(names)
	}
	names = append(names[:index], append([]string{name}, names[index:]...)...)
	return s.Set(names)
}
