package desktop

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/chess10kp/xdock/internal/logging"
)

var log = logging.For("desktop")

type cacheKey struct {
	path  string
	mtime int64
	size  int64
}

// Scanner reads directories of .desktop files. Parsed records are memoised by
// path, modification time and size so repeated refreshes skip unchanged files.
type Scanner struct {
	cache  *lru.Cache[cacheKey, Record]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewScanner creates a scanner whose cache holds up to size records.
func NewScanner(size int) (*Scanner, error) {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New[cacheKey, Record](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse cache: %w", err)
	}
	return &Scanner{cache: cache}, nil
}

// ScanDir parses every *.desktop file directly inside dir, in file-name order.
// Unreadable files and directories are logged and skipped.
func (s *Scanner) ScanDir(dir string) []Record {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("failed to list %s: %v", dir, err)
		}
		return nil
	}

	names := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".desktop") {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Strings(names)

	records := make([]Record, 0, len(names))
	for _, name := range names {
		rec, err := s.Load(filepath.Join(dir, name))
		if err != nil {
			log.Warnf("skipping entry: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// Load parses a single file, using the cache when the file is unchanged.
func (s *Scanner) Load(path string) (Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Record{}, &ParseError{Path: path, Err: err}
	}

	key := cacheKey{path: path, mtime: info.ModTime().UnixNano(), size: info.Size()}
	if rec, ok := s.cache.Get(key); ok {
		s.hits.Add(1)
		return rec, nil
	}
	s.misses.Add(1)

	rec, err := LoadRecord(path)
	if err != nil {
		return Record{}, err
	}
	s.cache.Add(key, rec)
	return rec, nil
}

// Stats returns cache hits and misses since creation.
func (s *Scanner) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

// Purge drops every cached record.
func (s *Scanner) Purge() {
	s.cache.Purge()
}
