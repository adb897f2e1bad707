// Package apps aggregates desktop entries from several sources into one
// name-indexed collection.
package apps

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/sahilm/fuzzy"

	"github.com/chess10kp/xdock/internal/desktop"
	"github.com/chess10kp/xdock/internal/logging"
	"github.com/chess10kp/xdock/internal/order"
)

var log = logging.For("apps")

// Categories is the fixed set of categories ByCategory accepts.
var Categories = []string{
	"AudioVideo", "Audio", "Video", "Development", "Education", "Game",
	"Graphics", "Network", "Office", "Science", "Settings", "System", "Utility",
}

var knownCategories = func() map[string]bool {
	m := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		m[c] = true
	}
	return m
}()

// IsCategory reports whether category is one of Categories.
func IsCategory(category string) bool {
	return knownCategories[category]
}

// Sources lists where Refresh looks for applications.
type Sources struct {
	// Dirs are scanned lowest priority first.
	Dirs     []string
	ScanPath bool
	// Files are explicit desktop files that override everything else.
	Files []string
}

// Aggregator holds application records keyed by name.
type Aggregator struct {
	apps       map[string]desktop.Record
	scanner    *desktop.Scanner
	showHidden bool
	mu         sync.RWMutex
}

// NewAggregator creates an empty aggregator that parses through scanner.
func NewAggregator(scanner *desktop.Scanner) *Aggregator {
	return &Aggregator{
		apps:    make(map[string]desktop.Record),
		scanner: scanner,
	}
}

// SetShowHidden controls whether NoDisplay and Hidden entries are kept on
// the next load.
func (a *Aggregator) SetShowHidden(show bool) {
	a.mu.Lock()
	a.showHidden = show
	a.mu.Unlock()
}

func (a *Aggregator) ShowHidden() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.showHidden
}

// StandardDirs returns the XDG application directories, lowest priority first
// so that user entries are scanned last and win.
func StandardDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(base string) {
		if base == "" {
			return
		}
		dir := filepath.Join(base, "applications")
		if seen[dir] {
			return
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}

	for i := len(xdg.DataDirs) - 1; i >= 0; i-- {
		add(xdg.DataDirs[i])
	}
	add(xdg.DataHome)
	return dirs
}

// LoadFromDirectories replaces the collection with the entries found in
// paths. Later directories overwrite earlier ones on name collisions.
func (a *Aggregator) LoadFromDirectories(paths []string) {
	start := time.Now()
	showHidden := a.ShowHidden()

	apps := make(map[string]desktop.Record)
	for _, dir := range paths {
		a.mergeDir(apps, dir, showHidden)
	}

	a.mu.Lock()
	a.apps = apps
	a.mu.Unlock()

	log.Infof("loaded %d applications from %d directories in %v", len(apps), len(paths), time.Since(start))
}

// LoadFromPathVariable adds every executable found in $PATH. Names already
// present are left alone.
func (a *Aggregator) LoadFromPathVariable() {
	a.LoadFromPath(os.Getenv("PATH"))
}

// LoadFromPath is LoadFromPathVariable for an explicit search-path list.
func (a *Aggregator) LoadFromPath(pathList string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	added := mergePath(a.apps, pathList)
	log.Debugf("added %d executables from search path", added)
}

// LoadFiles parses explicit desktop files. They overwrite existing names.
func (a *Aggregator) LoadFiles(paths []string) {
	showHidden := a.ShowHidden()

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, path := range paths {
		rec, err := a.scanner.Load(path)
		if err != nil {
			log.Warnf("skipping desktop file: %v", err)
			continue
		}
		if !accept(rec, showHidden) {
			continue
		}
		a.apps[rec.Name] = rec
	}
}

// Refresh rebuilds the collection from src in a single swap: directories,
// then the search path, then explicit files.
func (a *Aggregator) Refresh(src Sources) int {
	start := time.Now()
	showHidden := a.ShowHidden()

	apps := make(map[string]desktop.Record)
	for _, dir := range src.Dirs {
		a.mergeDir(apps, dir, showHidden)
	}
	if src.ScanPath {
		mergePath(apps, os.Getenv("PATH"))
	}
	for _, path := range src.Files {
		rec, err := a.scanner.Load(path)
		if err != nil {
			log.Warnf("skipping desktop file: %v", err)
			continue
		}
		if accept(rec, showHidden) {
			apps[rec.Name] = rec
		}
	}

	a.mu.Lock()
	a.apps = apps
	a.mu.Unlock()

	hits, misses := a.scanner.Stats()
	log.Infof("refreshed %d applications in %v (cache hits=%d misses=%d)", len(apps), time.Since(start), hits, misses)
	return len(apps)
}

func (a *Aggregator) mergeDir(apps map[string]desktop.Record, dir string, showHidden bool) {
	for _, rec := range a.scanner.ScanDir(dir) {
		if !accept(rec, showHidden) {
			continue
		}
		apps[rec.Name] = rec
	}
}

func accept(rec desktop.Record, showHidden bool) bool {
	if rec.Type != "" && rec.Type != "Application" {
		return false
	}
	if (rec.NoDisplay || rec.Hidden) && !showHidden {
		return false
	}
	return true
}

func mergePath(apps map[string]desktop.Record, pathList string) int {
	added := 0
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, de := range entries {
			if _, exists := apps[de.Name()]; exists {
				continue
			}
			full := filepath.Join(dir, de.Name())
			info, err := os.Stat(full)
			if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0111 == 0 {
				continue
			}
			apps[de.Name()] = desktop.Executable(full)
			added++
		}
	}
	return added
}

// ByCategory returns the records listing category. Unknown categories yield
// an empty map.
func (a *Aggregator) ByCategory(category string) map[string]desktop.Record {
	out := make(map[string]desktop.Record)
	if !IsCategory(category) {
		log.Warnf("unknown category %q", category)
		return out
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	for name, rec := range a.apps {
		if rec.InCategory(category) {
			out[name] = rec
		}
	}
	return out
}

// BySubstring returns the records whose name contains needle. Matching is
// case sensitive and an empty needle matches nothing.
func (a *Aggregator) BySubstring(needle string) map[string]desktop.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]desktop.Record)
	for name, rec := range a.apps {
		if rec.Matches(needle) {
			out[name] = rec
		}
	}
	return out
}

// ApplyOrder returns the records named in list, in list order. Records the
// list does not name are left out.
func (a *Aggregator) ApplyOrder(list []string) []desktop.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return order.Apply(list, a.apps)
}

func (a *Aggregator) Lookup(name string) (desktop.Record, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rec, ok := a.apps[name]
	return rec, ok
}

// Names returns every name, sorted.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.apps))
	for name := range a.apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.apps)
}

// Records returns every record sorted case-insensitively by name.
func (a *Aggregator) Records() []desktop.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return sortedRecords(a.apps)
}

func sortedRecords(apps map[string]desktop.Record) []desktop.Record {
	out := make([]desktop.Record, 0, len(apps))
	for _, rec := range apps {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if li != lj {
			return li < lj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Search ranks records by fuzzy match against query. Names starting with the
// query come first, then higher scores. An empty query returns the first
// maxResults records alphabetically.
func (a *Aggregator) Search(query string, maxResults int) []desktop.Record {
	a.mu.RLock()
	records := sortedRecords(a.apps)
	a.mu.RUnlock()

	query = strings.TrimSpace(query)
	if query == "" {
		if maxResults > 0 && len(records) > maxResults {
			records = records[:maxResults]
		}
		return records
	}

	names := make([]string, len(records))
	for i, rec := range records {
		names[i] = rec.Name
	}

	matches := fuzzy.Find(query, names)
	lowerQuery := strings.ToLower(query)
	sort.SliceStable(matches, func(i, j int) bool {
		pi := strings.HasPrefix(strings.ToLower(matches[i].Str), lowerQuery)
		pj := strings.HasPrefix(strings.ToLower(matches[j].Str), lowerQuery)
		if pi != pj {
			return pi
		}
		return matches[i].Score > matches[j].Score
	})

	n := len(matches)
	if maxResults > 0 && n > maxResults {
		n = maxResults
	}
	out := make([]desktop.Record, 0, n)
	for _, m := range matches[:n] {
		out = append(out, records[m.Index])
	}
	return out
}
