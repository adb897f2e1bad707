// Package plugins indexes plugin descriptors and their display order.
package plugins

import (
	"sort"
	"sync"

	"github.com/chess10kp/xdock/internal/desktop"
	"github.com/chess10kp/xdock/internal/logging"
	"github.com/chess10kp/xdock/internal/order"
)

var log = logging.For("plugins")

// EntryType is the desktop-entry Type of plugin descriptors.
const EntryType = "Plugin"

type Plugin struct {
	desktop.Record
}

// Metadata flattens the descriptor into string pairs.
func (p Plugin) Metadata() map[string]string {
	meta := make(map[string]string, len(p.Extra)+5)
	for k, v := range p.Extra {
		meta[k] = v
	}
	meta["Name"] = p.Name
	meta["Exec"] = p.Exec
	meta["Icon"] = p.Icon
	meta["Comment"] = p.Comment
	meta["Source"] = p.Source
	return meta
}

// Index holds the plugins found in a set of directories.
type Index struct {
	scanner *desktop.Scanner
	dirs    []string
	order   *order.Store
	plugins map[string]Plugin
	mu      sync.RWMutex
}

// NewIndex creates an index over dirs, highest priority first.
func NewIndex(scanner *desktop.Scanner, dirs []string, store *order.Store) *Index {
	return &Index{
		scanner: scanner,
		dirs:    append([]string(nil), dirs...),
		order:   store,
		plugins: make(map[string]Plugin),
	}
}

// Rescan rebuilds the index. Directories are read lowest priority first so
// the first configured directory wins.
func (i *Index) Rescan() int {
	plugins := make(map[string]Plugin)
	for d := len(i.dirs) - 1; d >= 0; d-- {
		for _, rec := range i.scanner.ScanDir(i.dirs[d]) {
			if rec.Type != EntryType {
				continue
			}
			plugins[rec.Name] = Plugin{Record: rec}
		}
	}

	i.mu.Lock()
	i.plugins = plugins
	i.mu.Unlock()

	log.Infof("indexed %d plugins", len(plugins))
	return len(plugins)
}

func (i *Index) Lookup(name string) (Plugin, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	p, ok := i.plugins[name]
	return p, ok
}

// Metadata returns the descriptor of name as string pairs.
func (i *Index) Metadata(name string) (map[string]string, bool) {
	p, ok := i.Lookup(name)
	if !ok {
		return nil, false
	}
	return p.Metadata(), true
}

// Names returns every plugin name, sorted.
func (i *Index) Names() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	names := make([]string, 0, len(i.plugins))
	for name := range i.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Order returns the store holding the display order.
func (i *Index) Order() *order.Store {
	return i.order
}

// Ordered returns the plugins named by the order store, in that order.
// Plugins missing from the store are not returned; SyncOrder adds them.
func (i *Index) Ordered() []Plugin {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return order.Apply(i.order.Names(), i.plugins)
}

// SyncOrder appends plugins unknown to the order store, alphabetically.
func (i *Index) SyncOrder() error {
	names := i.order.Names()
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	changed := false
	for _, n := range i.Names() {
		if !known[n] {
			names = append(names, n)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return i.order.Set(names)
}
