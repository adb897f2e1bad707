package core

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/chess10kp/xdock/internal/apps"
	"github.com/chess10kp/xdock/internal/bus"
	"github.com/chess10kp/xdock/internal/config"
	"github.com/chess10kp/xdock/internal/desktop"
	"github.com/chess10kp/xdock/internal/launch"
	"github.com/chess10kp/xdock/internal/logging"
	"github.com/chess10kp/xdock/internal/order"
	"github.com/chess10kp/xdock/internal/plugins"
	"github.com/chess10kp/xdock/internal/xwin"
)

var log = logging.For("core")

// Shell ties application discovery to launching. Running applications are
// confined to the loop; everything else is safe to call from any goroutine.
type Shell struct {
	config    *config.Config
	loop      launch.Loop
	locator   *xwin.Locator
	embedder  launch.Embedder
	scanner   *desktop.Scanner
	apps      *apps.Aggregator
	favorites *order.Store
	plugins   *plugins.Index
	recents   *apps.RecentsTracker

	// Launches read the poll interval here so the bus can change it.
	pollInterval atomic.Int64

	running  map[string]*launch.Application
	onLaunch func(*launch.Application)
	embedFor func(name string) launch.Embedder
}

func NewShell(cfg *config.Config, loop launch.Loop, locator *xwin.Locator, embedder launch.Embedder) (*Shell, error) {
	scanner, err := desktop.NewScanner(cfg.Apps.ParseCacheSize)
	if err != nil {
		return nil, err
	}

	recents, err := apps.NewRecentsTracker(cfg.Order.RecentsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open recents: %w", err)
	}

	aggregator := apps.NewAggregator(scanner)
	aggregator.SetShowHidden(cfg.Apps.ShowHidden)

	s := &Shell{
		config:    cfg,
		loop:      loop,
		locator:   locator,
		embedder:  embedder,
		scanner:   scanner,
		apps:      aggregator,
		favorites: order.NewStore(cfg.Order.FavoritesFile),
		plugins:   plugins.NewIndex(scanner, cfg.Plugins.Dirs, order.NewStore(cfg.Order.PluginOrderFile)),
		recents:   recents,
		running:   make(map[string]*launch.Application),
	}
	s.pollInterval.Store(int64(cfg.Launch.PollInterval))
	return s, nil
}

// Sources returns where applications are discovered, lowest priority first.
func (s *Shell) Sources() apps.Sources {
	var dirs []string
	if s.config.Apps.ScanStandardDirs {
		dirs = append(dirs, apps.StandardDirs()...)
	}
	dirs = append(dirs, s.config.Apps.ExtraDirs...)
	return apps.Sources{
		Dirs:     dirs,
		ScanPath: s.config.Apps.ScanPath,
		Files:    s.config.Apps.Files,
	}
}

// WatchDirs returns the directories whose changes trigger a rescan.
func (s *Shell) WatchDirs() []string {
	dirs := append([]string(nil), s.Sources().Dirs...)
	return append(dirs, s.config.Plugins.Dirs...)
}

func (s *Shell) Apps() *apps.Aggregator { return s.apps }

func (s *Shell) Plugins() *plugins.Index { return s.plugins }

func (s *Shell) Recents() *apps.RecentsTracker { return s.recents }

func (s *Shell) FavoritesStore() *order.Store { return s.favorites }

// RescanApplications rebuilds the application and plugin indexes.
func (s *Shell) RescanApplications() int {
	n := s.apps.Refresh(s.Sources())
	s.plugins.Rescan()
	if err := s.plugins.SyncOrder(); err != nil {
		log.Warnf("failed to update plugin order: %v", err)
	}
	return n
}

func (s *Shell) RescanFavorites() error {
	return s.favorites.Reload()
}

func (s *Shell) RescanRecents() error {
	return s.recents.Reload()
}

func (s *Shell) ApplicationNames() []string {
	return s.apps.Names()
}

func (s *Shell) PluginMetadata(name string) (map[string]string, bool) {
	return s.plugins.Metadata(name)
}

func (s *Shell) WindowsForProcess(pid int) []xwin.Handle {
	return s.locator.WindowsForProcess(pid)
}

// Favorites returns the favorite applications in stored order.
func (s *Shell) Favorites() []desktop.Record {
	return s.apps.ApplyOrder(s.favorites.Names())
}

// OnLaunch registers a hook that sees every application right after it was
// started, before any window callback can fire.
func (s *Shell) OnLaunch(f func(*launch.Application)) {
	s.onLaunch = f
}

// EmbedWith makes each launch ask f for the embedder of that application
// instead of using the shell-wide one.
func (s *Shell) EmbedWith(f func(name string) launch.Embedder) {
	s.embedFor = f
}

// Search returns up to the configured number of matches for query. An empty
// query lists recently launched applications first.
func (s *Shell) Search(query string) []desktop.Record {
	limit := s.config.Apps.MaxResults
	if query != "" {
		return s.apps.Search(query, limit)
	}

	var out []desktop.Record
	seen := make(map[string]bool)
	for _, name := range s.recents.Recent(s.config.Order.MaxRecents) {
		if rec, ok := s.apps.Lookup(name); ok {
			out = append(out, rec)
			seen[name] = true
		}
	}
	for _, rec := range s.apps.Records() {
		if limit > 0 && len(out) >= limit {
			break
		}
		if !seen[rec.Name] {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Shell) launchOptions() launch.Options {
	opts := launch.DefaultOptions()
	opts.PollInterval = time.Duration(s.pollInterval.Load()) * time.Millisecond
	opts.ReadyPollInterval = s.config.Launch.ReadyPollIntervalDuration()
	opts.MaxAttempts = s.config.Launch.MaxPollAttempts
	if s.config.Display != "" {
		opts.Env = []string{"DISPLAY=" + s.config.Display}
	}
	return opts
}

// Launch starts the named application. It must run on the loop.
func (s *Shell) Launch(name string) (*launch.Application, error) {
	if app, ok := s.running[name]; ok {
		return app, nil
	}

	rec, ok := s.apps.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown application %q", name)
	}

	embedder := s.embedder
	if s.embedFor != nil {
		embedder = s.embedFor(name)
	}

	app := launch.New(rec.Name, rec.Args(), s.loop, s.locator, embedder, s.launchOptions())
	if err := app.Start(); err != nil {
		return nil, err
	}

	s.running[name] = app
	app.OnExit(func(err error) {
		if s.running[name] == app {
			delete(s.running, name)
		}
	})
	s.recents.Record(name)

	if s.onLaunch != nil {
		s.onLaunch(app)
	}
	return app, nil
}

// Stop asks the named application to exit. It must run on the loop.
func (s *Shell) Stop(name string) error {
	app, ok := s.running[name]
	if !ok {
		return fmt.Errorf("%q is not running", name)
	}
	return app.Stop()
}

// Running returns the names of running applications. It must run on the loop.
func (s *Shell) Running() []string {
	names := make([]string, 0, len(s.running))
	for name := range s.running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Application returns a running application. It must run on the loop.
func (s *Shell) Application(name string) (*launch.Application, bool) {
	app, ok := s.running[name]
	return app, ok
}

// Close kills every running application. It must run on the loop.
func (s *Shell) Close() {
	for name, app := range s.running {
		app.Close()
		delete(s.running, name)
	}
}

// Properties builds the Get/Set table exported on the bus.
func (s *Shell) Properties() bus.Table {
	return bus.Table{
		"favorites": bus.Strings(s.favorites.Names, s.favorites.Set),
		"plugin_order": bus.Strings(
			func() []string {
				ordered := s.plugins.Ordered()
				names := make([]string, len(ordered))
				for i, p := range ordered {
					names[i] = p.Name
				}
				return names
			},
			s.plugins.Order().Set,
		),
		"show_hidden": bus.Bool(s.apps.ShowHidden, func(v bool) error {
			s.apps.SetShowHidden(v)
			s.RescanApplications()
			return nil
		}),
		"poll_interval_ms": bus.Int(
			func() int { return int(s.pollInterval.Load()) },
			func(v int) error {
				if v < 10 || v > 60000 {
					return fmt.Errorf("poll interval %dms out of range 10-60000", v)
				}
				s.pollInterval.Store(int64(v))
				return nil
			},
		),
		"application_count": bus.Int(s.apps.Len, nil),
	}
}
