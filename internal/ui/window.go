package ui

import (
	"fmt"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/gtk"

	"github.com/chess10kp/xdock/internal/config"
	"github.com/chess10kp/xdock/internal/desktop"
	"github.com/chess10kp/xdock/internal/launch"
)

// Shell is what the window needs from the launcher core.
type Shell interface {
	Search(query string) []desktop.Record
	Favorites() []desktop.Record
	Launch(name string) (*launch.Application, error)
	Stop(name string) error
}

// page is the notebook tab of one launched application.
type page struct {
	box   *gtk.Box
	state *gtk.Label
	view  *gtk.Box
}

// Window is the launcher: a search entry with results and favorites on the
// left and one notebook page per running application on the right. All
// methods run on the GTK main loop.
type Window struct {
	shell     Shell
	window    *gtk.Window
	entry     *gtk.Entry
	results   *gtk.ListBox
	favorites *gtk.Box
	notebook  *gtk.Notebook
	status    *gtk.Label
	icons     *IconCache
	records   []desktop.Record
	pages     map[string]*page
}

func NewWindow(shell Shell, cfg config.WindowConfig) (*Window, error) {
	window, err := gtk.WindowNew(gtk.WINDOW_TOPLEVEL)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	window.SetTitle(cfg.Title)
	window.SetName("xdock-window")
	window.SetDefaultSize(cfg.Width, cfg.Height)

	root, err := gtk.BoxNew(gtk.ORIENTATION_VERTICAL, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create box: %w", err)
	}
	window.Add(root)

	hbox, err := gtk.BoxNew(gtk.ORIENTATION_HORIZONTAL, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to create hbox: %w", err)
	}
	entry, err := gtk.EntryNew()
	if err != nil {
		return nil, fmt.Errorf("failed to create search entry: %w", err)
	}
	entry.SetPlaceholderText("Search applications...")
	entry.SetName("xdock-entry")
	hbox.PackStart(entry, true, true, 0)

	hideButton, err := gtk.ButtonNewWithLabel("Hide")
	if err != nil {
		return nil, fmt.Errorf("failed to create hide button: %w", err)
	}
	hbox.PackStart(hideButton, false, false, 0)
	root.PackStart(hbox, false, false, 0)

	favorites, err := gtk.BoxNew(gtk.ORIENTATION_HORIZONTAL, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create favorites box: %w", err)
	}
	root.PackStart(favorites, false, false, 0)

	paned, err := gtk.PanedNew(gtk.ORIENTATION_HORIZONTAL)
	if err != nil {
		return nil, fmt.Errorf("failed to create paned: %w", err)
	}
	root.PackStart(paned, true, true, 0)

	scrolled, err := gtk.ScrolledWindowNew(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrolled window: %w", err)
	}
	scrolled.SetPolicy(gtk.POLICY_NEVER, gtk.POLICY_AUTOMATIC)
	scrolled.SetSizeRequest(cfg.Width/4, -1)

	results, err := gtk.ListBoxNew()
	if err != nil {
		return nil, fmt.Errorf("failed to create result list: %w", err)
	}
	results.SetName("xdock-results")
	scrolled.Add(results)
	paned.Pack1(scrolled, false, false)

	notebook, err := gtk.NotebookNew()
	if err != nil {
		return nil, fmt.Errorf("failed to create notebook: %w", err)
	}
	notebook.SetScrollable(true)
	paned.Pack2(notebook, true, false)

	status, err := gtk.LabelNew("")
	if err != nil {
		return nil, fmt.Errorf("failed to create status label: %w", err)
	}
	status.SetName("xdock-status")
	status.SetHAlign(gtk.ALIGN_START)
	root.PackStart(status, false, false, 0)

	icons, err := NewIconCache(256)
	if err != nil {
		log.Warnf("icons disabled: %v", err)
	}

	w := &Window{
		shell:     shell,
		window:    window,
		entry:     entry,
		results:   results,
		favorites: favorites,
		notebook:  notebook,
		status:    status,
		icons:     icons,
		pages:     make(map[string]*page),
	}

	hideButton.Connect("clicked", func() {
		w.Hide()
	})
	w.setupSignals()
	return w, nil
}

func (w *Window) setupSignals() {
	w.entry.Connect("changed", func() {
		text, _ := w.entry.GetText()
		w.updateResults(text)
	})

	w.entry.Connect("activate", func() {
		row := w.results.GetSelectedRow()
		if row == nil {
			return
		}
		w.activate(row.GetIndex())
	})

	w.entry.Connect("key-press-event", func(entry *gtk.Entry, event *gdk.Event) bool {
		key := gdk.EventKeyNewFromEvent(event)
		switch key.KeyVal() {
		case gdk.KEY_Escape:
			w.Hide()
			return true
		case gdk.KEY_Down:
			w.moveSelection(1)
			return true
		case gdk.KEY_Up:
			w.moveSelection(-1)
			return true
		}
		return false
	})

	w.results.Connect("row-activated", func(list *gtk.ListBox, row *gtk.ListBoxRow) {
		w.activate(row.GetIndex())
	})

	w.window.Connect("delete-event", func() bool {
		w.Hide()
		return true
	})
}

// Show presents the window with fresh results and favorites.
func (w *Window) Show() {
	w.Refresh()
	w.window.ShowAll()
	w.window.Present()
	w.entry.GrabFocus()
}

func (w *Window) Hide() {
	w.window.Hide()
	w.entry.SetText("")
}

// Reload drops cached icons and refreshes, for use after a rescan.
func (w *Window) Reload() {
	if w.icons != nil {
		w.icons.Purge()
	}
	w.Refresh()
}

// Refresh rebuilds favorites and results from the current index.
func (w *Window) Refresh() {
	w.updateFavorites()
	text, _ := w.entry.GetText()
	w.updateResults(text)
}

func (w *Window) Destroy() {
	w.window.Destroy()
}

func (w *Window) setStatus(format string, args ...interface{}) {
	w.status.SetText(fmt.Sprintf(format, args...))
}

func (w *Window) updateFavorites() {
	children := w.favorites.GetChildren()
	children.Foreach(func(child interface{}) {
		if widget, ok := child.(gtk.IWidget); ok {
			w.favorites.Remove(widget)
		}
	})

	for _, rec := range w.shell.Favorites() {
		name := rec.Name
		button, err := gtk.ButtonNewWithLabel(name)
		if err != nil {
			log.Warnf("failed to create favorite button: %v", err)
			continue
		}
		if ctx, err := button.GetStyleContext(); err == nil {
			ctx.AddClass("xdock-favorite")
		}
		if rec.Comment != "" {
			button.SetTooltipText(rec.Comment)
		}
		button.Connect("clicked", func() {
			w.launch(name)
		})
		w.favorites.PackStart(button, false, false, 0)
	}
	w.favorites.ShowAll()
}

func (w *Window) updateResults(query string) {
	children := w.results.GetChildren()
	children.Foreach(func(child interface{}) {
		if widget, ok := child.(gtk.IWidget); ok {
			w.results.Remove(widget)
		}
	})

	w.records = w.shell.Search(query)
	for _, rec := range w.records {
		row, err := w.createResultRow(rec)
		if err != nil {
			log.Warnf("failed to create row for %s: %v", rec.Name, err)
			continue
		}
		w.results.Add(row)
	}

	if first := w.results.GetRowAtIndex(0); first != nil {
		w.results.SelectRow(first)
	}
	w.results.ShowAll()
}

func (w *Window) createResultRow(rec desktop.Record) (*gtk.ListBoxRow, error) {
	row, err := gtk.ListBoxRowNew()
	if err != nil {
		return nil, err
	}
	if ctx, err := row.GetStyleContext(); err == nil {
		ctx.AddClass("xdock-row")
	}

	box, err := gtk.BoxNew(gtk.ORIENTATION_HORIZONTAL, 8)
	if err != nil {
		return nil, err
	}

	if w.icons != nil {
		if pixbuf, err := w.icons.Get(rec.Icon); err == nil {
			icon, err := gtk.ImageNewFromPixbuf(pixbuf)
			if err != nil {
				return nil, err
			}
			box.PackStart(icon, false, false, 0)
		}
	}

	label, err := gtk.LabelNew(rec.Name)
	if err != nil {
		return nil, err
	}
	label.SetHAlign(gtk.ALIGN_START)
	box.PackStart(label, true, true, 0)

	if rec.Comment != "" {
		row.SetTooltipText(rec.Comment)
	}
	row.Add(box)
	return row, nil
}

func (w *Window) moveSelection(delta int) {
	index := 0
	if row := w.results.GetSelectedRow(); row != nil {
		index = row.GetIndex() + delta
	}
	if index < 0 || index >= len(w.records) {
		return
	}
	if row := w.results.GetRowAtIndex(index); row != nil {
		w.results.SelectRow(row)
	}
}

func (w *Window) activate(index int) {
	if index < 0 || index >= len(w.records) {
		return
	}
	w.launch(w.records[index].Name)
}

func (w *Window) launch(name string) {
	app, err := w.shell.Launch(name)
	if err != nil {
		log.Warnf("failed to launch %s: %v", name, err)
		w.setStatus("failed to launch %s: %v", name, err)
		return
	}
	w.setStatus("%s running (pid %d)", name, app.PID())
	w.focusPage(name)
}

// EmbedderFor returns the embedder that hosts windows of name on its page.
func (w *Window) EmbedderFor(name string) launch.Embedder {
	return NewSocketEmbedder(func() (*gtk.Box, error) {
		p, err := w.page(name)
		if err != nil {
			return nil, err
		}
		return p.view, nil
	})
}

// Attach follows app on its notebook page until it exits.
func (w *Window) Attach(app *launch.Application) {
	name := app.Name()
	p, err := w.page(name)
	if err != nil {
		log.Warnf("failed to create page for %s: %v", name, err)
		return
	}
	p.state.SetText(app.State().String())

	app.OnStateChange(func(s launch.State) {
		p.state.SetText(s.String())
	})
	app.OnReady(func(surfaces []launch.Surface) {
		w.setStatus("%s: %d window(s)", name, len(surfaces))
		p.box.ShowAll()
		w.focusPage(name)
	})
	app.OnExit(func(err error) {
		if err != nil {
			w.setStatus("%s exited: %v", name, err)
		} else {
			w.setStatus("%s exited", name)
		}
		w.removePage(name)
	})
}

func (w *Window) page(name string) (*page, error) {
	if p, ok := w.pages[name]; ok {
		return p, nil
	}

	box, err := gtk.BoxNew(gtk.ORIENTATION_VERTICAL, 0)
	if err != nil {
		return nil, err
	}
	header, err := gtk.BoxNew(gtk.ORIENTATION_HORIZONTAL, 5)
	if err != nil {
		return nil, err
	}
	state, err := gtk.LabelNew("")
	if err != nil {
		return nil, err
	}
	state.SetHAlign(gtk.ALIGN_START)
	header.PackStart(state, true, true, 0)

	stop, err := gtk.ButtonNewWithLabel("Stop")
	if err != nil {
		return nil, err
	}
	stop.Connect("clicked", func() {
		if err := w.shell.Stop(name); err != nil {
			w.setStatus("%v", err)
		}
	})
	header.PackStart(stop, false, false, 0)
	box.PackStart(header, false, false, 0)

	view, err := gtk.BoxNew(gtk.ORIENTATION_VERTICAL, 0)
	if err != nil {
		return nil, err
	}
	box.PackStart(view, true, true, 0)

	tab, err := gtk.LabelNew(name)
	if err != nil {
		return nil, err
	}

	w.notebook.AppendPage(box, tab)
	box.ShowAll()

	p := &page{box: box, state: state, view: view}
	w.pages[name] = p
	return p, nil
}

func (w *Window) focusPage(name string) {
	p, ok := w.pages[name]
	if !ok {
		return
	}
	if n := w.notebook.PageNum(p.box); n >= 0 {
		w.notebook.SetCurrentPage(n)
	}
}

func (w *Window) removePage(name string) {
	p, ok := w.pages[name]
	if !ok {
		return
	}
	delete(w.pages, name)
	if n := w.notebook.PageNum(p.box); n >= 0 {
		w.notebook.RemovePage(n)
	}
}
