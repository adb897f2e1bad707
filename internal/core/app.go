package core

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"

	"github.com/chess10kp/xdock/internal/bus"
	"github.com/chess10kp/xdock/internal/config"
	"github.com/chess10kp/xdock/internal/launch"
	"github.com/chess10kp/xdock/internal/ui"
	"github.com/chess10kp/xdock/internal/watch"
	"github.com/chess10kp/xdock/internal/xwin"
)

// App is the graphical launcher process.
type App struct {
	config  *config.Config
	running bool
	sigChan chan os.Signal
	display *xwin.XDisplay
	shell   *Shell
	window  *ui.Window
	ipc     *IPCServer
	bus     *bus.Service
	watcher *watch.Watcher
	cancel  context.CancelFunc
}

func NewApp(cfg *config.Config) (*App, error) {
	return &App{
		config:  cfg,
		sigChan: make(chan os.Signal, 1),
	}, nil
}

// Run initializes GTK and every component, then blocks in the main loop
// until Quit.
func (a *App) Run() error {
	a.running = true

	signal.Notify(a.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-a.sigChan
		log.Infof("received signal: %v", sig)
		glib.IdleAdd(func() {
			a.Quit()
		})
	}()

	log.Info("xdock starting...")

	if err := a.initialize(); err != nil {
		return err
	}

	gtk.Main()
	return nil
}

func (a *App) initialize() error {
	gtk.Init(nil)
	ui.SetupStyles(filepath.Join(a.config.ConfigDir, "style.css"))

	locator := xwin.NewLocator(nil)
	display, err := xwin.Connect(a.config.Display)
	if err != nil {
		log.Warnf("window lookup disabled: %v", err)
	} else {
		a.display = display
		locator = xwin.NewLocator(display)
	}

	loop := ui.GlibLoop{}
	shell, err := NewShell(a.config, loop, locator, launch.ViewEmbedder{})
	if err != nil {
		return err
	}
	a.shell = shell

	window, err := ui.NewWindow(shell, a.config.Window)
	if err != nil {
		return err
	}
	a.window = window
	shell.EmbedWith(window.EmbedderFor)
	shell.OnLaunch(window.Attach)

	n := shell.RescanApplications()
	log.Infof("found %d applications", n)

	if a.config.Bus.Enabled {
		service := bus.NewService(a.config.Bus.Name, a.config.Bus.Path, bus.NewObject(shell, shell.Properties()))
		if err := service.Start(); err != nil {
			log.Warnf("failed to start bus service: %v", err)
		} else {
			a.bus = service
		}
	}

	ipc := NewIPCServer(shell, loop, window, a.config.SocketPath)
	if err := ipc.Start(); err != nil {
		log.Warnf("failed to start IPC server: %v", err)
	} else {
		a.ipc = ipc
	}

	if a.config.Apps.Watch {
		a.startWatcher(loop)
	}

	window.Show()
	log.Info("initialization complete")
	return nil
}

func (a *App) startWatcher(loop launch.Loop) {
	debounce := time.Duration(a.config.Apps.WatchDebounce) * time.Millisecond
	match := func(path string) bool {
		return strings.HasSuffix(path, ".desktop")
	}

	w, err := watch.New(a.shell.WatchDirs(), debounce, match, func() {
		n := a.shell.RescanApplications()
		if a.bus != nil {
			a.bus.Emit("ApplicationsChanged", uint32(n))
		}
		loop.Post(a.window.Reload)
	})
	if err != nil {
		log.Warnf("failed to watch application directories: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.watcher = w
	a.cancel = cancel
	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warnf("directory watcher stopped: %v", err)
		}
	}()
}

// Quit tears everything down and leaves the main loop. It must run on the
// GTK main loop.
func (a *App) Quit() {
	if !a.running {
		return
	}
	a.running = false

	log.Info("shutting down...")

	if a.cancel != nil {
		a.cancel()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.ipc != nil {
		a.ipc.Stop()
	}
	if a.bus != nil {
		a.bus.Stop()
	}
	if a.shell != nil {
		a.shell.Close()
	}
	if a.window != nil {
		a.window.Destroy()
	}
	if a.display != nil {
		a.display.Close()
	}

	gtk.MainQuit()
}
