// Package launch starts external programs and follows them until their
// top-level windows can be embedded.
package launch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	child_process_manager "github.com/AgustinSRG/go-child-process-manager"

	"github.com/chess10kp/xdock/internal/logging"
	"github.com/chess10kp/xdock/internal/xwin"
)

var log = logging.For("launch")

type State int

const (
	Idle State = iota
	Starting
	Polling
	Ready
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Polling:
		return "polling"
	case Ready:
		return "ready"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrAlreadyStarted = errors.New("application already started")
)

// LaunchError reports that the process could not be spawned.
type LaunchError struct {
	Command []string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %q: %v", strings.Join(e.Command, " "), e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// WindowSource finds the windows owned by a process. *xwin.Locator is one.
type WindowSource interface {
	WindowsForProcess(pid int) []xwin.Handle
}

type Options struct {
	// PollInterval is the delay between lookups while no window is known.
	PollInterval time.Duration
	// ReadyPollInterval is the delay between lookups once windows are
	// published. Zero stops polling after the first window appears.
	ReadyPollInterval time.Duration
	// MaxAttempts caps lookups without a window. Zero polls until exit.
	MaxAttempts int
	Dir         string
	Env         []string
}

func DefaultOptions() Options {
	return Options{
		PollInterval:      100 * time.Millisecond,
		ReadyPollInterval: time.Second,
	}
}

// Application owns one external process and the surfaces of its windows.
// All methods must be called on the loop it was created with.
type Application struct {
	name     string
	command  []string
	opts     Options
	loop     Loop
	source   WindowSource
	embedder Embedder

	state    State
	cmd      *exec.Cmd
	pid      int
	exited   chan struct{}
	handles  []xwin.Handle
	surfaces []Surface
	attempts int
	timer    Cancel
	gen      uint64

	onReady []func([]Surface)
	onExit  []func(error)
	onState []func(State)
}

func New(name string, command []string, loop Loop, source WindowSource, embedder Embedder, opts Options) *Application {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	if embedder == nil {
		embedder = ViewEmbedder{}
	}
	return &Application{
		name:     name,
		command:  append([]string(nil), command...),
		opts:     opts,
		loop:     loop,
		source:   source,
		embedder: embedder,
	}
}

// OnReady registers f to be called with the full surface list each time
// windows are (re)published. Callbacks run in registration order.
func (a *Application) OnReady(f func([]Surface)) { a.onReady = append(a.onReady, f) }

// OnExit registers f to be called once when the process exits on its own or
// after Stop.
func (a *Application) OnExit(f func(error)) { a.onExit = append(a.onExit, f) }

// OnStateChange registers f to be called after every transition.
func (a *Application) OnStateChange(f func(State)) { a.onState = append(a.onState, f) }

func (a *Application) Name() string { return a.name }

func (a *Application) State() State { return a.state }

// PID returns the process id, or 0 before Start.
func (a *Application) PID() int { return a.pid }

func (a *Application) Command() []string {
	return append([]string(nil), a.command...)
}

// Windows returns the published surfaces.
func (a *Application) Windows() []Surface {
	return append([]Surface(nil), a.surfaces...)
}

// Handles returns the native ids of the published windows.
func (a *Application) Handles() []xwin.Handle {
	return append([]xwin.Handle(nil), a.handles...)
}

// Start spawns the process. On failure the application stays Idle and the
// error is a *LaunchError.
func (a *Application) Start() error {
	if a.state != Idle {
		return ErrAlreadyStarted
	}
	if len(a.command) == 0 {
		return &LaunchError{Command: a.command, Err: ErrEmptyCommand}
	}

	path, err := exec.LookPath(a.command[0])
	if err != nil {
		return &LaunchError{Command: a.command, Err: err}
	}

	cmd := exec.Command(path, a.command[1:]...)
	cmd.Dir = a.opts.Dir
	if len(a.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), a.opts.Env...)
	}
	if err := child_process_manager.ConfigureCommand(cmd); err != nil {
		log.Warnf("unable to configure %s to be killed with us: %v", a.name, err)
	}
	if err := cmd.Start(); err != nil {
		return &LaunchError{Command: a.command, Err: err}
	}
	if err := child_process_manager.AddChildProcess(cmd.Process); err != nil {
		log.Warnf("unable to register %s (pid %d) as a child: %v", a.name, cmd.Process.Pid, err)
	}

	a.cmd = cmd
	a.pid = cmd.Process.Pid
	a.exited = make(chan struct{})
	a.setState(Starting)
	log.Infof("started %s (pid %d): %s", a.name, a.pid, strings.Join(a.command, " "))

	gen := a.gen
	go a.wait(cmd, a.exited, gen)
	a.loop.Post(func() { a.started(gen) })
	return nil
}

func (a *Application) wait(cmd *exec.Cmd, exited chan struct{}, gen uint64) {
	err := cmd.Wait()
	close(exited)
	a.loop.Post(func() { a.exit(gen, err) })
}

func (a *Application) started(gen uint64) {
	if gen != a.gen || a.state != Starting {
		return
	}
	a.setState(Polling)
	a.poll(gen)
}

func (a *Application) poll(gen uint64) {
	a.timer = nil
	if gen != a.gen || (a.state != Polling && a.state != Ready) {
		return
	}

	handles := a.source.WindowsForProcess(a.pid)

	switch {
	case len(handles) == 0 && a.state == Polling:
		a.attempts++
		if a.opts.MaxAttempts > 0 && a.attempts >= a.opts.MaxAttempts {
			log.Warnf("no window for %s (pid %d) after %d attempts, giving up", a.name, a.pid, a.attempts)
			return
		}
		a.schedule(gen, a.opts.PollInterval)

	case len(handles) == 0:
		log.Debugf("windows of %s (pid %d) are gone", a.name, a.pid)
		a.publish(nil)
		a.attempts = 0
		a.setState(Polling)
		a.schedule(gen, a.opts.PollInterval)

	case a.state == Ready && sameHandles(handles, a.handles):
		a.schedule(gen, a.opts.ReadyPollInterval)

	default:
		a.publish(handles)
		a.attempts = 0
		if a.state != Ready {
			a.setState(Ready)
		}
		log.Infof("%s (pid %d) has %d window(s)", a.name, a.pid, len(a.surfaces))
		for _, f := range a.onReady {
			f(a.Windows())
		}
		a.schedule(gen, a.opts.ReadyPollInterval)
	}
}

func (a *Application) schedule(gen uint64, d time.Duration) {
	if d <= 0 {
		return
	}
	a.timer = a.loop.After(d, func() { a.poll(gen) })
}

func (a *Application) cancelTimer() {
	if a.timer != nil {
		a.timer()
		a.timer = nil
	}
}

// publish replaces the surfaces. Old surfaces are released, never diffed.
func (a *Application) publish(handles []xwin.Handle) {
	for _, s := range a.surfaces {
		s.Release()
	}
	a.surfaces = nil
	a.handles = append([]xwin.Handle(nil), handles...)

	for _, h := range handles {
		s, err := a.embedder.Embed(h)
		if err != nil {
			log.Warnf("failed to embed window 0x%x of %s: %v", uint32(h), a.name, err)
			continue
		}
		a.surfaces = append(a.surfaces, s)
	}
}

func (a *Application) exit(gen uint64, err error) {
	if gen != a.gen || a.state == Terminated {
		return
	}
	if err != nil {
		log.Infof("%s (pid %d) exited: %v", a.name, a.pid, err)
	} else {
		log.Infof("%s (pid %d) exited", a.name, a.pid)
	}
	a.terminate()
	for _, f := range a.onExit {
		f(err)
	}
}

func (a *Application) terminate() {
	a.cancelTimer()
	a.publish(nil)
	a.gen++
	a.setState(Terminated)
}

// Stop asks the process to terminate. The transition to Terminated happens
// when the exit is observed.
func (a *Application) Stop() error {
	switch a.state {
	case Starting, Polling, Ready:
	default:
		return nil
	}
	if err := a.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop %s: %w", a.name, err)
	}
	return nil
}

// Close kills a still running process and waits until it has been reaped.
// OnExit is not called. The application cannot be restarted.
func (a *Application) Close() {
	if a.state == Terminated {
		return
	}
	if a.cmd != nil {
		if err := a.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Warnf("failed to kill %s (pid %d): %v", a.name, a.pid, err)
		}
		<-a.exited
	}
	a.terminate()
}

func (a *Application) setState(s State) {
	if a.state == s {
		return
	}
	log.Debugf("%s: %s -> %s", a.name, a.state, s)
	a.state = s
	for _, f := range a.onState {
		f(s)
	}
}

func sameHandles(a, b []xwin.Handle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
