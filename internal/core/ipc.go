package core

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chess10kp/xdock/internal/launch"
	"github.com/chess10kp/xdock/internal/xwin"
)

// Presenter shows and hides the main window. Calls happen on the loop.
type Presenter interface {
	Show()
	Hide()
}

const loopTimeout = 5 * time.Second

var errLoopTimeout = errors.New("main loop did not respond")

// IPCServer answers one text command per unix-socket connection.
type IPCServer struct {
	shell      *Shell
	loop       launch.Loop
	presenter  Presenter
	socketPath string
	server     *net.UnixListener
	running    atomic.Bool
	done       chan struct{}
}

func NewIPCServer(shell *Shell, loop launch.Loop, presenter Presenter, socketPath string) *IPCServer {
	return &IPCServer{
		shell:      shell,
		loop:       loop,
		presenter:  presenter,
		socketPath: socketPath,
	}
}

func (s *IPCServer) Start() error {
	if s.running.Load() {
		return fmt.Errorf("IPC server already running")
	}

	if _, err := os.Stat(s.socketPath); err == nil {
		os.Remove(s.socketPath)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}

	s.server = listener.(*net.UnixListener)
	s.done = make(chan struct{})
	s.running.Store(true)

	log.Infof("IPC server listening on %s", s.socketPath)

	go s.acceptConnections()
	return nil
}

func (s *IPCServer) acceptConnections() {
	defer close(s.done)
	for s.running.Load() {
		conn, err := s.server.Accept()
		if err != nil {
			if s.running.Load() {
				log.Warnf("error accepting connection: %v", err)
				continue
			}
			return
		}

		go s.handleConnection(conn)
	}
}

func (s *IPCServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(loopTimeout))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		log.Warnf("error reading from connection: %v", err)
		return
	}

	message := strings.TrimSpace(line)
	log.Debugf("received IPC message: %s", message)

	reply := s.HandleMessage(message)
	conn.SetWriteDeadline(time.Now().Add(loopTimeout))
	if _, err := conn.Write([]byte(reply + "\n")); err != nil {
		log.Warnf("error writing reply: %v", err)
	}
}

// HandleMessage executes one command and returns the reply line. Replies
// start with "ok" or "error".
func (s *IPCServer) HandleMessage(message string) string {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(message), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "rescan":
		n := s.shell.RescanApplications()
		return fmt.Sprintf("ok %d applications", n)

	case "list":
		return okReply(strings.Join(s.shell.ApplicationNames(), "\t"))

	case "launch":
		if arg == "" {
			return "error usage: launch <name>"
		}
		return s.onLoop(func() (string, error) {
			app, err := s.shell.Launch(arg)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("ok pid %d", app.PID()), nil
		})

	case "stop":
		if arg == "" {
			return "error usage: stop <name>"
		}
		return s.onLoop(func() (string, error) {
			return "ok", s.shell.Stop(arg)
		})

	case "running":
		return s.onLoop(func() (string, error) {
			return okReply(strings.Join(s.shell.Running(), "\t")), nil
		})

	case "windows":
		pid, err := strconv.Atoi(arg)
		if err != nil || pid <= 0 {
			return "error usage: windows <pid>"
		}
		return okReply(formatHandles(s.shell.WindowsForProcess(pid)))

	case "show", "hide":
		if s.presenter == nil {
			return "error no window"
		}
		show := cmd == "show"
		s.loop.Post(func() {
			if show {
				s.presenter.Show()
			} else {
				s.presenter.Hide()
			}
		})
		return "ok"
	}

	return fmt.Sprintf("error unknown command %q", cmd)
}

func (s *IPCServer) onLoop(f func() (string, error)) string {
	type result struct {
		reply string
		err   error
	}
	ch := make(chan result, 1)
	s.loop.Post(func() {
		reply, err := f()
		ch <- result{reply, err}
	})

	select {
	case r := <-ch:
		if r.err != nil {
			return "error " + r.err.Error()
		}
		return r.reply
	case <-time.After(loopTimeout):
		return "error " + errLoopTimeout.Error()
	}
}

func (s *IPCServer) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}

	if s.server != nil {
		s.server.Close()
		<-s.done
	}

	if _, err := os.Stat(s.socketPath); err == nil {
		os.Remove(s.socketPath)
	}

	log.Infof("IPC server stopped")
	return nil
}

// SendMessage sends one command to a running instance and returns its reply.
func SendMessage(socketPath, message string) (string, error) {
	conn, err := net.DialTimeout("unix", socketPath, loopTimeout)
	if err != nil {
		return "", fmt.Errorf("failed to connect to xdock socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(message + "\n")); err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * loopTimeout))
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && reply == "" {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

func okReply(body string) string {
	if body == "" {
		return "ok"
	}
	return "ok " + body
}

func formatHandles(handles []xwin.Handle) string {
	parts := make([]string, len(handles))
	for i, h := range handles {
		parts[i] = fmt.Sprintf("0x%x", uint32(h))
	}
	return strings.Join(parts, " ")
}
