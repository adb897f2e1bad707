package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess10kp/xdock/internal/xwin"
)

type recordingPresenter struct {
	calls chan string
}

func (p *recordingPresenter) Show() { p.calls <- "show" }
func (p *recordingPresenter) Hide() { p.calls <- "hide" }

func TestHandleMessage(t *testing.T) {
	shell, loop := newTestShell(t, testConfig(t))
	presenter := &recordingPresenter{calls: make(chan string, 2)}
	server := NewIPCServer(shell, loop, presenter, "")

	assert.Equal(t, "ok 2 applications", server.HandleMessage("rescan"))
	assert.Equal(t, "ok Editor\tSleeper", server.HandleMessage("list"))
	assert.Equal(t, "ok", server.HandleMessage("running"))

	assert.Equal(t, "error usage: launch <name>", server.HandleMessage("launch"))
	assert.True(t, strings.HasPrefix(server.HandleMessage("launch Nope"), "error "))

	reply := server.HandleMessage("launch Sleeper")
	require.True(t, strings.HasPrefix(reply, "ok pid "), reply)
	assert.Equal(t, "ok Sleeper", server.HandleMessage("running"))

	assert.Equal(t, "ok", server.HandleMessage("stop Sleeper"))
	require.Eventually(t, func() bool {
		return server.HandleMessage("running") == "ok"
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, strings.HasPrefix(server.HandleMessage("stop Sleeper"), "error "))

	assert.Equal(t, "ok", server.HandleMessage("windows 1"), "no display means no windows")
	assert.Equal(t, "error usage: windows <pid>", server.HandleMessage("windows abc"))
	assert.Equal(t, "error usage: windows <pid>", server.HandleMessage("windows -3"))

	assert.Equal(t, "ok", server.HandleMessage("show"))
	assert.Equal(t, "ok", server.HandleMessage("hide"))
	assert.Equal(t, "show", <-presenter.calls)
	assert.Equal(t, "hide", <-presenter.calls)

	assert.Equal(t, `error unknown command "frobnicate"`, server.HandleMessage("frobnicate now"))
}

func TestHandleMessageWithoutPresenter(t *testing.T) {
	shell, loop := newTestShell(t, testConfig(t))
	server := NewIPCServer(shell, loop, nil, "")
	assert.Equal(t, "error no window", server.HandleMessage("show"))
}

func TestIPCRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	shell, loop := newTestShell(t, cfg)
	shell.RescanApplications()

	server := NewIPCServer(shell, loop, nil, cfg.SocketPath)
	require.NoError(t, server.Start())
	defer server.Stop()

	assert.Error(t, server.Start(), "second start fails")

	reply, err := SendMessage(cfg.SocketPath, "list")
	require.NoError(t, err)
	assert.Equal(t, "ok Editor\tSleeper", reply)

	reply, err = SendMessage(cfg.SocketPath, "  rescan  ")
	require.NoError(t, err)
	assert.Equal(t, "ok 2 applications", reply)

	require.NoError(t, server.Stop())
	assert.NoFileExists(t, cfg.SocketPath)

	_, err = SendMessage(cfg.SocketPath, "list")
	assert.Error(t, err)
}

func TestSendMessageNoServer(t *testing.T) {
	_, err := SendMessage(filepath.Join(t.TempDir(), "missing.sock"), "list")
	assert.Error(t, err)
}

func TestFormatHandles(t *testing.T) {
	assert.Equal(t, "", formatHandles(nil))
	assert.Equal(t, "0x1a00003 0x2", formatHandles([]xwin.Handle{0x1a00003, 2}))
	assert.Equal(t, "ok 0x10", okReply(formatHandles([]xwin.Handle{0x10})))
	assert.Equal(t, fmt.Sprintf("ok %s", "x"), okReply("x"))
}
