package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/browserkit/internal/handle"
	"github.com/user/browserkit/internal/options"
	"github.com/user/browserkit/internal/remote"
)

const executor = "http://127.0.0.1:65000"

func newReusable(t *testing.T, w *world, mutate ...func(*Config)) (*Reusable, string) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.HandlePath = filepath.Join(t.TempDir(), "session.json")
	cfg.ImplicitWait = 3 * time.Second
	for _, m := range mutate {
		m(&cfg)
	}

	r, err := New(cfg, w.deps())
	require.NoError(t, err)
	return r, cfg.HandlePath
}

func TestNewResolvesDriver(t *testing.T) {
	w := newWorld()
	newReusable(t, w)
	assert.Equal(t, 1, w.resolves)
}

func TestBeginCreatesHandleStore(t *testing.T) {
	w := newWorld()
	w.launchErr = errors.New("no display")
	r, path := newReusable(t, w)

	ok, err := r.Begin()
	require.NoError(t, err)
	assert.False(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestBeginCorruptHandleStore(t *testing.T) {
	w := newWorld()
	r, path := newReusable(t, w)
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	ok, err := r.Begin()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, w.launches)
}

func TestBeginFreshLaunchPersistsHandle(t *testing.T) {
	w := newWorld()
	r, path := newReusable(t, w)
	require.NoError(t, os.WriteFile(path, []byte(`{"command_executor":"http://old:1","session_id":"gone","extra":1}`), 0o644))

	ok, err := r.Begin()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 1, w.launches)
	require.Len(t, w.specs, 1)
	assert.True(t, w.specs[0].Detached)
	assert.Equal(t, 65000, w.specs[0].Port)
	assert.Equal(t, "/opt/chrome/chrome", w.specs[0].Bin)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command_executor":"`+executor+`","session_id":"target-1"}`, string(data))

	conn := r.Conn().(*fakeConn)
	assert.Equal(t, 3*time.Second, conn.implicit)
	assert.NotNil(t, r.Driver())
}

func TestBeginReattachesRunningBrowser(t *testing.T) {
	w := newWorld()
	w.running(executor, "target-7")
	r, path := newReusable(t, w)
	require.NoError(t, handle.Save(path, handle.Handle{CommandExecutor: executor, SessionID: "target-7"}))

	ok, err := r.Begin()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Zero(t, w.killed)
	assert.Zero(t, w.launches)
	assert.Equal(t, []string{"target-7"}, w.browsers[executor].windows, "the throwaway session window is closed")
	assert.Equal(t, "target-7", r.Conn().SessionID())
	assert.Equal(t, handle.Handle{CommandExecutor: executor, SessionID: "target-7"}, handle.Load(path))
}

func TestBeginReattachBindsSessionWindow(t *testing.T) {
	w := newWorld()
	w.running(executor, "tab-0")
	w.browsers[executor].windows = append(w.browsers[executor].windows, "target-7")
	r, path := newReusable(t, w)
	require.NoError(t, handle.Save(path, handle.Handle{CommandExecutor: executor, SessionID: "target-7"}))

	ok, err := r.Begin()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "target-7", r.Conn().(*fakeConn).page)
	assert.Equal(t, []string{"tab-0", "target-7"}, w.browsers[executor].windows)
}

func TestBeginStaleSessionRelaunches(t *testing.T) {
	w := newWorld()
	w.running(executor, "target-99")
	r, path := newReusable(t, w)
	require.NoError(t, handle.Save(path, handle.Handle{CommandExecutor: executor, SessionID: "target-3"}))

	ok, err := r.Begin()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 1, w.killed)
	assert.Equal(t, 1, w.launches)
	h := handle.Load(path)
	assert.Equal(t, executor, h.CommandExecutor)
	assert.NotEqual(t, "target-3", h.SessionID)
	assert.Equal(t, r.Conn().SessionID(), h.SessionID)
}

func TestBeginNoProcessSkipsAttach(t *testing.T) {
	w := newWorld()
	r, path := newReusable(t, w)
	require.NoError(t, handle.Save(path, handle.Handle{CommandExecutor: executor, SessionID: "target-3"}))

	ok, err := r.Begin()
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, w.requests, 1, "only the relaunched browser is connected to")
	assert.Equal(t, 1, w.launches)
}

func TestBeginExhausted(t *testing.T) {
	w := newWorld()
	w.connectErrs = []error{
		remote.ErrUnreachable,
		remote.ErrProtocol,
		remote.ErrUnreachable,
	}
	j := &fakeJournal{}
	cfg := DefaultConfig()
	cfg.HandlePath = filepath.Join(t.TempDir(), "session.json")
	cfg.AttachRetries = 3
	deps := w.deps()
	deps.Journal = j
	r, err := New(cfg, deps)
	require.NoError(t, err)

	ok, err := r.Begin()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, w.launches)
	assert.Nil(t, r.Driver())
	assert.Contains(t, j.actions, "exhausted")
	assert.Empty(t, j.sessions)
	assert.True(t, handle.Load(cfg.HandlePath).Empty())
}

func TestBeginLaunchFailuresExhaust(t *testing.T) {
	w := newWorld()
	w.launchErr = errors.New("binary missing")
	r, _ := newReusable(t, w)

	ok, err := r.Begin()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, w.specs, DefaultAttachRetries)
}

func TestBeginUnexpectedErrorPropagates(t *testing.T) {
	w := newWorld()
	boom := errors.New("boom")
	w.connectErrs = []error{boom}
	r, _ := newReusable(t, w)

	ok, err := r.Begin()
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestBeginVersionMismatchResolvesAgain(t *testing.T) {
	w := newWorld()
	w.connectErrs = []error{remote.ErrVersionMismatch}
	r, _ := newReusable(t, w)

	ok, err := r.Begin()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, w.resolves)
	assert.Equal(t, 2, w.launches)
	assert.Equal(t, "131.0.6778.85", w.requests[0].Version)
}

func TestBeginResidualProcessesDoNotAbort(t *testing.T) {
	w := newWorld()
	w.survivors = true
	w.running(executor, "tab-1")
	r, path := newReusable(t, w)
	require.NoError(t, handle.Save(path, handle.Handle{CommandExecutor: executor, SessionID: "stale"}))

	ok, err := r.Begin()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, w.launches)
}

func TestBeginTracksResolvedBinaryProcesses(t *testing.T) {
	w := newWorld()
	w.binary = "/usr/bin/chromium"
	w.procName = "chromium"
	w.running(executor, "target-7")
	r, path := newReusable(t, w)
	require.NoError(t, handle.Save(path, handle.Handle{CommandExecutor: executor, SessionID: "target-7"}))

	ok, err := r.Begin()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, w.launches)
	assert.Equal(t, "target-7", r.Conn().SessionID())

	assert.Zero(t, r.TerminateAll())
	assert.Equal(t, 1, w.killed)
	assert.Empty(t, w.procs)
}

func TestBeginRelaunchKillsStaleChromium(t *testing.T) {
	w := newWorld()
	w.binary = "/usr/bin/chromium-browser"
	w.procName = "chromium"
	w.running(executor, "tab-1")
	r, path := newReusable(t, w)
	require.NoError(t, handle.Save(path, handle.Handle{CommandExecutor: executor, SessionID: "stale"}))

	ok, err := r.Begin()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, w.killed)
	assert.Equal(t, 1, w.launches)
	assert.Len(t, w.procs, 1)
}

func TestBeginJournal(t *testing.T) {
	w := newWorld()
	j := &fakeJournal{}
	cfg := DefaultConfig()
	cfg.HandlePath = filepath.Join(t.TempDir(), "session.json")
	deps := w.deps()
	deps.Journal = j
	r, err := New(cfg, deps)
	require.NoError(t, err)

	ok, err := r.Begin()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"attempt", "launch", "attach"}, j.actions)
	assert.Equal(t, []string{"chrome " + executor + " target-1"}, j.sessions)
}

func TestConnectOptionsKeepsFreeProfile(t *testing.T) {
	w := newWorld()
	dir := t.TempDir()
	r, _ := newReusable(t, w, func(c *Config) {
		c.Options = &options.Options{Args: []string{"user-data-dir=" + dir, "start-maximized"}}
	})

	ok, err := r.Begin()
	require.NoError(t, err)
	require.True(t, ok)

	require.NotEmpty(t, w.requests)
	assert.Equal(t, dir, w.requests[0].Options.UserDataDir())
}

func TestQuitAndTerminateAll(t *testing.T) {
	w := newWorld()
	r, _ := newReusable(t, w)
	assert.NoError(t, r.Quit(), "quitting before Begin is a no-op")

	ok, err := r.Begin()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, r.Quit())
	assert.True(t, r.Conn().(*fakeConn).quit)

	assert.Zero(t, r.TerminateAll())
	assert.Empty(t, w.procs)
}

func TestEdgeProcessName(t *testing.T) {
	assert.Equal(t, "msedge", remote.Edge.ProcessName())
	assert.Equal(t, "chrome", remote.Chrome.ProcessName())
	assert.Equal(t, "firefox", remote.Firefox.ProcessName())
}

func TestDisposable(t *testing.T) {
	w := newWorld()
	cfg := DefaultConfig()
	cfg.Port = 0
	cfg.ImplicitWait = time.Second

	d, err := NewDisposable(cfg, w.deps())
	require.NoError(t, err)

	ok, err := d.Begin()
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, w.specs, 1)
	assert.False(t, w.specs[0].Detached)
	assert.Equal(t, DefaultDisposablePort, w.specs[0].Port)
	assert.Equal(t, time.Second, d.Conn().(*fakeConn).implicit)
	assert.NotNil(t, d.Driver())

	require.NoError(t, d.Quit())
	assert.True(t, d.Conn().(*fakeConn).quit)
}

func TestDisposableLaunchError(t *testing.T) {
	w := newWorld()
	w.launchErr = errors.New("no display")

	d, err := NewDisposable(DefaultConfig(), w.deps())
	require.NoError(t, err)

	ok, err := d.Begin()
	assert.False(t, ok)
	assert.ErrorIs(t, err, w.launchErr)
}
