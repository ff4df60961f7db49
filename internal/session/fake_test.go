package session

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/user/browserkit/internal/driver"
	"github.com/user/browserkit/internal/proc"
	"github.com/user/browserkit/internal/remote"
)

// world is an in-memory host: its process table, the browsers listening on
// each executor and a record of what the manager did to them.
type world struct {
	procs    []proc.Process
	browsers map[string]*fakeBrowser

	nextID   int
	killed   int
	launches int
	resolves int
	specs    []remote.LaunchSpec
	requests []remote.ConnectRequest

	connectErrs []error
	launchErr   error
	// survivors keeps processes alive through Kill.
	survivors bool

	// binary is what Resolve finds; procName is what the OS calls the
	// processes it starts.
	binary   string
	procName string
}

type fakeBrowser struct {
	windows []string
}

func newWorld() *world {
	return &world{
		browsers: map[string]*fakeBrowser{},
		binary:   "/opt/chrome/chrome",
		procName: "chrome",
	}
}

// running starts a browser outside the manager's control with one window.
func (w *world) running(executor, window string) {
	w.procs = append(w.procs, proc.Process{PID: int32(1000 + len(w.procs)), Name: w.procName})
	w.browsers[executor] = &fakeBrowser{windows: []string{window}}
}

func (w *world) deps() Deps {
	return Deps{Endpoint: w, Launcher: w, Resolver: w, Processes: w}
}

func (w *world) List() ([]proc.Process, error) {
	return slices.Clone(w.procs), nil
}

func (w *world) Kill(p proc.Process) error {
	if w.survivors {
		return errors.New("access denied")
	}
	w.killed++
	w.procs = slices.DeleteFunc(w.procs, func(q proc.Process) bool { return q.PID == p.PID })
	if len(w.procs) == 0 {
		w.browsers = map[string]*fakeBrowser{}
	}
	return nil
}

func (w *world) Launch(spec remote.LaunchSpec) (string, error) {
	w.specs = append(w.specs, spec)
	if w.launchErr != nil {
		return "", w.launchErr
	}
	w.launches++
	executor := remote.Executor(spec.Port)
	w.procs = append(w.procs, proc.Process{PID: int32(2000 + w.launches), Name: w.procName})
	w.browsers[executor] = &fakeBrowser{}
	return executor, nil
}

func (w *world) Resolve(hint string) (remote.Resolved, error) {
	w.resolves++
	return remote.Resolved{Path: w.binary, Version: "131.0.6778.85"}, nil
}

func (w *world) Connect(req remote.ConnectRequest) (remote.Conn, error) {
	w.requests = append(w.requests, req)
	if len(w.connectErrs) > 0 {
		err := w.connectErrs[0]
		w.connectErrs = w.connectErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	b, ok := w.browsers[req.Executor]
	if !ok {
		return nil, fmt.Errorf("dial %s: %w", req.Executor, remote.ErrUnreachable)
	}

	w.nextID++
	id := fmt.Sprintf("target-%d", w.nextID)
	b.windows = append(b.windows, id)
	return &fakeConn{browser: b, executor: req.Executor, sessionID: id, page: id}, nil
}

type fakeConn struct {
	browser   *fakeBrowser
	executor  string
	sessionID string
	page      string
	implicit  time.Duration
	quit      bool
}

func (c *fakeConn) SessionID() string      { return c.sessionID }
func (c *fakeConn) SetSessionID(id string) { c.sessionID = id }
func (c *fakeConn) Executor() string       { return c.executor }

func (c *fakeConn) WindowHandles() ([]string, error) {
	i := slices.Index(c.browser.windows, c.sessionID)
	if i < 0 {
		return nil, fmt.Errorf("session %s: %w", c.sessionID, remote.ErrStaleSession)
	}
	others := slices.Delete(slices.Clone(c.browser.windows), i, i+1)
	return append([]string{c.sessionID}, others...), nil
}

func (c *fakeConn) SwitchToWindow(h string) error {
	c.page = h
	return nil
}

func (c *fakeConn) SetImplicitWait(d time.Duration) { c.implicit = d }

func (c *fakeConn) Close() error {
	c.browser.windows = slices.DeleteFunc(c.browser.windows, func(w string) bool { return w == c.page })
	return nil
}

func (c *fakeConn) Quit() error {
	c.quit = true
	return nil
}

func (c *fakeConn) ExecuteScript(string, ...any) (any, error)                { return nil, nil }
func (c *fakeConn) ScriptElements(string, ...any) ([]driver.Element, error)  { return nil, nil }
func (c *fakeConn) Navigate(string, time.Duration) error                     { return nil }
func (c *fakeConn) URL() (string, error)                                     { return "about:blank", nil }
func (c *fakeConn) Title() (string, error)                                   { return "", nil }
func (c *fakeConn) FindElements(driver.By, string) ([]driver.Element, error) { return nil, nil }
func (c *fakeConn) SetUserAgent(string) error                                { return nil }
func (c *fakeConn) AddScriptToNewDocument(string) error                      { return nil }

type fakeJournal struct {
	actions  []string
	sessions []string
}

func (j *fakeJournal) LogActivity(action, meta string) error {
	j.actions = append(j.actions, action)
	return nil
}

func (j *fakeJournal) RecordSession(family, executor, sessionID string) error {
	j.sessions = append(j.sessions, family+" "+executor+" "+sessionID)
	return nil
}
