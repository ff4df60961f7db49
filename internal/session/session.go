// Package session decides whether a browser left running by an earlier run
// can be reused or must be killed and relaunched, and remembers the session
// handle that makes reuse possible.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/browserkit/internal/driver"
	"github.com/user/browserkit/internal/handle"
	"github.com/user/browserkit/internal/logging"
	"github.com/user/browserkit/internal/options"
	"github.com/user/browserkit/internal/proc"
	"github.com/user/browserkit/internal/profile"
	"github.com/user/browserkit/internal/remote"
)

const (
	DefaultPort           = 65000
	DefaultDisposablePort = 64900
	DefaultAttachRetries  = 2
)

type Config struct {
	Family remote.Family
	// DriverPath is the browser binary, or the directory a downloaded one is
	// cached in.
	DriverPath    string
	HandlePath    string
	ImplicitWait  time.Duration
	Port          int
	Options       *options.Options
	AttachRetries int
	NewConsole    bool
}

// DefaultConfig returns a Chrome configuration with the stock port, retry
// budget and a visible console.
func DefaultConfig() Config {
	return Config{
		Family:        remote.Chrome,
		HandlePath:    "session.json",
		Port:          DefaultPort,
		AttachRetries: DefaultAttachRetries,
		NewConsole:    true,
	}
}

// Journal records attach activity. It is optional.
type Journal interface {
	LogActivity(actionType, metadata string) error
	RecordSession(family, executor, sessionID string) error
}

type Deps struct {
	Endpoint  remote.Endpoint
	Launcher  remote.Launcher
	Resolver  remote.Resolver
	Processes proc.Registry
	Journal   Journal
}

// Reusable attaches to a browser started by an earlier run when it can, and
// relaunches one when it cannot.
type Reusable struct {
	cfg      Config
	deps     Deps
	resolved remote.Resolved
	// processes identifies the browser's OS processes; it follows resolved.
	processes []string

	lastExecutor  string
	lastSessionID string

	conn remote.Conn
	drv  *driver.Driver
}

// New resolves the browser binary and returns a manager ready to Begin.
func New(cfg Config, deps Deps) (*Reusable, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.AttachRetries <= 0 {
		cfg.AttachRetries = DefaultAttachRetries
	}
	if deps.Processes == nil {
		deps.Processes = proc.System()
	}

	resolved, err := deps.Resolver.Resolve(cfg.DriverPath)
	if err != nil {
		return nil, fmt.Errorf("resolve %s driver: %w", cfg.Family, err)
	}

	r := &Reusable{cfg: cfg, deps: deps}
	r.setResolved(resolved)
	return r, nil
}

func (r *Reusable) setResolved(resolved remote.Resolved) {
	r.resolved = resolved
	r.processes = resolved.ProcessNames(r.cfg.Family)
}

// Begin produces a live connection within the configured number of attempts.
// It reports false with a nil error when every attempt failed for a known,
// recoverable reason; any other failure is returned as an error.
func (r *Reusable) Begin() (bool, error) {
	if err := handle.EnsureExists(r.cfg.HandlePath); err != nil {
		return false, fmt.Errorf("handle store: %w", err)
	}

	h := handle.Load(r.cfg.HandlePath)
	r.lastExecutor, r.lastSessionID = h.CommandExecutor, h.SessionID

	attached := false

	for attempt := 1; attempt <= r.cfg.AttachRetries && !attached; attempt++ {
		logging.Logger.Infof("Starting %s, attempt %d/%d", r.cfg.Family, attempt, r.cfg.AttachRetries)
		r.journal("attempt", fmt.Sprintf("%s %d/%d", r.cfg.Family, attempt, r.cfg.AttachRetries))

		if r.lastExecutor != "" && r.lastSessionID != "" && proc.Running(r.deps.Processes, r.processes...) {
			ok, err := r.attach()
			if err != nil {
				return false, err
			}
			attached = ok
		}
		if attached {
			break
		}

		proc.Terminate(r.deps.Processes, r.processes...)
		if err := r.launch(); err != nil {
			logging.Logger.Errorf("Launching %s failed: %v", r.cfg.Family, err)
			r.journal("launch_failed", err.Error())
			continue
		}

		ok, err := r.attach()
		if err != nil {
			return false, err
		}
		attached = ok
	}

	if !attached {
		logging.Logger.Errorf("Could not start %s after %d attempts", r.cfg.Family, r.cfg.AttachRetries)
		r.journal("exhausted", string(r.cfg.Family))
		return false, nil
	}

	h = handle.Handle{CommandExecutor: r.conn.Executor(), SessionID: r.conn.SessionID()}
	if err := handle.Save(r.cfg.HandlePath, h); err != nil {
		return false, fmt.Errorf("handle store: %w", err)
	}
	logging.Logger.Infof("Session %s at %s saved to %s", h.SessionID, h.CommandExecutor, r.cfg.HandlePath)

	if r.deps.Journal != nil {
		if err := r.deps.Journal.RecordSession(string(r.cfg.Family), h.CommandExecutor, h.SessionID); err != nil {
			logging.Logger.Warnf("Journal write failed: %v", err)
		}
	}
	return true, nil
}

// launch starts a fresh browser. It has no session yet, so the next attach
// creates one.
func (r *Reusable) launch() error {
	executor, err := r.deps.Launcher.Launch(remote.LaunchSpec{
		Bin:        r.resolved.Path,
		Port:       r.cfg.Port,
		Options:    r.cfg.Options,
		Detached:   true,
		NewConsole: r.cfg.NewConsole,
	})
	if err != nil {
		return err
	}

	r.lastExecutor = executor
	r.lastSessionID = ""
	r.journal("launch", executor)
	return nil
}

// attach binds to the browser at lastExecutor and checks that it responds.
// Known failures report false with a nil error.
func (r *Reusable) attach() (bool, error) {
	if !proc.Running(r.deps.Processes, r.processes...) {
		logging.Logger.Debugf("No %v process running, nothing to attach to", r.processes)
		return false, nil
	}

	conn, err := r.deps.Endpoint.Connect(remote.ConnectRequest{
		Executor: r.lastExecutor,
		Options:  r.connectOptions(),
		Version:  r.resolved.Version,
	})
	switch {
	case errors.Is(err, remote.ErrVersionMismatch):
		logging.Logger.Warnf("Browser and driver versions differ, resolving again: %v", err)
		r.journal("version_mismatch", err.Error())
		if resolved, rerr := r.deps.Resolver.Resolve(r.cfg.DriverPath); rerr != nil {
			logging.Logger.Errorf("Resolving %s driver failed: %v", r.cfg.Family, rerr)
		} else {
			r.setResolved(resolved)
		}
		return false, nil
	case errors.Is(err, remote.ErrUnreachable), errors.Is(err, remote.ErrProtocol):
		logging.Logger.Warnf("%s not reachable at %s: %v", r.cfg.Family, r.lastExecutor, err)
		proc.Terminate(r.deps.Processes, r.processes...)
		return false, nil
	case err != nil:
		return false, err
	}

	if r.lastSessionID != "" {
		if err := conn.Close(); err != nil {
			if known(err) {
				logging.Logger.Warnf("Closing the new session failed: %v", err)
				return false, nil
			}
			return false, err
		}
		conn.SetSessionID(r.lastSessionID)
	}

	handles, err := conn.WindowHandles()
	if err == nil && len(handles) > 0 {
		err = conn.SwitchToWindow(handles[0])
	}
	switch {
	case errors.Is(err, remote.ErrStaleSession):
		logging.Logger.Warnf("Session %s is stale: %v", r.lastSessionID, err)
		r.journal("stale_session", r.lastSessionID)
		return false, nil
	case known(err):
		logging.Logger.Warnf("%s not reachable at %s: %v", r.cfg.Family, r.lastExecutor, err)
		return false, nil
	case err != nil:
		return false, err
	}

	conn.SetImplicitWait(r.cfg.ImplicitWait)
	r.conn = conn
	r.drv = driver.New(conn)

	logging.Logger.Infof("Attached to %s session %s", r.cfg.Family, conn.SessionID())
	r.journal("attach", conn.SessionID())
	return true, nil
}

// connectOptions drops the user-data-dir switch when another process holds
// the profile, since the connection could not use it.
func (r *Reusable) connectOptions() *options.Options {
	opts := r.cfg.Options
	dir := opts.UserDataDir()
	if dir == "" {
		return opts
	}

	locked, err := profile.Locked(dir)
	if err != nil {
		logging.Logger.Debugf("Probing profile %s failed: %v", dir, err)
	}
	if !locked {
		return opts
	}

	logging.Logger.Infof("Profile %s is in use, connecting without it", dir)
	return opts.WithoutArg(options.UserDataDirArg)
}

// known reports errors from the recoverable part of the taxonomy.
func known(err error) bool {
	return errors.Is(err, remote.ErrStaleSession) ||
		errors.Is(err, remote.ErrUnreachable) ||
		errors.Is(err, remote.ErrProtocol)
}

func (r *Reusable) journal(action, meta string) {
	if r.deps.Journal == nil {
		return
	}
	if err := r.deps.Journal.LogActivity(action, meta); err != nil {
		logging.Logger.Warnf("Journal write failed: %v", err)
	}
}

// Driver returns the helpers bound to the attached session, nil before a
// successful Begin.
func (r *Reusable) Driver() *driver.Driver {
	return r.drv
}

func (r *Reusable) Conn() remote.Conn {
	return r.conn
}

// Quit shuts the attached browser down.
func (r *Reusable) Quit() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Quit()
}

// TerminateAll kills every process of the resolved browser and returns how
// many survived.
func (r *Reusable) TerminateAll() int {
	return proc.Terminate(r.deps.Processes, r.processes...)
}
