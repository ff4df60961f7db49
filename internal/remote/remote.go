// Package remote defines the collaborators the session manager drives: a
// remote-control endpoint, a launcher that starts a browser bound to a port,
// and a resolver that finds or downloads a matching browser binary.
package remote

import (
	"errors"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/user/browserkit/internal/driver"
	"github.com/user/browserkit/internal/options"
)

type Family string

const (
	Chrome  Family = "chrome"
	Edge    Family = "edge"
	Firefox Family = "firefox"
)

// ProcessName is the substring that identifies the family's OS processes.
func (f Family) ProcessName() string {
	if f == Edge {
		return "msedge"
	}
	return string(f)
}

// Recoverable failures reported by an Endpoint or Conn.
var (
	// ErrVersionMismatch means the running browser does not match the
	// resolved binary.
	ErrVersionMismatch = errors.New("browser version mismatch")
	ErrUnreachable     = errors.New("remote endpoint unreachable")
	ErrProtocol        = errors.New("remote protocol error")
	// ErrStaleSession means the remembered session id is unknown to the
	// running browser.
	ErrStaleSession = errors.New("stale session id")
)

type ConnectRequest struct {
	Executor string
	Options  *options.Options
	// Version is the resolved binary's version; when set, a running browser
	// with a different major version is rejected with ErrVersionMismatch.
	Version string
}

type Endpoint interface {
	// Connect opens a control connection and starts a new session.
	Connect(req ConnectRequest) (Conn, error)
}

type Conn interface {
	driver.Session

	SessionID() string
	// SetSessionID rebinds the connection to an existing session. Validity
	// is checked lazily by WindowHandles.
	SetSessionID(id string)
	Executor() string

	WindowHandles() ([]string, error)
	SwitchToWindow(handle string) error
	SetImplicitWait(d time.Duration)

	// Close closes the current session's window.
	Close() error
	// Quit ends the session and shuts the browser down.
	Quit() error
}

type LaunchSpec struct {
	Bin     string
	Port    int
	Options *options.Options
	// Detached browsers keep running after this program exits.
	Detached bool
	// NewConsole shows the browser's console output instead of discarding it.
	NewConsole bool
}

type Launcher interface {
	// Launch starts a browser listening for control on spec.Port and returns
	// the executor URL to connect to.
	Launch(spec LaunchSpec) (executor string, err error)
}

type Resolved struct {
	Path    string
	Version string
}

// channelSuffixes are stripped from wrapper script names such as
// google-chrome-stable or chromium-browser.
var channelSuffixes = []string{"-stable", "-beta", "-dev", "-unstable", "-browser"}

// ProcessNames returns the substrings that identify the processes started
// from the resolved binary: the family's own name plus the binary's, since a
// Chrome family may resolve to Chromium or Edge.
func (r Resolved) ProcessNames(f Family) []string {
	names := []string{f.ProcessName()}

	base := strings.ReplaceAll(r.Path, `\`, "/")
	base = strings.ToLower(strings.TrimSuffix(path.Base(base), ".exe"))
	for _, s := range channelSuffixes {
		base = strings.TrimSuffix(base, s)
	}
	switch base {
	case "", ".", "/":
		return names
	case "google-chrome":
		base = "chrome"
	case "microsoft-edge":
		base = "msedge"
	}

	if !slices.Contains(names, base) {
		names = append(names, base)
	}
	return names
}

type Resolver interface {
	// Resolve returns a usable binary for hint, downloading one if needed.
	Resolve(hint string) (Resolved, error)
}

// Executor is the control URL for a browser listening on port.
func Executor(port int) string {
	return "http://127.0.0.1:" + strconv.Itoa(port)
}
