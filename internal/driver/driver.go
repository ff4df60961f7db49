// Package driver wraps a browser session with polling waits, form helpers and
// anti-detection tweaks. Scripts are JavaScript function expressions such as
// "() => document.readyState"; positional arguments are passed through.
//
// A Driver is not safe for concurrent use: the underlying connection is
// ordering sensitive, so callers must serialize access.
package driver

import (
	"errors"
	"time"

	"github.com/user/browserkit/internal/logging"
	"github.com/user/browserkit/internal/retry"
	"github.com/user/browserkit/internal/stealth"
)

// Errors a backend reports for conditions that go away on their own. Polling
// helpers swallow these and try again; anything else is returned.
var (
	ErrStaleElement = errors.New("stale element reference")
	ErrAlertPresent = errors.New("unexpected alert open")
	ErrScript       = errors.New("javascript error")
)

var ErrNoTarget = errors.New("target needs By and Selector, or Script")

func IsTransient(err error) bool {
	return errors.Is(err, ErrStaleElement) || errors.Is(err, ErrAlertPresent) || errors.Is(err, ErrScript)
}

type Key int

const (
	KeyTab Key = iota
	KeyEnter
	KeyBackspace
	KeyDelete
)

// Session is the automation connection a Driver delegates to.
type Session interface {
	ExecuteScript(js string, args ...any) (any, error)
	// ScriptElements runs js and returns the element or elements it yields;
	// an empty slice when it yields none.
	ScriptElements(js string, args ...any) ([]Element, error)
	Navigate(url string, timeout time.Duration) error
	URL() (string, error)
	Title() (string, error)
	// FindElements returns the current matches without waiting beyond the
	// session's implicit wait.
	FindElements(by By, selector string) ([]Element, error)
	SetUserAgent(ua string) error
	AddScriptToNewDocument(js string) error
}

type Element interface {
	Visible() (bool, error)
	Clickable() (bool, error)
	Click() error
	// Eval runs a function that receives the element as its first argument.
	Eval(js string) (any, error)
	EvalElement(js string) (Element, error)
	Attribute(name string) (*string, error)
	Value() (string, error)
	Text() (string, error)
	Focus() error
	Clear() error
	Type(text string) error
	Press(key Key) error
	SetFiles(paths []string) error
}

// Target names an element either by locator or by a script returning it.
type Target struct {
	By       By
	Selector string
	Script   string
}

type Driver struct {
	sess Session

	// Interval is the pause between polls.
	Interval time.Duration
}

func New(sess Session) *Driver {
	return &Driver{sess: sess, Interval: time.Second}
}

func (d *Driver) Session() Session {
	return d.sess
}

func (d *Driver) ExecuteScript(js string, args ...any) (any, error) {
	return d.sess.ExecuteScript(js, args...)
}

func (d *Driver) URL() (string, error) {
	return d.sess.URL()
}

// poll runs check until it succeeds, the timeout passes, or it returns an
// error that is not transient.
func (d *Driver) poll(timeout time.Duration, check func() (bool, error)) (bool, error) {
	return d.pollEvery(timeout, d.Interval, check)
}

func (d *Driver) pollEvery(timeout, interval time.Duration, check func() (bool, error)) (bool, error) {
	ok, err := retry.Poll(timeout, interval, func() (bool, error) {
		done, err := check()
		if err != nil && IsTransient(err) {
			logging.Logger.Debugf("Transient automation error, retrying: %v", err)
			return false, nil
		}
		return done, err
	})
	if err == nil && !ok {
		logging.Logger.Debugf("Timeout after %v", timeout)
	}
	return ok, err
}

// RotateUserAgent overrides the browser's user agent; an empty ua picks one
// from the rotation pool.
func (d *Driver) RotateUserAgent(ua string) error {
	if ua == "" {
		ua = stealth.RandomUserAgent()
	}

	if current, err := d.sess.ExecuteScript("() => navigator.userAgent"); err == nil {
		logging.Logger.Debugf("Current user agent: %v", current)
	}

	if err := d.sess.SetUserAgent(ua); err != nil {
		logging.Logger.Errorf("Changing user agent failed: %v", err)
		return err
	}

	logging.Logger.Debugf("New user agent: %s", ua)
	return nil
}

// HideWebdriver makes navigator.webdriver read as undefined on every page
// loaded from now on.
func (d *Driver) HideWebdriver() error {
	return d.sess.AddScriptToNewDocument(stealth.WebdriverUndefinedJS)
}

// ApplyStealth installs the full evasion bundle on every new document.
func (d *Driver) ApplyStealth() error {
	return d.sess.AddScriptToNewDocument(stealth.JS)
}
