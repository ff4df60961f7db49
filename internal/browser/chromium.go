// Package browser implements the remote collaborators on top of go-rod for
// Chrome and Edge, and a disposable Firefox on top of playwright-go.
package browser

import (
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/user/browserkit/internal/driver"
	"github.com/user/browserkit/internal/logging"
	"github.com/user/browserkit/internal/options"
	"github.com/user/browserkit/internal/remote"
	"github.com/user/browserkit/internal/retry"
)

const downloadDirPref = "download.default_directory"

// lookupInterval is the pause between element lookups while the implicit
// wait is running.
const lookupInterval = 250 * time.Millisecond

// Endpoint connects to Chromium browsers over the DevTools protocol.
type Endpoint struct{}

func (Endpoint) Connect(req remote.ConnectRequest) (remote.Conn, error) {
	ws, err := launcher.ResolveURL(req.Executor)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w: %v", req.Executor, remote.ErrUnreachable, err)
	}

	b := rod.New().ControlURL(ws)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w: %v", req.Executor, remote.ErrUnreachable, err)
	}

	if req.Version != "" {
		v, err := b.Version()
		if err != nil {
			return nil, classify("browser version", err)
		}
		if !sameMajor(v.Product, req.Version) {
			return nil, fmt.Errorf("running %s, resolved %s: %w", v.Product, req.Version, remote.ErrVersionMismatch)
		}
	}

	if dir := downloadDir(req.Options); dir != "" {
		err := proto.BrowserSetDownloadBehavior{
			Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
			DownloadPath: dir,
		}.Call(b)
		if err != nil {
			logging.Logger.Warnf("Setting download directory failed: %v", err)
		}
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, classify("new session", err)
	}

	logging.Logger.Debugf("Connected to %s, session %s", req.Executor, page.TargetID)
	return &conn{
		browser:   b,
		page:      page,
		executor:  req.Executor,
		sessionID: string(page.TargetID),
	}, nil
}

func downloadDir(opts *options.Options) string {
	if opts == nil {
		return ""
	}
	dir, _ := opts.Prefs[downloadDirPref].(string)
	return dir
}

var majorRe = regexp.MustCompile(`(\d+)\.\d+`)

// sameMajor compares the major versions found in two version strings such as
// "Chrome/131.0.6778.85" and "Google Chrome 131.0.6778.85". Unparseable
// input never counts as a mismatch.
func sameMajor(a, b string) bool {
	ma, mb := majorRe.FindStringSubmatch(a), majorRe.FindStringSubmatch(b)
	if ma == nil || mb == nil {
		return true
	}
	return ma[1] == mb[1]
}

type conn struct {
	browser   *rod.Browser
	page      *rod.Page
	executor  string
	sessionID string
	implicit  time.Duration
}

func (c *conn) SessionID() string { return c.sessionID }

func (c *conn) SetSessionID(id string) { c.sessionID = id }

func (c *conn) Executor() string { return c.executor }

// WindowHandles lists the browser's page targets, the session's own target
// first. It fails with remote.ErrStaleSession when that target is gone.
func (c *conn) WindowHandles() ([]string, error) {
	res, err := proto.TargetGetTargets{}.Call(c.browser)
	if err != nil {
		return nil, classify("list windows", err)
	}

	var ids []string
	for _, t := range res.TargetInfos {
		if t.Type == proto.TargetTargetInfoTypePage {
			ids = append(ids, string(t.TargetID))
		}
	}

	handles, ok := sessionFirst(ids, c.sessionID)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", c.sessionID, remote.ErrStaleSession)
	}
	return handles, nil
}

// sessionFirst moves session to the front of ids; ok is false when it is not
// among them.
func sessionFirst(ids []string, session string) ([]string, bool) {
	i := slices.Index(ids, session)
	if i < 0 {
		return nil, false
	}
	out := append([]string{session}, ids[:i]...)
	return append(out, ids[i+1:]...), true
}

func (c *conn) SwitchToWindow(handle string) error {
	page, err := c.browser.PageFromTarget(proto.TargetTargetID(handle))
	if err != nil {
		return classify("switch window", err)
	}
	if _, err := page.Activate(); err != nil {
		return classify("activate window", err)
	}
	c.page = page
	return nil
}

func (c *conn) SetImplicitWait(d time.Duration) { c.implicit = d }

func (c *conn) Close() error {
	return classify("close window", c.page.Close())
}

func (c *conn) Quit() error {
	return classify("quit", c.browser.Close())
}

func (c *conn) ExecuteScript(js string, args ...any) (any, error) {
	res, err := c.page.Eval(js, unwrapArgs(args)...)
	if err != nil {
		return nil, classify("execute script", err)
	}
	return value(res.Value), nil
}

func value(j gson.JSON) any {
	if j.Nil() {
		return nil
	}
	return j.Val()
}

// listJS normalizes a script result to an array of nodes.
const listJS = `function (fn, ...args) {
	const r = fn.apply(this, args);
	if (r == null) return [];
	if (r instanceof Node) return [r];
	return Array.from(r);
}`

func (c *conn) ScriptElements(js string, args ...any) ([]driver.Element, error) {
	wrapped := fmt.Sprintf("(...args) => (%s)((%s), ...args)", listJS, js)
	els, err := c.page.ElementsByJS(rod.Eval(wrapped, unwrapArgs(args)...))
	if err != nil {
		return nil, classify("script elements", err)
	}
	return wrapElements(els), nil
}

func (c *conn) Navigate(url string, timeout time.Duration) error {
	p := c.page.Timeout(timeout)
	defer p.CancelTimeout()
	if err := p.Navigate(url); err != nil {
		return classify("navigate", err)
	}
	return classify("wait load", p.WaitLoad())
}

func (c *conn) URL() (string, error) {
	info, err := c.page.Info()
	if err != nil {
		return "", classify("page info", err)
	}
	return info.URL, nil
}

func (c *conn) Title() (string, error) {
	info, err := c.page.Info()
	if err != nil {
		return "", classify("page info", err)
	}
	return info.Title, nil
}

// FindElements waits up to the implicit wait for at least one match.
func (c *conn) FindElements(by driver.By, selector string) ([]driver.Element, error) {
	query, xpath, err := driver.Locate(by, selector)
	if err != nil {
		return nil, err
	}

	var found rod.Elements
	_, err = retry.Poll(c.implicit, lookupInterval, func() (bool, error) {
		var lookupErr error
		if xpath {
			found, lookupErr = c.page.ElementsX(query)
		} else {
			found, lookupErr = c.page.Elements(query)
		}
		if lookupErr != nil {
			return false, classify("find elements", lookupErr)
		}
		return len(found) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return wrapElements(found), nil
}

func (c *conn) SetUserAgent(ua string) error {
	return classify("set user agent", c.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}))
}

func (c *conn) AddScriptToNewDocument(js string) error {
	_, err := c.page.EvalOnNewDocument(js)
	return classify("add script", err)
}

// unwrapArgs passes elements to the page as remote object references.
func unwrapArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if e, ok := a.(*element); ok {
			out[i] = e.el.Object
			continue
		}
		out[i] = a
	}
	return out
}

// waitReady blocks until a browser answers on executor.
func waitReady(executor string) error {
	return retry.WithExponentialBackoff("Browser readiness "+executor, 5, func() error {
		_, err := launcher.ResolveURL(executor)
		return err
	})
}
