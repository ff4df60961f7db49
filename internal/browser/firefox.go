package browser

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/user/browserkit/internal/driver"
	"github.com/user/browserkit/internal/logging"
	"github.com/user/browserkit/internal/options"
	"github.com/user/browserkit/internal/retry"
)

var firefoxKeys = map[driver.Key]string{
	driver.KeyTab:       "Tab",
	driver.KeyEnter:     "Enter",
	driver.KeyBackspace: "Backspace",
	driver.KeyDelete:    "Delete",
}

type FirefoxConfig struct {
	Options      *options.Options
	ImplicitWait time.Duration
	// DriverDir caches the playwright driver and browsers; empty uses the
	// playwright default.
	DriverDir string
	// NewConsole shows the driver's install output.
	NewConsole bool
}

// Firefox is a disposable Firefox started through playwright. It is not
// reusable across program runs.
type Firefox struct {
	cfg     FirefoxConfig
	pw      *playwright.Playwright
	browser playwright.Browser
	page    *firefoxPage
}

func NewFirefox(cfg FirefoxConfig) *Firefox {
	return &Firefox{cfg: cfg}
}

func (f *Firefox) runOptions() *playwright.RunOptions {
	opts := &playwright.RunOptions{
		DriverDirectory: f.cfg.DriverDir,
		Browsers:        []string{"firefox"},
		Stdout:          io.Discard,
		Stderr:          io.Discard,
	}
	if f.cfg.NewConsole {
		opts.Stdout, opts.Stderr = os.Stdout, os.Stderr
	}
	return opts
}

// InstallFirefox downloads the playwright driver and its Firefox build.
func (f *Firefox) InstallFirefox() error {
	if err := playwright.Install(f.runOptions()); err != nil {
		return fmt.Errorf("failed to install playwright firefox: %w", err)
	}
	return nil
}

// Begin installs the driver if needed and launches Firefox. A launch failure
// is returned as an error.
func (f *Firefox) Begin() (bool, error) {
	if err := f.InstallFirefox(); err != nil {
		return false, err
	}

	pw, err := playwright.Run(f.runOptions())
	if err != nil {
		return false, fmt.Errorf("failed to start playwright: %w", err)
	}
	f.pw = pw

	opts := f.cfg.Options.Clone()
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless:         playwright.Bool(opts.Headless),
		Args:             firefoxArgs(opts),
		FirefoxUserPrefs: opts.Prefs,
	}
	browser, err := pw.Firefox.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return false, fmt.Errorf("failed to launch firefox: %w", err)
	}
	f.browser = browser

	page, err := browser.NewPage()
	if err != nil {
		f.Quit()
		return false, fmt.Errorf("failed to create page: %w", err)
	}
	f.page = &firefoxPage{page: page, implicit: f.cfg.ImplicitWait}

	logging.Logger.Infof("Firefox started (%s)", browser.Version())
	return true, nil
}

// firefoxArgs renders switches with the single leading dash Firefox expects.
func firefoxArgs(o *options.Options) []string {
	args := make([]string, 0, len(o.Args))
	for _, a := range o.Args {
		name, value := options.SplitArg(a)
		args = append(args, "-"+name)
		if value != "" {
			args = append(args, value)
		}
	}
	return args
}

func (f *Firefox) Driver() *driver.Driver {
	if f.page == nil {
		return nil
	}
	return driver.New(f.page)
}

func (f *Firefox) Quit() error {
	var errs []error
	if f.browser != nil {
		errs = append(errs, f.browser.Close())
	}
	if f.pw != nil {
		errs = append(errs, f.pw.Stop())
	}
	return errors.Join(errs...)
}

// firefoxPage adapts a playwright page to driver.Session.
type firefoxPage struct {
	page     playwright.Page
	implicit time.Duration
}

// spreadJS calls a function expression with an array of arguments.
func spreadJS(js string) string {
	return fmt.Sprintf("(args) => (%s)(...args)", js)
}

func (p *firefoxPage) ExecuteScript(js string, args ...any) (any, error) {
	res, err := p.page.Evaluate(spreadJS(js), firefoxArgsOf(args))
	return res, classifyPlaywright("execute script", err)
}

func (p *firefoxPage) ScriptElements(js string, args ...any) ([]driver.Element, error) {
	wrapped := fmt.Sprintf("(args) => (%s)((%s), ...args)", listJS, js)
	h, err := p.page.EvaluateHandle(wrapped, firefoxArgsOf(args))
	if err != nil {
		return nil, classifyPlaywright("script elements", err)
	}
	return handleElements(h)
}

func (p *firefoxPage) Navigate(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return classifyPlaywright("navigate", err)
}

func (p *firefoxPage) URL() (string, error) {
	return p.page.URL(), nil
}

func (p *firefoxPage) Title() (string, error) {
	t, err := p.page.Title()
	return t, classifyPlaywright("title", err)
}

func (p *firefoxPage) FindElements(by driver.By, selector string) ([]driver.Element, error) {
	query, xpath, err := driver.Locate(by, selector)
	if err != nil {
		return nil, err
	}
	if xpath {
		query = "xpath=" + query
	} else {
		query = "css=" + query
	}

	var found []playwright.ElementHandle
	_, err = retry.Poll(p.implicit, lookupInterval, func() (bool, error) {
		var lookupErr error
		found, lookupErr = p.page.QuerySelectorAll(query)
		if lookupErr != nil {
			return false, classifyPlaywright("find elements", lookupErr)
		}
		return len(found) > 0, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]driver.Element, len(found))
	for i, h := range found {
		out[i] = &firefoxElement{h: h}
	}
	return out, nil
}

// SetUserAgent changes the header sent with requests and the value scripts
// read from navigator on pages loaded afterwards.
func (p *firefoxPage) SetUserAgent(ua string) error {
	if err := p.page.SetExtraHTTPHeaders(map[string]string{"User-Agent": ua}); err != nil {
		return classifyPlaywright("set user agent", err)
	}
	js := fmt.Sprintf("Object.defineProperty(navigator, 'userAgent', { get: () => %s })", strconv.Quote(ua))
	return p.AddScriptToNewDocument(js)
}

func (p *firefoxPage) AddScriptToNewDocument(js string) error {
	return classifyPlaywright("add script", p.page.AddInitScript(playwright.Script{Content: playwright.String(js)}))
}

// firefoxArgsOf replaces elements with their handles so playwright passes
// them by reference.
func firefoxArgsOf(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if e, ok := a.(*firefoxElement); ok {
			out[i] = e.h
			continue
		}
		out[i] = a
	}
	return out
}

// handleElements unpacks a handle to an array of nodes.
func handleElements(h playwright.JSHandle) ([]driver.Element, error) {
	props, err := h.GetProperties()
	if err != nil {
		return nil, classifyPlaywright("script elements", err)
	}

	idx := make([]int, 0, len(props))
	for k := range props {
		if i, err := strconv.Atoi(k); err == nil {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)

	out := make([]driver.Element, 0, len(idx))
	for _, i := range idx {
		if el := props[strconv.Itoa(i)].AsElement(); el != nil {
			out = append(out, &firefoxElement{h: el})
		}
	}
	return out, nil
}

type firefoxElement struct {
	h playwright.ElementHandle
}

func (e *firefoxElement) Visible() (bool, error) {
	ok, err := e.h.IsVisible()
	return ok, classifyPlaywright("visible", err)
}

func (e *firefoxElement) Clickable() (bool, error) {
	visible, err := e.Visible()
	if err != nil || !visible {
		return false, err
	}
	enabled, err := e.h.IsEnabled()
	return enabled, classifyPlaywright("enabled", err)
}

func (e *firefoxElement) Click() error {
	return classifyPlaywright("click", e.h.Click())
}

func (e *firefoxElement) Eval(js string) (any, error) {
	res, err := e.h.Evaluate(js)
	return res, classifyPlaywright("element script", err)
}

func (e *firefoxElement) EvalElement(js string) (driver.Element, error) {
	h, err := e.h.EvaluateHandle(js)
	if err != nil {
		return nil, classifyPlaywright("element script", err)
	}
	el := h.AsElement()
	if el == nil {
		return nil, fmt.Errorf("element script: %w: result is not an element", driver.ErrScript)
	}
	return &firefoxElement{h: el}, nil
}

func (e *firefoxElement) Attribute(name string) (*string, error) {
	res, err := e.h.Evaluate("(el, name) => el.getAttribute(name)", name)
	if err != nil {
		return nil, classifyPlaywright("attribute "+name, err)
	}
	s, ok := res.(string)
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (e *firefoxElement) Value() (string, error) {
	res, err := e.h.Evaluate("(el) => el.value == null ? '' : String(el.value)")
	if err != nil {
		return "", classifyPlaywright("value", err)
	}
	s, _ := res.(string)
	return s, nil
}

func (e *firefoxElement) Text() (string, error) {
	s, err := e.h.InnerText()
	return s, classifyPlaywright("text", err)
}

func (e *firefoxElement) Focus() error {
	return classifyPlaywright("focus", e.h.Focus())
}

func (e *firefoxElement) Clear() error {
	return classifyPlaywright("clear", e.h.Fill(""))
}

func (e *firefoxElement) Type(text string) error {
	return classifyPlaywright("type", e.h.Type(text))
}

func (e *firefoxElement) Press(key driver.Key) error {
	return classifyPlaywright("press", e.h.Press(firefoxKeys[key]))
}

func (e *firefoxElement) SetFiles(paths []string) error {
	files := make([]playwright.InputFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files = append(files, playwright.InputFile{
			Name:     filepath.Base(p),
			MimeType: mime.TypeByExtension(filepath.Ext(p)),
			Buffer:   data,
		})
	}
	return classifyPlaywright("set files", e.h.SetInputFiles(files))
}

// classifyPlaywright maps playwright failures onto the driver's transient
// errors by message, the only detail playwright exposes for them.
func classifyPlaywright(op string, err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not attached to the dom"),
		strings.Contains(msg, "is disposed"),
		strings.Contains(msg, "execution context was destroyed"):
		return fmt.Errorf("%s: %w: %v", op, driver.ErrStaleElement, err)
	case strings.Contains(msg, "dialog"):
		return fmt.Errorf("%s: %w: %v", op, driver.ErrAlertPresent, err)
	case strings.Contains(msg, "evaluation failed"),
		strings.Contains(msg, "referenceerror"),
		strings.Contains(msg, "typeerror"):
		return fmt.Errorf("%s: %w: %v", op, driver.ErrScript, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
