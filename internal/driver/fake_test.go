package driver

import (
	"strings"
	"time"
)

type fakeSession struct {
	scripts   map[string]func() (any, error)
	url       string
	title     string
	navigated []string
	navErr    error
	navDelay  time.Duration

	find      func(by By, selector string) ([]Element, error)
	scriptEls func(js string) ([]Element, error)

	userAgent   string
	uaErr       error
	newDocument []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		scripts: map[string]func() (any, error){
			"() => document.readyState": func() (any, error) { return StateComplete, nil },
		},
		url: "about:blank",
	}
}

// sequence returns each value in turn and then keeps returning the last one.
func sequence(values ...any) func() (any, error) {
	i := 0
	return func() (any, error) {
		v := values[min(i, len(values)-1)]
		i++
		if err, ok := v.(error); ok {
			return nil, err
		}
		return v, nil
	}
}

func (s *fakeSession) ExecuteScript(js string, args ...any) (any, error) {
	if fn, ok := s.scripts[js]; ok {
		return fn()
	}
	return nil, nil
}

func (s *fakeSession) ScriptElements(js string, args ...any) ([]Element, error) {
	if s.scriptEls == nil {
		return nil, nil
	}
	return s.scriptEls(js)
}

func (s *fakeSession) Navigate(url string, timeout time.Duration) error {
	if s.navErr != nil {
		return s.navErr
	}
	time.Sleep(s.navDelay)
	s.navigated = append(s.navigated, url)
	s.url = url
	return nil
}

func (s *fakeSession) URL() (string, error)   { return s.url, nil }
func (s *fakeSession) Title() (string, error) { return s.title, nil }

func (s *fakeSession) FindElements(by By, selector string) ([]Element, error) {
	if s.find == nil {
		return nil, nil
	}
	return s.find(by, selector)
}

func (s *fakeSession) SetUserAgent(ua string) error {
	if s.uaErr != nil {
		return s.uaErr
	}
	s.userAgent = ua
	return nil
}

func (s *fakeSession) AddScriptToNewDocument(js string) error {
	s.newDocument = append(s.newDocument, js)
	return nil
}

type fakeElement struct {
	visible   bool
	clickable bool
	readonly  *string
	attrErr   error

	value string
	text  string

	typed    []string
	pressed  []Key
	clicks   int
	jsClicks int
	evals    []string
	files    []string
	input    *fakeElement
	focusErr error
}

func (e *fakeElement) Visible() (bool, error)   { return e.visible, nil }
func (e *fakeElement) Clickable() (bool, error) { return e.clickable, nil }

func (e *fakeElement) Click() error {
	e.clicks++
	return nil
}

func (e *fakeElement) Eval(js string) (any, error) {
	e.evals = append(e.evals, js)
	switch {
	case strings.Contains(js, "el.click()"):
		e.jsClicks++
	case strings.Contains(js, "el.value = ''"):
		e.value = ""
	}
	return nil, nil
}

func (e *fakeElement) EvalElement(js string) (Element, error) {
	e.evals = append(e.evals, js)
	e.input = &fakeElement{}
	return e.input, nil
}

func (e *fakeElement) Attribute(name string) (*string, error) {
	if e.attrErr != nil {
		return nil, e.attrErr
	}
	if name == "readonly" {
		return e.readonly, nil
	}
	return nil, nil
}

func (e *fakeElement) Value() (string, error) { return e.value, nil }
func (e *fakeElement) Text() (string, error)  { return e.text, nil }
func (e *fakeElement) Focus() error           { return e.focusErr }

func (e *fakeElement) Clear() error {
	e.value = ""
	return nil
}

func (e *fakeElement) Type(text string) error {
	e.typed = append(e.typed, text)
	e.value += text
	return nil
}

func (e *fakeElement) Press(key Key) error {
	e.pressed = append(e.pressed, key)
	return nil
}

func (e *fakeElement) SetFiles(paths []string) error {
	e.files = append(e.files, paths...)
	return nil
}
