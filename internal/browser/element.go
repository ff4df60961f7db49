package browser

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/user/browserkit/internal/driver"
)

var keys = map[driver.Key]input.Key{
	driver.KeyTab:       input.Tab,
	driver.KeyEnter:     input.Enter,
	driver.KeyBackspace: input.Backspace,
	driver.KeyDelete:    input.Delete,
}

type element struct {
	el *rod.Element
}

func wrapElements(els rod.Elements) []driver.Element {
	out := make([]driver.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el}
	}
	return out
}

func (e *element) Visible() (bool, error) {
	ok, err := e.el.Visible()
	return ok, classify("visible", err)
}

// Clickable reports whether the element is visible and enabled.
func (e *element) Clickable() (bool, error) {
	visible, err := e.Visible()
	if err != nil || !visible {
		return false, err
	}
	disabled, err := e.el.Disabled()
	if err != nil {
		return false, classify("disabled", err)
	}
	return !disabled, nil
}

func (e *element) Click() error {
	return classify("click", e.el.Click(proto.InputMouseButtonLeft, 1))
}

func (e *element) Eval(js string) (any, error) {
	res, err := e.el.Eval(js, e.el.Object)
	if err != nil {
		return nil, classify("element script", err)
	}
	return value(res.Value), nil
}

func (e *element) EvalElement(js string) (driver.Element, error) {
	el, err := e.el.ElementByJS(rod.Eval(js, e.el.Object))
	if err != nil {
		return nil, classify("element script", err)
	}
	return &element{el: el}, nil
}

func (e *element) Attribute(name string) (*string, error) {
	v, err := e.el.Attribute(name)
	return v, classify("attribute "+name, err)
}

func (e *element) Value() (string, error) {
	v, err := e.el.Property("value")
	if err != nil {
		return "", classify("value", err)
	}
	return v.Str(), nil
}

func (e *element) Text() (string, error) {
	s, err := e.el.Text()
	return s, classify("text", err)
}

func (e *element) Focus() error {
	return classify("focus", e.el.Focus())
}

func (e *element) Clear() error {
	if err := e.el.SelectAllText(); err != nil {
		return classify("clear", err)
	}
	return classify("clear", e.el.Type(input.Backspace))
}

func (e *element) Type(text string) error {
	return classify("type", e.el.Input(text))
}

func (e *element) Press(key driver.Key) error {
	return classify("press", e.el.Type(keys[key]))
}

func (e *element) SetFiles(paths []string) error {
	return classify("set files", e.el.SetFiles(paths))
}
