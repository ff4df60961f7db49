package driver

import (
	"errors"
	"time"

	"github.com/user/browserkit/internal/logging"
	"github.com/user/browserkit/internal/stealth"
)

// fillRecheck is how often FindAndFill re-reads the field.
const fillRecheck = 50 * time.Millisecond

// ClickElement clicks el from JavaScript, which is the most reliable way, or
// with a native mouse click when jsClick is false.
func (d *Driver) ClickElement(el Element, jsClick bool) error {
	if jsClick {
		_, err := el.Eval("(el) => el.click()")
		return err
	}
	return el.Click()
}

// find resolves t within timeout.
func (d *Driver) find(t Target, timeout time.Duration) (Element, bool, error) {
	switch {
	case t.By != "" && t.Selector != "":
		return d.WaitFindElement(t.By, t.Selector, timeout)
	case t.Script != "":
		return d.WaitScriptElement(t.Script, timeout)
	}
	return nil, false, ErrNoTarget
}

// FindAndClick waits for t and clicks it. A trailing .click() in a target
// script is dropped so the script yields the element itself.
func (d *Driver) FindAndClick(t Target, timeout time.Duration, jsClick bool) (bool, error) {
	t.Script = stripClick(t.Script)

	el, ok, err := d.find(t, timeout)
	if err != nil {
		return false, err
	}
	if !ok {
		logging.Logger.Debugf("Element was not found to be clicked")
		return false, nil
	}

	logging.Logger.Debugf("Element found, clicking...")
	if err := d.ClickElement(el, jsClick); err != nil {
		logging.Logger.Errorf("Clicking element failed: %v", err)
		return false, nil
	}
	return true, nil
}

type FillOptions struct {
	ClearBeforeFill bool
	TabAfterFill    bool
	// Human types one character at a time with random pauses.
	Human bool
}

func DefaultFillOptions() FillOptions {
	return FillOptions{ClearBeforeFill: true, TabAfterFill: true}
}

// FillElement waits for el to stop being read-only and types text into it.
// A stale element ends the attempt with false.
func (d *Driver) FillElement(el Element, text string, timeout time.Duration, opts FillOptions) (bool, error) {
	stale := false
	ok, err := d.poll(timeout, func() (bool, error) {
		readonly, err := el.Attribute("readonly")
		if errors.Is(err, ErrStaleElement) {
			stale = true
			return false, errStop
		}
		if err != nil {
			logging.Logger.Debugf("Reading readonly attribute failed: %v", err)
			return false, nil
		}
		if readonly != nil {
			logging.Logger.Debugf("Element is read-only, waiting")
			return false, nil
		}

		if err := d.fill(el, text, opts); err != nil {
			logging.Logger.Debugf("Filling element failed: %v", err)
			return false, nil
		}
		return true, nil
	})
	if stale {
		logging.Logger.Debugf("Element became stale")
		return false, nil
	}
	return ok, err
}

var errStop = errors.New("stop polling")

func (d *Driver) fill(el Element, text string, opts FillOptions) error {
	logging.Logger.Debugf("Filling element with %q", text)

	if err := el.Focus(); err != nil {
		return err
	}

	if opts.ClearBeforeFill {
		if err := el.Clear(); err != nil {
			return err
		}
		if _, err := el.Eval("(el) => { el.value = '' }"); err != nil {
			return err
		}
		for i := 0; i < len(text)*2; i++ {
			if err := el.Press(KeyBackspace); err != nil {
				return err
			}
			if err := el.Press(KeyDelete); err != nil {
				return err
			}
		}
	}

	var err error
	if opts.Human {
		err = stealth.TypeHuman(el, text)
	} else {
		err = el.Type(text)
	}
	if err != nil {
		return err
	}

	if opts.TabAfterFill {
		return el.Press(KeyTab)
	}
	return nil
}

// FindAndFill keeps locating t and filling it until its value or text reads
// back as text. This survives fields that are re-rendered mid-fill.
func (d *Driver) FindAndFill(t Target, text string, timeout time.Duration, opts FillOptions) (bool, error) {
	if t.Script == "" && (t.By == "" || t.Selector == "") {
		return false, ErrNoTarget
	}

	return d.pollEvery(timeout, fillRecheck, func() (bool, error) {
		el, ok, err := d.find(t, 0)
		if err != nil {
			return false, err
		}
		if !ok {
			logging.Logger.Debugf("Could not find the element, trying again")
			return false, nil
		}

		value, _ := el.Value()
		shown, _ := el.Text()
		if value == text || shown == text {
			logging.Logger.Debugf("Element successfully filled with %q", text)
			return true, nil
		}
		logging.Logger.Debugf("Element has value=%q text=%q", value, shown)

		if _, err := d.FillElement(el, text, 0, opts); err != nil {
			return false, err
		}
		return false, nil
	})
}
