package driver

import (
	"strings"
	"time"

	"github.com/user/browserkit/internal/logging"
)

// Document ready states.
const (
	StateLoading     = "loading"
	StateInteractive = "interactive"
	StateComplete    = "complete"
)

// WaitPageState waits until document.readyState equals state.
func (d *Driver) WaitPageState(state string, timeout time.Duration) (bool, error) {
	return d.poll(timeout, func() (bool, error) {
		current, err := d.sess.ExecuteScript("() => document.readyState")
		if err != nil {
			return false, err
		}
		logging.Logger.Debugf("Page state now: %v. Desired state: %s", current, state)
		return current == state, nil
	})
}

// OpenURL navigates to url and waits for the page to reach state. A failed
// navigation is reported as false, not as an error.
func (d *Driver) OpenURL(url, state string, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	if err := d.sess.Navigate(url, timeout); err != nil {
		logging.Logger.Warnf("Loading %s failed: %v", url, err)
		return false, nil
	}

	loaded, err := d.WaitPageState(state, max(time.Until(deadline), 0))
	if err != nil || !loaded {
		logging.Logger.Debugf("Timeout waiting for %s to reach state %q", url, state)
		return false, err
	}

	title, _ := d.sess.Title()
	logging.Logger.Infof("URL %s loaded, title: %q", url, title)
	return true, nil
}

// WaitExecuteScript runs js until it stops failing with a transient error.
// A script that returns nothing yields true.
func (d *Driver) WaitExecuteScript(js string, timeout time.Duration, args ...any) (any, bool, error) {
	var result any
	ok, err := d.poll(timeout, func() (bool, error) {
		r, err := d.sess.ExecuteScript(js, args...)
		if err != nil {
			return false, err
		}
		if r == nil {
			r = true
		}
		result = r
		return true, nil
	})
	if !ok {
		return nil, false, err
	}
	return result, true, nil
}

// WaitScriptElement runs js until it yields at least one element and returns
// the first.
func (d *Driver) WaitScriptElement(js string, timeout time.Duration, args ...any) (Element, bool, error) {
	var found Element
	ok, err := d.poll(timeout, func() (bool, error) {
		els, err := d.sess.ScriptElements(js, args...)
		if err != nil {
			return false, err
		}
		if len(els) == 0 {
			return false, nil
		}
		found = els[0]
		return true, nil
	})
	if !ok {
		return nil, false, err
	}
	return found, true, nil
}

// WaitFindElement waits for the first element matching the locator. The match
// is logged under the strongest condition it meets: visible, then clickable,
// then merely present.
func (d *Driver) WaitFindElement(by By, selector string, timeout time.Duration) (Element, bool, error) {
	var found Element
	ok, err := d.poll(timeout, func() (bool, error) {
		els, err := d.sess.FindElements(by, selector)
		if err != nil {
			return false, err
		}
		if len(els) == 0 {
			return false, nil
		}

		el := els[0]
		condition := "presence"
		if visible, err := el.Visible(); err == nil && visible {
			condition = "visibility"
		} else if clickable, err := el.Clickable(); err == nil && clickable {
			condition = "clickable"
		}
		logging.Logger.Debugf("Found element %s %q with condition %s", by, selector, condition)

		found = el
		return true, nil
	})
	if !ok {
		return nil, false, err
	}
	return found, true, nil
}

// WaitFindElements waits for at least one element matching the locator.
func (d *Driver) WaitFindElements(by By, selector string, timeout time.Duration) ([]Element, bool, error) {
	var found []Element
	ok, err := d.poll(timeout, func() (bool, error) {
		els, err := d.sess.FindElements(by, selector)
		if err != nil {
			return false, err
		}
		if len(els) == 0 {
			return false, nil
		}

		condition := "visibility of all"
		for _, el := range els {
			if visible, err := el.Visible(); err != nil || !visible {
				condition = "presence of all"
				break
			}
		}
		logging.Logger.Debugf("Found %d elements %s %q with condition %s", len(els), by, selector, condition)

		found = els
		return true, nil
	})
	if !ok {
		return nil, false, err
	}
	return found, true, nil
}

// ScrollDown scrolls to the bottom until the page height stops growing.
func (d *Driver) ScrollDown(scrollSleep, timeout time.Duration) (bool, error) {
	const heightJS = "() => document.body.scrollHeight"

	last, err := d.sess.ExecuteScript(heightJS)
	if err != nil && !IsTransient(err) {
		return false, err
	}

	ok, err := d.pollEvery(timeout, 0, func() (bool, error) {
		if _, err := d.sess.ExecuteScript("() => window.scrollTo(0, document.body.scrollHeight)"); err != nil {
			return false, err
		}

		time.Sleep(scrollSleep)
		if _, err := d.WaitPageState(StateComplete, scrollSleep); err != nil {
			return false, err
		}

		height, err := d.sess.ExecuteScript(heightJS)
		if err != nil {
			return false, err
		}
		if height == last {
			logging.Logger.Debugf("Page height unchanged since last scroll, assuming fully scrolled")
			return true, nil
		}
		last = height
		return false, nil
	})
	if err == nil && !ok {
		logging.Logger.Infof("Timeout scrolling page after %v", timeout)
	}
	return ok, err
}

// stripClick removes a trailing .click() so the script yields the element.
func stripClick(js string) string {
	if strings.Contains(js, ".click()") {
		logging.Logger.Debugf("Script had .click(), removed it")
		return strings.ReplaceAll(js, ".click()", "")
	}
	return js
}
