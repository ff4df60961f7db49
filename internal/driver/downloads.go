package driver

import (
	"fmt"
	"time"

	"github.com/user/browserkit/internal/logging"
)

const DownloadsURL = "chrome://downloads/"

// downloadPageTimeout bounds loading the downloads page on each poll.
const downloadPageTimeout = 10 * time.Second

const downloadProgressJS = `() => {
	const manager = document.querySelector('downloads-manager');
	if (!manager) return null;
	const items = manager.shadowRoot.querySelectorAll('downloads-item');
	const out = [];
	for (const item of items) {
		const bar = item.shadowRoot.getElementById('progress');
		out.push(bar ? bar.value : null);
	}
	return out;
}`

// Progress is one entry of the browser's download list.
type Progress struct {
	Done    bool
	Percent float64
}

func (p Progress) String() string {
	if p.Done {
		return "done"
	}
	return fmt.Sprintf("%.0f%%", p.Percent)
}

// DownloadProgress opens the downloads page and reads every entry. ok is
// false when the page did not load within timeout or has no download list.
func (d *Driver) DownloadProgress(timeout time.Duration) ([]Progress, bool, error) {
	loaded, err := d.OpenURL(DownloadsURL, StateComplete, timeout)
	if err != nil || !loaded {
		logging.Logger.Debugf("Downloads page did not load in time")
		return nil, false, err
	}

	raw, err := d.sess.ExecuteScript(downloadProgressJS)
	if err != nil {
		return nil, false, err
	}
	return parseProgress(raw)
}

func parseProgress(raw any) ([]Progress, bool, error) {
	if raw == nil {
		logging.Logger.Debugf("Downloads page has no download list")
		return nil, false, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, false, fmt.Errorf("unexpected download list %T", raw)
	}

	out := make([]Progress, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case nil:
			out = append(out, Progress{Done: true})
		case float64:
			out = append(out, Progress{Percent: v})
		case int:
			out = append(out, Progress{Percent: float64(v)})
		default:
			return nil, false, fmt.Errorf("unexpected download entry %T", it)
		}
	}
	return out, true, nil
}

// WaitAllDownloadsEnd waits until every download has finished. The page that
// was open before the call is restored on every outcome.
func (d *Driver) WaitAllDownloadsEnd(timeout time.Duration) (bool, error) {
	before, err := d.sess.URL()
	if err != nil && !IsTransient(err) {
		return false, err
	}
	defer func() {
		if before == "" {
			return
		}
		if _, err := d.OpenURL(before, StateComplete, downloadPageTimeout); err != nil {
			logging.Logger.Warnf("Restoring %s failed: %v", before, err)
		}
	}()

	deadline := time.Now().Add(timeout)
	ok, err := d.poll(timeout, func() (bool, error) {
		pageTimeout := min(downloadPageTimeout, time.Until(deadline))
		progress, read, err := d.DownloadProgress(max(pageTimeout, 0))
		if err != nil {
			return false, err
		}
		if !read {
			return false, nil
		}

		for _, p := range progress {
			if !p.Done {
				logging.Logger.Debugf("Downloads still running: %v", progress)
				return false, nil
			}
		}
		return true, nil
	})
	if err == nil && !ok {
		logging.Logger.Debugf("Timeout after %v waiting for downloads", timeout)
	}
	return ok, err
}

const dropFileJS = `(target) => {
	const doc = target.ownerDocument || document;
	const win = doc.defaultView || window;
	const input = doc.createElement('INPUT');
	input.type = 'file';
	input.onchange = function () {
		const rect = target.getBoundingClientRect();
		const x = rect.left + (rect.width >> 1);
		const y = rect.top + (rect.height >> 1);
		const dataTransfer = { files: this.files };
		['dragenter', 'dragover', 'drop'].forEach(function (name) {
			const evt = doc.createEvent('MouseEvent');
			evt.initMouseEvent(name, true, true, win, 0, 0, 0, x, y, false, false, false, false, 0, null);
			evt.dataTransfer = dataTransfer;
			target.dispatchEvent(evt);
		});
		setTimeout(function () { doc.body.removeChild(input); }, 25);
	};
	doc.body.appendChild(input);
	return input;
}`

// DragAndDropFile drops the file at path onto target through a hidden file
// input that replays the drag events.
func (d *Driver) DragAndDropFile(target Element, path string) error {
	input, err := target.EvalElement(dropFileJS)
	if err != nil {
		return fmt.Errorf("create drop input: %w", err)
	}
	return input.SetFiles([]string{path})
}
