package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"

	"github.com/user/browserkit/internal/driver"
	"github.com/user/browserkit/internal/remote"
)

// classify wraps a rod error in the sentinel that describes it so callers
// can tell transient and recoverable conditions apart with errors.Is.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *rod.EvalError
	var objErr *rod.ObjectNotFoundError
	var cdpErr *cdp.Error
	var opErr *net.OpError

	switch {
	case errors.As(err, &evalErr):
		return fmt.Errorf("%s: %w: %v", op, driver.ErrScript, err)
	case errors.As(err, &objErr),
		errors.Is(err, cdp.ErrCtxNotFound),
		errors.Is(err, cdp.ErrCtxDestroyed),
		errors.Is(err, cdp.ErrObjNotFound),
		errors.Is(err, cdp.ErrNodeNotFoundAtPos),
		errors.As(err, &cdpErr) && strings.Contains(cdpErr.Message, "find node"):
		return fmt.Errorf("%s: %w: %v", op, driver.ErrStaleElement, err)
	case errors.As(err, &cdpErr) && strings.Contains(strings.ToLower(cdpErr.Message), "dialog"):
		return fmt.Errorf("%s: %w: %v", op, driver.ErrAlertPresent, err)
	case errors.As(err, &cdpErr):
		return fmt.Errorf("%s: %w: %v", op, remote.ErrProtocol, err)
	case errors.As(err, &opErr), errors.Is(err, io.EOF), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %v", op, remote.ErrUnreachable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
