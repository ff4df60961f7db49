//go:build !windows

package browser

import (
	"os/exec"

	"github.com/user/browserkit/internal/logging"
)

// binaryVersion asks the binary for its version. Empty when it cannot tell.
func binaryVersion(path string) string {
	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		logging.Logger.Debugf("Reading version of %s failed: %v", path, err)
		return ""
	}
	return parseVersion(string(out))
}
