// Package profile inspects and edits browser user-data directories.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/user/browserkit/internal/logging"
)

// Locked reports whether another process holds the profile at dir. A missing
// directory is not locked. The platform's lock marker is checked first; when
// the profile has none, renaming dir onto itself is used as a probe.
func Locked(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("profile %s is not a directory", dir)
	}

	locked, found, err := nativeLocked(dir)
	if found {
		logging.Logger.Debugf("Profile %s lock marker checked: locked=%v err=%v", dir, locked, err)
		return locked, err
	}

	return renameProbe(dir), nil
}

func renameProbe(dir string) bool {
	return os.Rename(dir, dir) != nil
}
