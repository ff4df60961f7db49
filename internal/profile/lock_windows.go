//go:build windows

package profile

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// Chromium keeps "lockfile" and Firefox "parent.lock" open without sharing
// while the profile is in use.
func nativeLocked(dir string) (locked, found bool, err error) {
	for _, name := range []string{"lockfile", "parent.lock"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		p, err := windows.UTF16PtrFromString(path)
		if err != nil {
			return false, true, err
		}
		h, err := windows.CreateFile(p, windows.GENERIC_READ, 0, nil, windows.OPEN_EXISTING, windows.FILE_ATTRIBUTE_NORMAL, 0)
		if err == nil {
			windows.CloseHandle(h)
			return false, true, nil
		}
		if errors.Is(err, windows.ERROR_SHARING_VIOLATION) {
			return true, true, nil
		}
		return false, true, err
	}

	return false, false, nil
}
