//go:build unix

package profile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

func nativeLocked(dir string) (locked, found bool, err error) {
	// Chromium: SingletonLock -> "<hostname>-<pid>"
	if target, err := os.Readlink(filepath.Join(dir, "SingletonLock")); err == nil {
		return singletonHeld(target), true, nil
	}

	// Firefox: fcntl lock on parent.lock (.parentlock on macOS)
	for _, name := range []string{"parent.lock", ".parentlock"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			locked, err := fcntlHeld(path)
			return locked, true, err
		}
	}

	return false, false, nil
}

func singletonHeld(target string) bool {
	i := strings.LastIndex(target, "-")
	if i < 0 {
		return true
	}
	host, pidText := target[:i], target[i+1:]

	if h, err := os.Hostname(); err == nil && h != host {
		return true
	}

	pid, err := strconv.ParseInt(pidText, 10, 32)
	if err != nil {
		return true
	}
	alive, err := process.PidExists(int32(pid))
	if err != nil {
		return true
	}
	return alive
}

func fcntlHeld(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return false, err
	}
	defer f.Close()

	lk := unix.Flock_t{Type: unix.F_WRLCK}
	if err := unix.FcntlFlock(f.Fd(), unix.F_GETLK, &lk); err != nil {
		return false, err
	}
	return lk.Type != unix.F_UNLCK, nil
}
