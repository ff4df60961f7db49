//go:build !unix && !windows

package profile

func nativeLocked(dir string) (locked, found bool, err error) {
	return false, false, nil
}
