//go:build windows

package browser

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/user/browserkit/internal/logging"
)

// binaryVersion reads the file version resource of the executable. Running
// chrome.exe or msedge.exe with --version starts a browser instead of
// printing one.
func binaryVersion(path string) string {
	size, err := windows.GetFileVersionInfoSize(path, nil)
	if err != nil || size == 0 {
		logging.Logger.Debugf("Reading version of %s failed: %v", path, err)
		return ""
	}

	buf := make([]byte, size)
	if err := windows.GetFileVersionInfo(path, 0, size, unsafe.Pointer(&buf[0])); err != nil {
		logging.Logger.Debugf("Reading version of %s failed: %v", path, err)
		return ""
	}

	var fixed *windows.VS_FIXEDFILEINFO
	var n uint32
	if err := windows.VerQueryValue(unsafe.Pointer(&buf[0]), `\`, unsafe.Pointer(&fixed), &n); err != nil || fixed == nil {
		logging.Logger.Debugf("Reading version of %s failed: %v", path, err)
		return ""
	}

	return fmt.Sprintf("%d.%d.%d.%d",
		fixed.FileVersionMS>>16, fixed.FileVersionMS&0xffff,
		fixed.FileVersionLS>>16, fixed.FileVersionLS&0xffff)
}
