package browser

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/user/browserkit/internal/logging"
	"github.com/user/browserkit/internal/remote"
)

var edgePaths = map[string][]string{
	"windows": {
		`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
		`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
	},
	"darwin": {"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"},
	"linux":  {"/usr/bin/microsoft-edge", "/usr/bin/microsoft-edge-stable", "/opt/microsoft/msedge/msedge"},
}

// Resolver finds a Chrome or Edge binary. Chrome falls back to downloading a
// Chromium build when none is installed.
type Resolver struct {
	Family remote.Family
}

// Resolve uses hint when it names an executable file. A directory hint is
// where a downloaded browser is cached.
func (r Resolver) Resolve(hint string) (remote.Resolved, error) {
	path, err := r.find(hint)
	if err != nil {
		return remote.Resolved{}, err
	}

	// An empty version disables the version check on connect.
	v := binaryVersion(path)
	logging.Logger.Infof("Using %s %s", path, v)
	return remote.Resolved{Path: path, Version: v}, nil
}

func (r Resolver) find(hint string) (string, error) {
	if hint != "" {
		if fi, err := os.Stat(hint); err == nil && !fi.IsDir() {
			return hint, nil
		}
	}

	if r.Family == remote.Edge {
		for _, p := range edgePaths[runtime.GOOS] {
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
		if p, err := exec.LookPath("microsoft-edge"); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("microsoft edge not found")
	}

	if p, ok := launcher.LookPath(); ok {
		return p, nil
	}

	logging.Logger.Infof("No local Chrome found, downloading Chromium")
	b := launcher.NewBrowser()
	if hint != "" {
		b.RootDir = hint
	}
	p, err := b.Get()
	if err != nil {
		return "", fmt.Errorf("download chromium: %w", err)
	}
	return p, nil
}

var versionRe = regexp.MustCompile(`\d+(\.\d+)+`)

func parseVersion(s string) string {
	return versionRe.FindString(strings.TrimSpace(s))
}
