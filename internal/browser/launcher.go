package browser

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/user/browserkit/internal/logging"
	"github.com/user/browserkit/internal/options"
	"github.com/user/browserkit/internal/profile"
	"github.com/user/browserkit/internal/remote"
)

// Launcher starts Chrome or Edge with remote debugging on a fixed port.
type Launcher struct{}

func (Launcher) Launch(spec remote.LaunchSpec) (string, error) {
	l, err := newLauncher(spec)
	if err != nil {
		return "", err
	}

	opts := spec.Options.Clone()
	if dir := opts.UserDataDir(); dir != "" && len(opts.Prefs) > 0 {
		logging.Logger.Debugf("Writing preferences %v to %s", opts.PrefKeys(), dir)
		if err := profile.WritePreferences(dir, opts.Prefs); err != nil {
			logging.Logger.Warnf("Writing preferences to %s failed: %v", dir, err)
		}
	}

	logging.Logger.Infof("Launching %s on port %d", spec.Bin, spec.Port)
	if _, err := l.Launch(); err != nil {
		return "", fmt.Errorf("launch %s: %w", spec.Bin, err)
	}

	executor := remote.Executor(spec.Port)
	if err := waitReady(executor); err != nil {
		return "", err
	}
	return executor, nil
}

// newLauncher translates the launch spec into launcher flags.
func newLauncher(spec remote.LaunchSpec) (*launcher.Launcher, error) {
	opts := spec.Options.Clone()

	var out io.Writer = io.Discard
	if spec.NewConsole {
		out = os.Stdout
	}

	l := launcher.New().
		Bin(spec.Bin).
		Leakless(!spec.Detached).
		Headless(opts.Headless).
		Logger(out).
		Set(flags.RemoteDebuggingPort, strconv.Itoa(spec.Port)).
		Set("disable-blink-features", "AutomationControlled")

	for _, a := range opts.Args {
		name, value := options.SplitArg(a)
		if name == "headless" {
			l = l.Headless(true)
			continue
		}
		if value == "" {
			l = l.Set(flags.Flag(name))
		} else {
			l = l.Set(flags.Flag(name), strings.Split(value, ",")...)
		}
	}

	for _, sw := range opts.ExcludeSwitches {
		l = l.Delete(flags.Flag(strings.TrimLeft(sw, "-")))
	}

	exts, err := opts.ExtensionPaths()
	if err != nil {
		return nil, fmt.Errorf("extensions: %w", err)
	}
	if len(exts) > 0 {
		l = l.Set("load-extension", exts...)
	}
	return l, nil
}
