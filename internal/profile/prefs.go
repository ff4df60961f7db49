package profile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/user/browserkit/internal/logging"
)

// PreferencesPath is where Chromium keeps the default profile's preferences.
func PreferencesPath(dir string) string {
	return filepath.Join(dir, "Default", "Preferences")
}

// WritePreferences merges prefs, keyed by dotted path, into the Chromium
// profile at dir. A profile left behind by a killed browser is marked as
// cleanly exited so the next launch skips the restore prompt.
func WritePreferences(dir string, prefs map[string]any) error {
	path := PreferencesPath(dir)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) || len(data) == 0 || (err == nil && !gjson.ValidBytes(data)) {
		data, err = []byte("{}"), nil
	}
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		data, err = sjson.SetBytes(data, k, prefs[k])
		if err != nil {
			return err
		}
	}

	if gjson.GetBytes(data, "profile.exit_type").String() == "Crashed" {
		logging.Logger.Debugf("Profile %s was not shut down cleanly, resetting exit type", dir)
		if data, err = sjson.SetBytes(data, "profile.exit_type", "Normal"); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Preference reads one dotted-path preference from the profile at dir.
func Preference(dir, key string) gjson.Result {
	data, err := os.ReadFile(PreferencesPath(dir))
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(data, key)
}
