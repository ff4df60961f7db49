// Package handle persists the {command_executor, session_id} pair that lets a
// later run re-attach to a browser started by an earlier one.
package handle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/browserkit/internal/logging"
)

type Handle struct {
	CommandExecutor string `json:"command_executor,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
}

// Empty reports whether either half of the handle is missing.
func (h Handle) Empty() bool {
	return h.CommandExecutor == "" || h.SessionID == ""
}

// EnsureExists writes an empty handle to path if nothing is there yet.
func EnsureExists(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	logging.Logger.Infof("Handle file %s does not exist, creating it", path)
	return Save(path, Handle{})
}

// Load reads the handle at path. A missing, unreadable or corrupt file yields
// an empty handle.
func Load(path string) Handle {
	var h Handle

	data, err := os.ReadFile(path)
	if err != nil {
		logging.Logger.Debugf("Handle file %s unreadable: %v", path, err)
		return Handle{}
	}
	if err := json.Unmarshal(data, &h); err != nil {
		logging.Logger.Debugf("Handle file %s is not valid JSON, treating as empty: %v", path, err)
		return Handle{}
	}

	logging.Logger.Debugf("Handle file %s loaded: %+v", path, h)
	return h
}

// Save overwrites path with h, pretty-printed. The write goes through a temp
// file in the same directory so readers never see a partial document.
func Save(path string, h Handle) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create handle dir: %w", err)
	}

	data, err := json.MarshalIndent(h, "", "    ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp handle file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write handle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace handle file: %w", err)
	}
	return nil
}
