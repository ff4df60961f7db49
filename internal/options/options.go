// Package options holds browser launch options: command-line switches,
// profile preferences, switches to drop from the launcher defaults and
// extensions to load.
package options

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const UserDataDirArg = "user-data-dir"

type Options struct {
	// Args are switches without leading dashes, "name" or "name=value".
	Args []string `yaml:"arguments"`
	// Prefs are profile preferences keyed by dotted path
	// (Chromium "download.default_directory", Firefox "browser.download.dir").
	Prefs           map[string]any `yaml:"preferences"`
	ExcludeSwitches []string       `yaml:"exclude_switches"`
	// Extensions are unpacked extension directories or folders containing them.
	Extensions []string `yaml:"extensions"`
	Headless   bool     `yaml:"headless"`
}

// LoadFile reads options from a YAML document.
func LoadFile(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var o Options
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse options %s: %w", path, err)
	}
	return &o, nil
}

// Clone returns a deep copy. A nil receiver clones to an empty Options.
func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}

	c := &Options{
		Args:            append([]string(nil), o.Args...),
		ExcludeSwitches: append([]string(nil), o.ExcludeSwitches...),
		Extensions:      append([]string(nil), o.Extensions...),
		Headless:        o.Headless,
	}
	if o.Prefs != nil {
		c.Prefs = make(map[string]any, len(o.Prefs))
		for k, v := range o.Prefs {
			c.Prefs[k] = v
		}
	}
	return c
}

// SplitArg splits "--name=value" into its name and value.
func SplitArg(arg string) (name, value string) {
	arg = strings.TrimLeft(arg, "-")
	name, value, _ = strings.Cut(arg, "=")
	return name, value
}

// Arg returns the value of the first switch called name.
func (o *Options) Arg(name string) (string, bool) {
	if o == nil {
		return "", false
	}
	for _, a := range o.Args {
		if n, v := SplitArg(a); n == name {
			return v, true
		}
	}
	return "", false
}

func (o *Options) UserDataDir() string {
	dir, _ := o.Arg(UserDataDirArg)
	return dir
}

// WithoutArg returns a copy with every switch called name removed.
func (o *Options) WithoutArg(name string) *Options {
	c := o.Clone()
	kept := c.Args[:0]
	for _, a := range c.Args {
		if n, _ := SplitArg(a); n != name {
			kept = append(kept, a)
		}
	}
	c.Args = kept
	return c
}

// ExtensionPaths expands directory entries that hold several extensions into
// one path per extension. A directory with a manifest.json is itself an
// extension.
func (o *Options) ExtensionPaths() ([]string, error) {
	if o == nil {
		return nil, nil
	}

	var out []string
	for _, ext := range o.Extensions {
		info, err := os.Stat(ext)
		if err != nil {
			return nil, fmt.Errorf("extension %s: %w", ext, err)
		}
		if !info.IsDir() {
			out = append(out, ext)
			continue
		}
		if _, err := os.Stat(filepath.Join(ext, "manifest.json")); err == nil {
			out = append(out, ext)
			continue
		}

		entries, err := os.ReadDir(ext)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			out = append(out, filepath.Join(ext, e.Name()))
		}
	}
	return out, nil
}

// PrefKeys returns the preference keys in a stable order.
func (o *Options) PrefKeys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, 0, len(o.Prefs))
	for k := range o.Prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
