// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

// Package xdg locates sessiond files under the XDG base directories.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "sessiond"

// ConfigFileName is the file looked up in ConfigDir when --config is unset.
const ConfigFileName = "config.yaml"

// ConfigDir returns $XDG_CONFIG_HOME/sessiond, falling back to
// ~/.config/sessiond.
func ConfigDir() (string, error) {
	return dir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns $XDG_DATA_HOME/sessiond, falling back to
// ~/.local/share/sessiond.
func DataDir() (string, error) {
	return dir("XDG_DATA_HOME", ".local", "share")
}

func dir(env string, fallback ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return "", oops.Code("XDG_NO_HOME").With("env", env).Errorf("neither %s nor HOME is set", env)
		}
		base = filepath.Join(append([]string{home}, fallback...)...)
	}
	return filepath.Join(base, appName), nil
}

// ConfigFile returns the path of the user config file if one exists, or ""
// when there is none.
func ConfigFile() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		// No home directory means no user config, not a failure.
		return "", nil //nolint:nilerr
	}
	path := filepath.Join(d, ConfigFileName)
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", nil
	case err != nil:
		return "", oops.Code("XDG_STAT_FAILED").With("path", path).Wrap(err)
	case info.IsDir():
		return "", oops.Code("XDG_NOT_A_FILE").With("path", path).Errorf("%s is a directory", path)
	}
	return path, nil
}

// EnsureDir creates path and its parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
