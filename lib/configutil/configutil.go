package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/adrg/xdg"
	"github.com/titanous/json5"
)

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// ReadConfig reads a configuration file, `name` should come with a file
// extension, it is lopped off to produce the name of the local override.
// The following files are merged, where higher number is more prioritized.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// It returns os.ErrNotExist when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	allNotFound := true

	dirname := filepath.Dir(name)
	basename := filepath.Base(name)
	prefixname, ext := splitExt(basename)

	defaultFile, err := os.ReadFile(name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, err
	}
	if len(defaultFile) > 0 {
		err = json5.Unmarshal(defaultFile, &out)
		if err != nil {
			return out, err
		}
		allNotFound = false
	}

	localFilepath := filepath.Join(
		dirname,
		fmt.Sprintf("%s.local.%s", prefixname, ext),
	)
	localFile, err := os.ReadFile(localFilepath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, err
	}
	if len(localFile) > 0 {
		var override T
		err = json5.Unmarshal(localFile, &override)
		if err != nil {
			return out, err
		}
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localFilepath)
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}

	return out, nil
}

// ReadRecursively is ReadConfig, but it goes up the filesystem from dir
// until the root to find a configuration file matching the name.
func ReadRecursively[T any](dir, name string) (T, error) {
	var defaultOut T

	current, err := filepath.Abs(dir)
	if err != nil {
		return defaultOut, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return defaultOut, err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return defaultOut, os.ErrNotExist
		}
		current = parent
	}
}

// Lookup reads the configuration for app. An explicit path is read as is and
// must exist, otherwise the working directory and its parents are searched
// before the user configuration directory ($XDG_CONFIG_HOME/<app>/<name>).
func Lookup[T any](explicit, app, name string) (T, error) {
	if explicit != "" {
		return ReadConfig[T](explicit)
	}

	wd, err := os.Getwd()
	if err != nil {
		var out T
		return out, err
	}
	config, err := ReadRecursively[T](wd, name)
	if !errors.Is(err, os.ErrNotExist) {
		return config, err
	}

	return ReadConfig[T](filepath.Join(xdg.ConfigHome, app, name))
}
