// Package configutil reads json5 configuration files with optional local
// overrides.
package configutil

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Defaulter is implemented by configs that complete themselves once every
// file was merged. dir is the directory of the config file.
type Defaulter interface {
	ApplyDefaults(dir string)
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// layers are the files ReadConfig merges, lowest priority first:
// <name>.<ext> then <name>.local.<ext>.
func layers(name string) []string {
	prefix, ext := splitExt(filepath.Base(name))
	return []string{
		name,
		filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext)),
	}
}

// readLayer decodes one file, ok is false when it is missing or blank.
func readLayer[T any](path string) (layer T, ok bool, err error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return layer, false, nil
	}
	if err != nil {
		return layer, false, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return layer, false, nil
	}
	err = json5.Unmarshal(raw, &layer)
	if err != nil {
		return layer, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return layer, true, nil
}

// ReadConfig reads the config file at name, which must carry an extension,
// and merges the local override next to it on top, so "salesledger.json5" is
// overridden by "salesledger.local.json5". When *T is a Defaulter its defaults
// are applied after the merge.
//
// It returns os.ErrNotExist when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := false
	for i, path := range layers(name) {
		layer, ok, err := readLayer[T](path)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		err = mergo.Merge(&out, layer, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", path, err)
		}
		if i > 0 {
			slog.Info("merging config with local overrides", "local", path)
		}
		found = true
	}
	if !found {
		return out, os.ErrNotExist
	}

	if d, ok := any(&out).(Defaulter); ok {
		d.ApplyDefaults(filepath.Dir(name))
	}
	return out, nil
}
