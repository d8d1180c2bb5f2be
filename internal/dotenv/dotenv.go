// Package dotenv loads KEY=VALUE files into the process environment.
package dotenv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Load loads each path in order. Variables already set, by the environment
// or by an earlier file, are never overwritten, so earlier paths win.
// Missing files are skipped.
func Load(paths ...string) error {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := LoadFile(p); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile loads KEY=VALUE pairs from a dotenv-style file into the process
// environment. Existing environment variables are preserved.
func LoadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open env file %q: %w", path, err)
	}
	vals, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("parse env file %q: %w", path, err)
	}

	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, vals[key]); err != nil {
			return fmt.Errorf("set env %q from %s: %w", key, path, err)
		}
	}
	return nil
}
