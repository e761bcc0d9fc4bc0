// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// buildEnv assembles the child environment: the parent environment
// unmodified, then dotenv files in the order given, then explicit overrides.
// Later sources win for duplicate keys.
func buildEnv(inv *Invocation) ([]string, error) {
	env := os.Environ()

	extra := make(map[string]string)
	for _, file := range inv.EnvFiles {
		vars, err := loadEnvFile(file, inv.Manifest.Dir())
		if err != nil {
			return nil, err
		}
		for k, v := range vars {
			extra[k] = v
		}
	}
	for k, v := range inv.ExtraEnv {
		extra[k] = v
	}

	if len(extra) == 0 {
		return env, nil
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env = removeKeys(env, extra)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}

	return env, nil
}

// loadEnvFile parses a dotenv file. Relative paths are resolved against the
// manifest directory so env files travel with the project.
func loadEnvFile(path, baseDir string) (map[string]string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(baseDir, filepath.FromSlash(path))
	}

	vars, err := godotenv.Read(full)
	if err != nil {
		return nil, fmt.Errorf("load env file %s: %w", path, err)
	}

	return vars, nil
}

// removeKeys drops entries whose key is about to be overridden, keeping the
// original ordering of the remainder.
func removeKeys(env []string, override map[string]string) []string {
	kept := env[:0]
	for _, kv := range env {
		key, _, ok := strings.Cut(kv, "=")
		if ok {
			if _, overridden := override[key]; overridden {
				continue
			}
		}
		kept = append(kept, kv)
	}
	return kept
}
