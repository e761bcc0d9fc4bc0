// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"os"
	"path/filepath"
)

// PackageManager identifies the tool used to run scripts.
type PackageManager string

const (
	// Npm is the default package manager.
	Npm PackageManager = "npm"
	// Yarn is selected when a yarn.lock is present.
	Yarn PackageManager = "yarn"
	// Pnpm is selected when a pnpm-lock.yaml is present.
	Pnpm PackageManager = "pnpm"
)

// Lock file names, in detection precedence order.
const (
	NpmLockFile  = "package-lock.json"
	YarnLockFile = "yarn.lock"
	PnpmLockFile = "pnpm-lock.yaml"
)

// String returns the executable name of the package manager.
func (pm PackageManager) String() string { return string(pm) }

// IsValid reports whether pm is one of the known package managers.
func (pm PackageManager) IsValid() bool {
	switch pm {
	case Npm, Yarn, Pnpm:
		return true
	default:
		return false
	}
}

// DetectPackageManager inspects dir for a lock file and returns the matching
// package manager. Precedence follows the lock file list: npm, then yarn,
// then pnpm. Directories without any lock file default to npm, mirroring how
// a user would run the script by hand.
func DetectPackageManager(dir string) PackageManager {
	checks := []struct {
		lock string
		pm   PackageManager
	}{
		{NpmLockFile, Npm},
		{YarnLockFile, Yarn},
		{PnpmLockFile, Pnpm},
	}

	for _, c := range checks {
		if info, err := os.Stat(filepath.Join(dir, c.lock)); err == nil && !info.IsDir() {
			return c.pm
		}
	}

	return Npm
}

// PackageManagerFor resolves the package manager for a manifest, honoring an
// explicit override first (flag or config), then lock file detection in the
// manifest's directory.
func PackageManagerFor(m *Manifest, override PackageManager) PackageManager {
	if override != "" {
		return override
	}
	return DetectPackageManager(m.Dir())
}
