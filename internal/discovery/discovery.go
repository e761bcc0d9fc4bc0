// SPDX-License-Identifier: MPL-2.0

// Package discovery enumerates every package.json under a project root.
// It backs `list --all` and the picker for workspaces that hold several
// packages. A manifest that fails to parse is reported alongside the valid
// ones rather than aborting the walk.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"npmrun-cli/internal/manifest"
)

// defaultIgnoreDirs are directory names never descended into. They cover
// dependency trees and VCS metadata that would dominate the walk.
var defaultIgnoreDirs = []string{
	"node_modules",
	".git",
	".hg",
	".svn",
	"bower_components",
}

type (
	// DiscoveredManifest is one package.json found during a walk. Err is
	// set when the file exists but could not be parsed; Manifest is nil in
	// that case.
	DiscoveredManifest struct {
		// Path is the absolute path of the package.json.
		Path string
		// Manifest is the parsed content, nil on parse failure.
		Manifest *manifest.Manifest
		// Err holds the load error, if any.
		Err error
	}

	// Discovery walks project trees for manifests.
	Discovery struct {
		// IgnoreDirs are directory names to skip in addition to the
		// defaults.
		IgnoreDirs []string
		// Logger enables verbose diagnostics.
		Logger *log.Logger
	}
)

// New creates a Discovery with the default ignore set.
func New() *Discovery {
	return &Discovery{}
}

// DiscoverAll walks root and returns every package.json beneath it in
// lexical path order. Parse failures are carried per entry; only a failure
// to walk the tree itself is an error.
func (d *Discovery) DiscoverAll(root string) ([]*DiscoveredManifest, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	ignore := make(map[string]bool, len(defaultIgnoreDirs)+len(d.IgnoreDirs))
	for _, name := range defaultIgnoreDirs {
		ignore[name] = true
	}
	for _, name := range d.IgnoreDirs {
		ignore[name] = true
	}

	var found []*DiscoveredManifest
	walkErr := filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal: the rest of the
			// project may still hold manifests.
			if d.Logger != nil {
				d.Logger.Debug("skipping unreadable path", "path", path, "err", err)
			}
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if path != absRoot && ignore[entry.Name()] {
				return fs.SkipDir
			}
			return nil
		}

		if entry.Name() != manifest.FileName {
			return nil
		}

		dm := &DiscoveredManifest{Path: path}
		dm.Manifest, dm.Err = manifest.Load(path)
		found = append(found, dm)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, walkErr)
	}

	return found, nil
}

// Valid filters a discovery result down to the manifests that parsed and
// declare at least one script.
func Valid(all []*DiscoveredManifest) []*manifest.Manifest {
	var out []*manifest.Manifest
	for _, dm := range all {
		if dm.Err == nil && dm.Manifest != nil && dm.Manifest.HasScripts() {
			out = append(out, dm.Manifest)
		}
	}
	return out
}

// RelPath renders a discovered path relative to root for display, falling
// back to the absolute path.
func RelPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}

// ProjectRoot resolves the directory discovery starts from: an explicit dir
// when given, the working directory otherwise.
func ProjectRoot(dir string) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return wd, nil
}
