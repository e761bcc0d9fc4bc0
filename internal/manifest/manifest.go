// SPDX-License-Identifier: MPL-2.0

// Package manifest locates and parses package.json files. Only the top-level
// "scripts" mapping is consumed; every other key is ignored. Script order is
// preserved exactly as declared in the file.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the manifest file name looked up during location.
const FileName = "package.json"

// ErrNotFound is returned when no package.json exists in the starting
// directory or any of its ancestors.
var ErrNotFound = errors.New("no package.json found")

type (
	// Script is a single named entry of the manifest's "scripts" mapping.
	Script struct {
		// Name is the script name (the mapping key).
		Name string
		// Command is the shell command string the package manager will run.
		Command string
	}

	// Manifest is the parsed subset of a package.json relevant to running
	// scripts. It is created fresh per invocation and never cached.
	Manifest struct {
		// Path is the absolute path of the package.json file.
		Path string
		// PackageName is the top-level "name" value, or "" when absent.
		PackageName string
		// Scripts holds the "scripts" entries in file declaration order.
		Scripts []Script
	}

	// ParseError wraps a JSON syntax or structure error with the offending
	// file path. The underlying decoder message is reported verbatim.
	ParseError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying decoder error.
func (e *ParseError) Unwrap() error { return e.Err }

// Locate walks from startDir up to the filesystem root and returns the path
// of the nearest package.json. ErrNotFound is returned when no ancestor
// directory contains one.
func Locate(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve start directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// Load reads and parses the package.json at path.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, &ParseError{Path: abs, Err: err}
	}
	m.Path = abs

	return m, nil
}

// Find locates the nearest manifest above startDir and loads it.
func Find(startDir string) (*Manifest, error) {
	path, err := Locate(startDir)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Parse decodes manifest bytes. The "scripts" object is decoded token by
// token because encoding/json maps do not preserve key order, and the
// declaration order is part of the contract: the list presented to the user
// must match the file.
func Parse(data []byte) (*Manifest, error) {
	// Structural validation first so malformed files fail with the decoder's
	// own message rather than a partial token error.
	var probe struct {
		Name    string          `json:"name"`
		Scripts json.RawMessage `json:"scripts"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	m := &Manifest{PackageName: probe.Name}
	if len(probe.Scripts) == 0 || string(probe.Scripts) == "null" {
		return m, nil
	}

	scripts, err := parseScriptsOrdered(probe.Scripts)
	if err != nil {
		return nil, err
	}
	m.Scripts = scripts

	return m, nil
}

// parseScriptsOrdered walks the raw "scripts" object with a token decoder so
// entries come out in file order.
func parseScriptsOrdered(raw json.RawMessage) ([]Script, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("\"scripts\" must be an object, got %v", tok)
	}

	var scripts []Script
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected script key %v", keyTok)
		}

		var command string
		if err := dec.Decode(&command); err != nil {
			return nil, fmt.Errorf("script %q must map to a string: %w", name, err)
		}

		scripts = append(scripts, Script{Name: name, Command: command})
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return scripts, nil
}

// Dir returns the directory containing the manifest. This is the working
// directory scripts run in.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// Names returns the script names in declaration order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Scripts))
	for i, s := range m.Scripts {
		names[i] = s.Name
	}
	return names
}

// Lookup returns the script with the given name, or false when the manifest
// does not declare it.
func (m *Manifest) Lookup(name string) (Script, bool) {
	for _, s := range m.Scripts {
		if s.Name == name {
			return s, true
		}
	}
	return Script{}, false
}

// HasScripts returns whether the manifest declares at least one script.
func (m *Manifest) HasScripts() bool {
	return len(m.Scripts) > 0
}
