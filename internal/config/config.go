// SPDX-License-Identifier: MPL-2.0

// Package config loads npmrun configuration from the platform config
// directory and the environment. All settings are optional; a missing config
// file yields the defaults.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "npmrun"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"
	// EnvPrefix prefixes environment overrides (e.g. NPMRUN_UI_VERBOSE).
	EnvPrefix = "NPMRUN"
)

type (
	// Config is the effective npmrun configuration.
	Config struct {
		UI        UIConfig        `mapstructure:"ui"`
		Runner    RunnerConfig    `mapstructure:"runner"`
		Discovery DiscoveryConfig `mapstructure:"discovery"`
		Watch     WatchConfig     `mapstructure:"watch"`
	}

	// UIConfig controls presentation.
	UIConfig struct {
		// Verbose enables debug diagnostics.
		Verbose bool `mapstructure:"verbose"`
		// Plain forces the plain output sink even on a terminal.
		Plain bool `mapstructure:"plain"`
	}

	// RunnerConfig controls script execution.
	RunnerConfig struct {
		// PackageManager overrides lock-file detection ("npm", "yarn",
		// "pnpm"). Empty means detect.
		PackageManager string `mapstructure:"package_manager"`
		// EnvFiles are dotenv files loaded into every script environment,
		// resolved relative to the manifest directory.
		EnvFiles []string `mapstructure:"env_files"`
		// Env sets individual environment variables for every script.
		Env map[string]string `mapstructure:"env"`
	}

	// DiscoveryConfig controls manifest discovery.
	DiscoveryConfig struct {
		// Ignore lists extra directory names to skip while walking.
		Ignore []string `mapstructure:"ignore"`
	}

	// WatchConfig controls watch mode.
	WatchConfig struct {
		// DebounceMS is the quiet period in milliseconds before a change
		// triggers a re-run. Zero means the built-in default.
		DebounceMS int `mapstructure:"debounce_ms"`
	}

	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific file when set.
		ConfigFilePath string
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// NewProvider creates the production configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(_ context.Context, opts LoadOptions) (*Config, error) {
	return Load(opts)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{}
}

// ConfigDir returns the npmrun configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads the config file and environment overrides into a Config. A
// missing config file is not an error; the defaults apply.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	v.SetConfigType(ConfigFileExt)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFilePath, err)
		}
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfigContent is written by CreateDefaultConfig. Every key is
// commented out so the file documents the available settings without
// changing behavior.
const defaultConfigContent = `# npmrun configuration
#
# Every setting is optional and can also be supplied through environment
# variables with the NPMRUN_ prefix, e.g. NPMRUN_UI_VERBOSE=true.

#ui:
#  verbose: false
#  plain: false

#runner:
#  package_manager: ""   # npm, yarn or pnpm; empty detects from lock files
#  env_files: []         # dotenv files resolved relative to the manifest
#  env: {}               # extra environment variables for every script

#discovery:
#  ignore: []            # extra directory names to skip

#watch:
#  debounce_ms: 500
`

// ConfigFilePath returns the default config file location.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// CreateDefaultConfig writes the commented default config file. An existing
// file is left untouched.
func CreateDefaultConfig() (string, error) {
	path, err := ConfigFilePath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return "", fmt.Errorf("write default config: %w", err)
	}

	return path, nil
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	switch c.Runner.PackageManager {
	case "", "npm", "yarn", "pnpm":
	default:
		return fmt.Errorf("runner.package_manager %q is not one of npm, yarn, pnpm", c.Runner.PackageManager)
	}

	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMS)
	}

	return nil
}
