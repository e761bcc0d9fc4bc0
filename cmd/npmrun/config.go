// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"npmrun-cli/internal/config"
)

// configCmd is the `npmrun config` command tree.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage npmrun configuration",
	Long: `Manage npmrun configuration.

Configuration is stored in:
  - Linux: ~/.config/npmrun/config.yaml
  - macOS: ~/Library/Application Support/npmrun/config.yaml
  - Windows: %APPDATA%\npmrun\config.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return showConfig()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return err
			}
			fmt.Printf("%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.ConfigFilePath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	})
}

func showConfig() error {
	keyStyle := CommandStyle
	valueStyle := SuccessStyle

	fmt.Println(TitleStyle.Render("Current Configuration"))
	fmt.Println()

	path, err := config.ConfigFilePath()
	if err == nil && fileExists(path) {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Println()

	fmt.Printf("%s:\n", keyStyle.Render("ui"))
	fmt.Printf("  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))
	fmt.Printf("  plain: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Plain)))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("runner"))
	pm := cfg.Runner.PackageManager
	if pm == "" {
		pm = "(detect from lock file)"
	}
	fmt.Printf("  package_manager: %s\n", valueStyle.Render(pm))
	if len(cfg.Runner.EnvFiles) == 0 {
		fmt.Printf("  env_files: %s\n", SubtitleStyle.Render("(none)"))
	} else {
		fmt.Printf("  env_files: %s\n", valueStyle.Render(strings.Join(cfg.Runner.EnvFiles, ", ")))
	}
	if len(cfg.Runner.Env) == 0 {
		fmt.Printf("  env: %s\n", SubtitleStyle.Render("(none)"))
	} else {
		keys := make([]string, 0, len(cfg.Runner.Env))
		for k := range cfg.Runner.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println("  env:")
		for _, k := range keys {
			fmt.Printf("    %s=%s\n", k, valueStyle.Render(cfg.Runner.Env[k]))
		}
	}

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("discovery"))
	if len(cfg.Discovery.Ignore) == 0 {
		fmt.Printf("  ignore: %s\n", SubtitleStyle.Render("(defaults only)"))
	} else {
		fmt.Printf("  ignore: %s\n", valueStyle.Render(strings.Join(cfg.Discovery.Ignore, ", ")))
	}

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("watch"))
	fmt.Printf("  debounce_ms: %s\n", valueStyle.Render(fmt.Sprintf("%d", cfg.Watch.DebounceMS)))

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
