// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"npmrun-cli/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug diagnostics
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string
	// plainOutput forces the plain sink even on a terminal
	plainOutput bool
	// pmOverride selects the package manager explicitly
	pmOverride string
	// startDir overrides the directory the manifest search starts from
	startDir string
	// extraEnvFiles are dotenv files loaded into the script environment
	extraEnvFiles []string

	// cfg is the loaded configuration, never nil after initRootConfig
	cfg = config.Default()

	// logger writes diagnostics to stderr so they never mix with script
	// output
	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "npmrun",
		Short: "Run NPM scripts from an interactive picker",
		Long: TitleStyle.Render("npmrun") + SubtitleStyle.Render(" - Run NPM scripts from an interactive picker") + `

npmrun finds the nearest package.json, lists the scripts it declares,
and runs the one you pick with the right package manager (npm, yarn or
pnpm, detected from the project's lock file). Output streams to your
terminal as the script produces it.

` + SubtitleStyle.Render("Examples:") + `
  npmrun run                Pick a script interactively
  npmrun run build          Run the 'build' script
  npmrun run test -- --ci   Run 'test' with extra arguments
  npmrun list               Show the scripts of the nearest manifest
  npmrun list --all         Show scripts of every manifest in the project
  npmrun watch dev          Re-run 'dev' when project files change`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/npmrun/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "strip formatting and never attach a terminal")
	rootCmd.PersistentFlags().StringVar(&pmOverride, "pm", "", "package manager to use (npm, yarn, pnpm)")
	rootCmd.PersistentFlags().StringVarP(&startDir, "dir", "C", "", "directory to start the manifest search from")
	rootCmd.PersistentFlags().StringArrayVar(&extraEnvFiles, "env-file", nil, "dotenv file to load into the script environment (repeatable)")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// initRootConfig reads the config file and environment overrides.
func initRootConfig() {
	loaded, err := config.NewProvider().Load(context.Background(), config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+err.Error())
		loaded = config.Default()
	}
	cfg = loaded

	// Apply config values where flags were not given
	if !verbose {
		verbose = cfg.UI.Verbose
	}
	if !plainOutput {
		plainOutput = cfg.UI.Plain
	}
	if pmOverride == "" {
		pmOverride = cfg.Runner.PackageManager
	}

	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
}
