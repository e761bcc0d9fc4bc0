// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"npmrun-cli/internal/tui"
)

// runCmd runs one script of the nearest manifest. Without a script argument
// it opens the interactive picker; everything after -- is forwarded to the
// script unchanged.
var runCmd = &cobra.Command{
	Use:   "run [script] [-- args...]",
	Short: "Run a script from the nearest package.json",
	Long: `Run a script declared in the nearest package.json.

When no script name is given, an interactive picker lists the project's
scripts in declaration order; when nested manifests exist below the
project root, their scripts are listed too, qualified by package name.
Arguments after -- are passed through to the script.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	app := newApp()

	m, err := app.FindManifest()
	if err != nil {
		return err
	}

	var name string
	var scriptArgs []string
	if len(args) > 0 {
		if !m.HasScripts() {
			fmt.Fprintln(os.Stderr, WarningStyle.Render("No scripts defined in ")+m.Path)
			return nil
		}
		name = args[0]
		scriptArgs = args[1:]
	} else {
		manifests := app.ProjectScripts(m)
		if len(manifests) == 0 {
			fmt.Fprintln(os.Stderr, WarningStyle.Render("No scripts defined in ")+m.Path)
			return nil
		}
		m, name, err = app.PickProjectScript(m.Dir(), manifests)
		if errors.Is(err, tui.ErrAborted) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	code, err := app.RunScript(cmd.Context(), m, name, scriptArgs)
	if err != nil {
		return err
	}
	if !code.IsSuccess() {
		return &ExitError{Code: code}
	}
	return nil
}
