// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"npmrun-cli/internal/discovery"
	"npmrun-cli/internal/manifest"
	"npmrun-cli/internal/tui"
)

var (
	// listAll walks the whole project instead of stopping at the nearest
	// manifest
	listAll bool
	// listFilter narrows the script names with a fuzzy pattern
	listFilter string
)

// listCmd prints scripts without running anything.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List scripts declared in package.json",
	Long: `List the scripts of the nearest package.json in declaration order.

With --all, every package.json below the project root is listed, skipping
node_modules and other dependency directories. Manifests that fail to
parse are reported but do not abort the listing.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "list scripts of every manifest below the project root")
	listCmd.Flags().StringVar(&listFilter, "filter", "", "only show script names fuzzy-matching this pattern")
}

func runList(cmd *cobra.Command, _ []string) error {
	app := newApp()

	if !listAll {
		m, err := app.FindManifest()
		if err != nil {
			return err
		}
		printManifest(cmd, m, "")
		return nil
	}

	root, err := discovery.ProjectRoot(startDir)
	if err != nil {
		return err
	}

	found, err := app.Discovery.DiscoverAll(root)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("no package.json found below %s", root)
	}

	for _, d := range found {
		rel := discovery.RelPath(root, d.Path)
		if d.Err != nil {
			cmd.PrintErrln(ErrorStyle.Render("Skipping "+rel+": ") + d.Err.Error())
			continue
		}
		printManifest(cmd, d.Manifest, rel)
	}
	return nil
}

// printManifest writes one manifest's scripts, filtered when --filter is
// set. The header names the package when the manifest declares one.
func printManifest(cmd *cobra.Command, m *manifest.Manifest, rel string) {
	header := m.PackageName
	if header == "" {
		header = m.Path
	}
	if rel != "" {
		header += SubtitleStyle.Render(" (" + rel + ")")
	}
	cmd.Println(TitleStyle.Render(header))

	if !m.HasScripts() {
		cmd.Println(SubtitleStyle.Render("  no scripts defined"))
		return
	}

	names := m.Names()
	if listFilter != "" {
		names = tui.FuzzyMatch(listFilter, names)
		if len(names) == 0 {
			cmd.Println(SubtitleStyle.Render("  no scripts match " + listFilter))
			return
		}
	}

	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	for _, s := range m.Scripts {
		if !keep[s.Name] {
			continue
		}
		cmd.Printf("  %s  %s\n", ScriptStyle.Render(s.Name), CommandStyle.Render(s.Command))
	}
}
