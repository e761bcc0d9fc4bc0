// SPDX-License-Identifier: MPL-2.0

// npmrun is a command line tool that finds the nearest package.json,
// lists its scripts and runs the one you pick with the project's package
// manager.
package main

import (
	cmd "npmrun-cli/cmd/npmrun"
)

func main() {
	cmd.Execute()
}
