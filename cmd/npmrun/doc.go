// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for npmrun.
//
// This package implements the Cobra command hierarchy for the npmrun CLI:
// the root command, script execution, manifest listing, watch mode and
// configuration management.
package cmd
