// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

// isFatalFsnotifyError reports whether a watcher error is unrecoverable.
// The ReadDirectoryChangesW backend has no analogue of inotify exhaustion,
// so errors are treated as transient.
func isFatalFsnotifyError(error) bool { return false }
