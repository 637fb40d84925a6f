// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"syscall"
)

// unrecoverableErrnos are the Win32 error codes after which the
// ReadDirectoryChangesW-based watcher cannot continue:
//
//	4 ERROR_TOO_MANY_OPEN_FILES — handle limit reached (EMFILE analog)
//	6 ERROR_INVALID_HANDLE      — watched directory deleted or unmounted
//	8 ERROR_NOT_ENOUGH_MEMORY   — cannot allocate the notification buffer
var unrecoverableErrnos = []error{
	syscall.Errno(4),
	syscall.Errno(6),
	syscall.Errno(8),
}

// fatalWatchError reports whether an fsnotify error leaves the watcher
// fundamentally broken, as opposed to a transient per-path problem.
func fatalWatchError(err error) bool {
	for _, errno := range unrecoverableErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
