// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// unrecoverableErrnos are the inotify resource-exhaustion conditions after
// which the watcher cannot continue delivering events:
//
//	ENOSPC — inotify watch limit reached (fs.inotify.max_user_watches)
//	EMFILE — per-process file descriptor limit reached
//	ENFILE — system-wide file descriptor limit reached
var unrecoverableErrnos = []error{
	syscall.ENOSPC,
	syscall.EMFILE,
	syscall.ENFILE,
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
