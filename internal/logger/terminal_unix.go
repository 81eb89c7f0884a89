//go:build !windows

package logger

import "golang.org/x/sys/unix"

// isTerminal reports whether fd refers to an interactive terminal, so color
// output can be disabled automatically when stdout is redirected to a file
// or pipe.
func isTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), ioctlGetTermios)
	return err == nil
}
