//go:build !windows

package cmd

import (
	"golang.org/x/sys/unix"
)

// termWidth returns the column count of the terminal on fd, or 0.
func termWidth(fd uintptr) int {
	ws, err := unix.IoctlGetWinsize(int(fd), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 0
	}
	return int(ws.Col)
}
