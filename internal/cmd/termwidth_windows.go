//go:build windows

package cmd

import (
	"golang.org/x/sys/windows"
)

// termWidth returns the visible width of the console on fd, or 0.
func termWidth(fd uintptr) int {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(windows.Handle(fd), &info); err != nil {
		return 0
	}
	return int(info.Window.Right-info.Window.Left) + 1
}
