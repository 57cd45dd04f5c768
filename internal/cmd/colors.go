package cmd

import (
	"os"
	"runtime"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ANSI color codes for terminal output. applyColorMode clears them when
// output should stay plain.
var (
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[0;33m"
	colorCyan   = "\033[0;36m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
	colorReset  = "\033[0m"
)

// colorMode is the --color flag: auto, always, or never.
var colorMode = "auto"

func enableColors() {
	colorRed = "\033[0;31m"
	colorGreen = "\033[0;32m"
	colorYellow = "\033[0;33m"
	colorCyan = "\033[0;36m"
	colorDim = "\033[2m"
	colorBold = "\033[1m"
	colorReset = "\033[0m"
}

func disableColors() {
	colorRed = ""
	colorGreen = ""
	colorYellow = ""
	colorCyan = ""
	colorDim = ""
	colorBold = ""
	colorReset = ""
}

// colorsEnabled reports whether styled output is on.
func colorsEnabled() bool {
	return colorReset != ""
}

// applyColorMode sets the ANSI codes and the lipgloss profile from
// colorMode.
func applyColorMode() {
	switch colorMode {
	case "always":
		enableColors()
		lipgloss.SetColorProfile(termenv.ANSI256)
	case "never":
		disableColors()
		lipgloss.SetColorProfile(termenv.Ascii)
	default:
		profile := termenv.NewOutput(os.Stdout).ColorProfile()
		if shouldDisableColors() || profile == termenv.Ascii {
			disableColors()
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
		enableColors()
		lipgloss.SetColorProfile(profile)
	}
}

func shouldDisableColors() bool {
	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" {
		return true
	}
	if os.Getenv("TERM") == "dumb" {
		return true
	}

	if runtime.GOOS == "windows" {
		if os.Getenv("WT_SESSION") != "" || os.Getenv("TERM_PROGRAM") != "" {
			return false
		}
		// Older consoles only render ANSI through a shim.
		return os.Getenv("ANSICON") == "" && os.Getenv("ConEmuANSI") != "ON"
	}
	return false
}

// terminalWidth returns $COLUMNS, else the width of stdout, else 80.
func terminalWidth() int {
	if v := os.Getenv("COLUMNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if w := termWidth(os.Stdout.Fd()); w > 0 {
		return w
	}
	return 80
}
