// Package config provides configuration management for psicoscore.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "psicoscore"

// Paths holds the directories psicoscore reads and writes.
type Paths struct {
	// ConfigDir is the directory for configuration files (~/.config/psicoscore)
	ConfigDir string

	// DataDir is the directory for the pattern store (~/.local/share/psicoscore)
	DataDir string
}

// DefaultPaths returns the default paths based on the XDG Base Directory
// layout. On Windows, it uses %APPDATA% and %LOCALAPPDATA% instead.
func DefaultPaths() *Paths {
	home := homeDir()

	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}
		return &Paths{
			ConfigDir: filepath.Join(appData, appName),
			DataDir:   filepath.Join(localAppData, appName),
		}
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}

	return &Paths{
		ConfigDir: filepath.Join(configHome, appName),
		DataDir:   filepath.Join(dataHome, appName),
	}
}

// ConfigFile returns the path to the main configuration file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// DatabaseFile returns the path to the SQLite pattern store.
func (p *Paths) DatabaseFile() string {
	return filepath.Join(p.DataDir, "patterns.db")
}

// PatternFile returns the path to the YAML pattern store.
func (p *Paths) PatternFile() string {
	return filepath.Join(p.DataDir, "patterns.yaml")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		if runtime.GOOS == "windows" {
			return os.Getenv("USERPROFILE")
		}
		return os.Getenv("HOME")
	}
	return home
}
