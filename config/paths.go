// Package config provides layered, XDG-compliant configuration for kiln.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the application name used in configuration paths.
const AppName = "kiln"

// ConfigFileName is the name of the user configuration file (without extension).
const ConfigFileName = "config"

// ProjectConfigFileName is the name of the project configuration file (without extension).
const ProjectConfigFileName = "kiln"

const configExt = ".yaml"

// Locations are the two configuration files kiln reads, lowest precedence first.
type Locations struct {
	// UserDir holds UserFile; `kiln config init` creates it.
	UserDir  string
	UserFile string

	// ProjectFile lives in the project directory, next to the source root.
	ProjectFile string
}

// Locate resolves the configuration files for a project directory. The user
// file follows XDG_CONFIG_HOME, falling back to %APPDATA% on Windows and
// ~/.config elsewhere.
func Locate(projectDir string) Locations {
	userDir := filepath.Join(userConfigHome(), AppName)
	return Locations{
		UserDir:     userDir,
		UserFile:    filepath.Join(userDir, ConfigFileName+configExt),
		ProjectFile: filepath.Join(projectDir, ProjectConfigFileName+configExt),
	}
}

func userConfigHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return appData
		}
		return filepath.Join(home, "AppData", "Roaming")
	}
	return filepath.Join(home, ".config")
}
