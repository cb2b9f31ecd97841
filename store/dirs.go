package store

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultDir resolves the per-user vault directory: the OS application-data
// directory for com.nalsan.peka with a "vaults" child, or ./vaults when the
// home directory cannot be determined.
func DefaultDir() string {
	if base := dataDir(); base != "" {
		return filepath.Join(base, "vaults")
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, "vaults")
	}
	return "vaults"
}

func dataDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "nalsan", "peka", "data")
		}
		return ""
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return ""
		}
		return filepath.Join(home, "Library", "Application Support", "com.nalsan.peka")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); filepath.IsAbs(xdg) {
			return filepath.Join(xdg, "peka")
		}
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return ""
		}
		return filepath.Join(home, ".local", "share", "peka")
	}
}
