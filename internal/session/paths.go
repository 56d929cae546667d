package session

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.msgcenter.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".msgcenter")
}

// LogDir returns the log directory.
func LogDir() string {
	return filepath.Join(BaseDir(), "logs")
}

// LogPath returns the client log file path.
func LogPath() string {
	return filepath.Join(LogDir(), "msgcenter.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDirs creates the directory tree with proper permissions.
func EnsureDirs() error {
	dirs := []string{BaseDir(), LogDir()}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
