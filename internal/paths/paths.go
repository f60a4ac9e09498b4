// Package paths resolves mediastats config and data locations.
//
// When running with sudo, paths resolve to the invoking user's directories
// (via SUDO_USER) instead of root's, so the daemon and the CLI agree on
// where the config and result database live.
package paths

import (
	"os"
	"os/user"
	"path/filepath"
)

// UserHomeDir returns the home directory of the actual user.
func UserHomeDir() (string, error) {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && sudoUser != "root" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir, nil
		}
	}
	return os.UserHomeDir()
}

// AppDir returns ~/.config/mediastats for the actual user. MEDIASTATS_HOME
// overrides it.
func AppDir() (string, error) {
	if dir := os.Getenv("MEDIASTATS_HOME"); dir != "" {
		return dir, nil
	}
	home, err := UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mediastats"), nil
}

// ConfigPath returns the path of config.toml.
func ConfigPath() (string, error) {
	return inAppDir("config.toml")
}

// DatabasePath returns the path of the result database.
func DatabasePath() (string, error) {
	return inAppDir("stats.db")
}

// LogPath returns the default log file path.
func LogPath() (string, error) {
	return inAppDir(filepath.Join("logs", "mediastats.log"))
}

func inAppDir(name string) (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
