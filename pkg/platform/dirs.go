package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// Dirs holds the per-user directories of an application
type Dirs struct {
	Config string
	Data   string
}

// GetAppDirs returns the config and data directories for appName, creating
// them if needed
func GetAppDirs(appName string) (*Dirs, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	var dirs Dirs
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		dirs.Config = filepath.Join(envOr("XDG_CONFIG_HOME", filepath.Join(home, ".config")), appName)
		dirs.Data = filepath.Join(envOr("XDG_DATA_HOME", filepath.Join(home, ".local", "share")), appName)
	case "darwin":
		dirs.Config = filepath.Join(home, "Library", "Application Support", appName)
		dirs.Data = dirs.Config
	case "windows":
		dirs.Config = filepath.Join(envOr("APPDATA", filepath.Join(home, "AppData", "Roaming")), appName)
		dirs.Data = filepath.Join(envOr("LOCALAPPDATA", filepath.Join(home, "AppData", "Local")), appName)
	default:
		dirs.Config = filepath.Join(home, "."+appName)
		dirs.Data = dirs.Config
	}

	for _, dir := range []string{dirs.Config, dirs.Data} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return &dirs, nil
}

// GetDownloadsDir returns the directory browsers save downloads to. It is not
// checked for existence.
func GetDownloadsDir() (string, error) {
	if runtime.GOOS == "linux" {
		if dir := os.Getenv("XDG_DOWNLOAD_DIR"); dir != "" {
			return dir, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads"), nil
}

// GetDesktopDir returns the user's desktop directory. It is not checked for
// existence.
func GetDesktopDir() (string, error) {
	if runtime.GOOS == "linux" {
		if dir := os.Getenv("XDG_DESKTOP_DIR"); dir != "" {
			return dir, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Desktop"), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
