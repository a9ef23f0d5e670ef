package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// DownloadDir returns where received artifacts are stored: override when
// set, otherwise <home>/Downloads/<namespace>. The directory itself is
// created later by the receiver.
func DownloadDir(override, namespace string) (string, error) {
	if override != "" {
		return ResolveDestinationPath(override)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	if home == "" {
		return "", fmt.Errorf("cannot resolve home directory: empty path")
	}
	return filepath.Join(home, "Downloads", namespace), nil
}

// ResolveDestinationPath validates a destination directory, which may not
// exist yet
func ResolveDestinationPath(destPath string) (string, error) {
	abs, err := filepath.Abs(destPath)
	if err != nil {
		return "", fmt.Errorf("cannot resolve destination path: %w", err)
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("destination path '%s' exists but is not a directory", abs)
	case err == nil, os.IsNotExist(err):
		return abs, nil
	default:
		return "", fmt.Errorf("cannot access destination path: %w", err)
	}
}
