package version

import (
	"os"
	"path/filepath"
)

const (
	CLIName     = "pkgplan"
	FullVersion = CLIName + " v" + Version
	Version     = "0.1.0"

	homeEnv = "PKGPLAN_HOME"
)

// BaseDir is where installed packages live by default: $PKGPLAN_HOME, else
// a pkgplan directory under the user's data directory, else under the temp dir.
func BaseDir() string {
	if dir := os.Getenv(homeEnv); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", CLIName)
	}
	return filepath.Join(os.TempDir(), CLIName)
}
