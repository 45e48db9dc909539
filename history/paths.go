package history

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultProfileID = "Default"

	chromiumHistoryFile = "History"
	chromiumBackupFile  = "HistoryBackup"
	chromiumStateFile   = "Local State"

	firefoxHistoryFile = "places.sqlite"
	firefoxBackupFile  = "history.sqlite"
)

// userDataDir is where a Chromium-family browser keeps its profiles, or where Firefox
// keeps its profile directories.
func userDataDir(goos, home string, b Browser) string {
	switch goos {
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		switch b {
		case Chrome:
			return filepath.Join(support, "Google", "Chrome")
		case Arc:
			return filepath.Join(support, "Arc", "User Data")
		default:
			return filepath.Join(support, "Firefox", "Profiles")
		}
	case "windows":
		switch b {
		case Chrome:
			return filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data")
		case Arc:
			return filepath.Join(home, "AppData", "Roaming", "Arc", "User Data")
		default:
			return filepath.Join(home, "AppData", "Roaming", "Mozilla", "Firefox", "Profiles")
		}
	default:
		switch b {
		case Chrome:
			return filepath.Join(home, ".config", "google-chrome")
		case Arc:
			return filepath.Join(home, ".config", "arc")
		default:
			return filepath.Join(home, ".mozilla", "firefox")
		}
	}
}

// firefoxProfileDir picks the release profile, falling back to nightly.
func firefoxProfileDir(profilesDir string) (string, bool) {
	entries, err := os.ReadDir(profilesDir)
	if err != nil {
		return "", false
	}

	var release, nightly string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		switch name := entry.Name(); {
		case strings.HasSuffix(name, ".default-release"):
			release = name
		case strings.HasSuffix(name, ".default-nightly"):
			nightly = name
		}
	}

	switch {
	case release != "":
		return filepath.Join(profilesDir, release), true
	case nightly != "":
		return filepath.Join(profilesDir, nightly), true
	default:
		return "", false
	}
}
