package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName = ".reprieve"
	homeEnvVar = "REPRIEVE_HOME"
)

// DataDir returns the base data directory. REPRIEVE_HOME overrides the
// default of ~/.reprieve.
func DataDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(homeEnvVar)); dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to config.toml.
func ConfigPath() (string, error) {
	return dataPath("config.toml")
}

// ListsPath returns the path to the file-backed list store.
func ListsPath() (string, error) {
	return dataPath("lists.json")
}

// DBPath returns the path to the bbolt list store.
func DBPath() (string, error) {
	return dataPath("reprieve.db")
}

// LogPath returns the path the terminal UI logs to.
func LogPath() (string, error) {
	return dataPath("reprieve.log")
}

func dataPath(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}
