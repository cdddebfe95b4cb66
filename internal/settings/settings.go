// Package settings persists the user-facing preferences of the headlines
// app: the NewsAPI key and the theme flag.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is used under the user config directory when no path is configured.
const DefaultFileName = "headlines.yaml"

// Settings is the on-disk preference record.
type Settings struct {
	APIKey   string `yaml:"api_key"`
	DarkMode bool   `yaml:"dark_mode"`
}

// Defaults returns the settings used before anything was saved.
func Defaults() Settings {
	return Settings{}
}

// HasAPIKey reports whether a non-blank key is stored.
func (s Settings) HasAPIKey() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// DefaultPath resolves the settings file under the OS config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "headlines", DefaultFileName), nil
}

// Load reads settings from path. A missing file yields Defaults.
func Load(path string) (Settings, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Settings{}, fmt.Errorf("settings path is empty")
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}

	s := Defaults()
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	s.APIKey = strings.TrimSpace(s.APIKey)
	return s, nil
}

// Save writes settings to path, creating parent directories as needed.
// The file holds a credential, so it is written owner-only.
func Save(path string, s Settings) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("settings path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
