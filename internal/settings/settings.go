// Package settings loads and saves the repository settings.json.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
)

// FileName is the settings file name inside the repository root.
const FileName = "settings.json"

// TimestampLayout is the reference layout for catalog and display times.
const TimestampLayout = "2006-01-02 15:04:05"

// TimeFormat holds the display layouts for UTC and local timestamps.
type TimeFormat struct {
	UTC   string `json:"utc"`
	Local string `json:"local"`
}

// Settings is the persistent repository configuration.
type Settings struct {
	BackupFolder   string     `json:"backup_folder"`
	MaxBackups     int        `json:"max_backups"`
	LoggingEnabled bool       `json:"logging_enabled"`
	Username       string     `json:"username"`
	TimeFormat     TimeFormat `json:"time_format"`
}

// Default returns settings with the stock values. The username defaults
// to the OS-reported current user.
func Default() Settings {
	return Settings{
		BackupFolder:   "backups",
		MaxBackups:     5,
		LoggingEnabled: true,
		Username:       currentUsername(),
		TimeFormat: TimeFormat{
			UTC:   TimestampLayout,
			Local: TimestampLayout,
		},
	}
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

// Load reads settings.json from root. A missing or corrupted file resets
// to defaults, which are written back so the next load succeeds cleanly.
func Load(root string) (Settings, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s := Default()
			return s, Save(root, s)
		}
		return Default(), fmt.Errorf("read settings: %w", err)
	}

	// logging_enabled needs a pointer so an absent key falls back to
	// true rather than the zero value.
	var raw struct {
		BackupFolder   string     `json:"backup_folder"`
		MaxBackups     int        `json:"max_backups"`
		LoggingEnabled *bool      `json:"logging_enabled"`
		Username       string     `json:"username"`
		TimeFormat     TimeFormat `json:"time_format"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		s := Default()
		return s, Save(root, s)
	}
	s := Settings{
		BackupFolder:   raw.BackupFolder,
		MaxBackups:     raw.MaxBackups,
		LoggingEnabled: raw.LoggingEnabled == nil || *raw.LoggingEnabled,
		Username:       raw.Username,
		TimeFormat:     raw.TimeFormat,
	}
	return validate(s), nil
}

// Save writes settings.json under root, creating the directory if needed.
func Save(root string, s Settings) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(validate(s), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(filepath.Join(root, FileName), data, 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// validate fills in any missing or out-of-range field with its default.
func validate(s Settings) Settings {
	def := Default()
	if s.BackupFolder == "" {
		s.BackupFolder = def.BackupFolder
	}
	if s.MaxBackups <= 0 {
		s.MaxBackups = def.MaxBackups
	}
	if s.Username == "" {
		s.Username = def.Username
	}
	if s.TimeFormat.UTC == "" {
		s.TimeFormat.UTC = def.TimeFormat.UTC
	}
	if s.TimeFormat.Local == "" {
		s.TimeFormat.Local = def.TimeFormat.Local
	}
	return s
}
