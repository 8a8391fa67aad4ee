// Package config loads agenda settings from a YAML file with environment
// variable overrides. A missing file is created with defaults on first run.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// StorageSQLite selects the SQLite persistence backend.
	StorageSQLite = "sqlite"
	// StorageFile selects the diskv file persistence backend.
	StorageFile = "file"
)

// Config captures runtime settings for the agenda.
type Config struct {
	DataDir              string
	Storage              string
	Timezone             string
	DefaultReminderTime  string
	UndoGracePeriod      time.Duration
	NotificationsEnabled bool
	SweepCron            string
}

// fileConfig is the YAML shape of the configuration file.
type fileConfig struct {
	DataDir              string `yaml:"data_dir"`
	Storage              string `yaml:"storage"`
	Timezone             string `yaml:"timezone"`
	DefaultReminderTime  string `yaml:"default_reminder_time"`
	UndoGracePeriod      string `yaml:"undo_grace_period"`
	NotificationsEnabled *bool  `yaml:"notifications_enabled"`
	SweepCron            string `yaml:"sweep_cron"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:              filepath.Join(home, ".jusagenda"),
		Storage:              StorageSQLite,
		Timezone:             "Local",
		DefaultReminderTime:  "00:00",
		UndoGracePeriod:      5 * time.Second,
		NotificationsEnabled: true,
		SweepCron:            "* * * * *",
	}
}

// Load reads the configuration file at path, creating it with defaults when
// it does not exist, and applies JUSAGENDA_* environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := readOrCreate(path)
		if err != nil {
			return Config{}, err
		}
		if err := applyFile(&cfg, raw); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SQLitePath is the database file used by the sqlite backend.
func (c Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "jusagenda.db")
}

// EventsPath is the directory used by the file backend.
func (c Config) EventsPath() string {
	return filepath.Join(c.DataDir, "events")
}

func readOrCreate(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if werr := writeDefault(path); werr != nil {
				return fileConfig{}, werr
			}
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fileConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return raw, nil
}

// writeDefault writes the default configuration atomically with 0600
// permissions, creating the parent directory when needed.
func writeDefault(path string) error {
	cfg := Default()
	raw := fileConfig{
		DataDir:              cfg.DataDir,
		Storage:              cfg.Storage,
		Timezone:             cfg.Timezone,
		DefaultReminderTime:  cfg.DefaultReminderTime,
		UndoGracePeriod:      cfg.UndoGracePeriod.String(),
		NotificationsEnabled: &cfg.NotificationsEnabled,
		SweepCron:            cfg.SweepCron,
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: create %s: %w", dir, err)
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("config: encode defaults: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".jusagenda-config-*.tmp")
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write defaults: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("config: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func applyFile(cfg *Config, raw fileConfig) error {
	if raw.DataDir != "" {
		cfg.DataDir = raw.DataDir
	}
	if raw.Storage != "" {
		cfg.Storage = raw.Storage
	}
	if raw.Timezone != "" {
		cfg.Timezone = raw.Timezone
	}
	if raw.DefaultReminderTime != "" {
		cfg.DefaultReminderTime = raw.DefaultReminderTime
	}
	if raw.UndoGracePeriod != "" {
		grace, err := time.ParseDuration(raw.UndoGracePeriod)
		if err != nil {
			return fmt.Errorf("config: invalid undo_grace_period %q: %w", raw.UndoGracePeriod, err)
		}
		cfg.UndoGracePeriod = grace
	}
	if raw.NotificationsEnabled != nil {
		cfg.NotificationsEnabled = *raw.NotificationsEnabled
	}
	if raw.SweepCron != "" {
		cfg.SweepCron = raw.SweepCron
	}
	return nil
}

func applyEnv(cfg *Config) error {
	invalid := make([]string, 0, 2)

	if value := strings.TrimSpace(os.Getenv("JUSAGENDA_DATA_DIR")); value != "" {
		cfg.DataDir = value
	}
	if value := strings.TrimSpace(os.Getenv("JUSAGENDA_STORAGE")); value != "" {
		cfg.Storage = value
	}
	if value := strings.TrimSpace(os.Getenv("JUSAGENDA_TIMEZONE")); value != "" {
		cfg.Timezone = value
	}
	if value := strings.TrimSpace(os.Getenv("JUSAGENDA_DEFAULT_REMINDER_TIME")); value != "" {
		cfg.DefaultReminderTime = value
	}
	if value := strings.TrimSpace(os.Getenv("JUSAGENDA_UNDO_GRACE")); value != "" {
		grace, err := time.ParseDuration(value)
		if err != nil || grace <= 0 {
			invalid = append(invalid, "JUSAGENDA_UNDO_GRACE")
		} else {
			cfg.UndoGracePeriod = grace
		}
	}
	if value := strings.TrimSpace(os.Getenv("JUSAGENDA_NOTIFICATIONS")); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			cfg.NotificationsEnabled = true
		case "0", "false", "no", "off":
			cfg.NotificationsEnabled = false
		default:
			invalid = append(invalid, "JUSAGENDA_NOTIFICATIONS")
		}
	}
	if value := strings.TrimSpace(os.Getenv("JUSAGENDA_SWEEP_CRON")); value != "" {
		cfg.SweepCron = value
	}

	if len(invalid) > 0 {
		return fmt.Errorf("config: invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func validate(cfg Config) error {
	invalid := make([]string, 0, 2)

	switch cfg.Storage {
	case StorageSQLite, StorageFile:
	default:
		invalid = append(invalid, "storage")
	}

	if _, err := time.Parse("15:04", cfg.DefaultReminderTime); err != nil {
		invalid = append(invalid, "default_reminder_time")
	}

	if cfg.UndoGracePeriod <= 0 {
		invalid = append(invalid, "undo_grace_period")
	}

	if _, err := cfg.Location(); err != nil {
		invalid = append(invalid, "timezone")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("config: invalid values: %s", strings.Join(invalid, ", "))
	}
	return nil
}
