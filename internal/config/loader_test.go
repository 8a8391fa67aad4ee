package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"JUSAGENDA_DATA_DIR",
		"JUSAGENDA_STORAGE",
		"JUSAGENDA_TIMEZONE",
		"JUSAGENDA_DEFAULT_REMINDER_TIME",
		"JUSAGENDA_UNDO_GRACE",
		"JUSAGENDA_NOTIFICATIONS",
		"JUSAGENDA_SWEEP_CRON",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage != StorageSQLite {
		t.Fatalf("expected sqlite storage, got %q", cfg.Storage)
	}
	if cfg.DefaultReminderTime != "00:00" {
		t.Fatalf("expected midnight default, got %q", cfg.DefaultReminderTime)
	}
	if cfg.UndoGracePeriod != 5*time.Second {
		t.Fatalf("expected 5s grace, got %v", cfg.UndoGracePeriod)
	}
	if !cfg.NotificationsEnabled {
		t.Fatal("expected notifications enabled by default")
	}
	if !strings.HasSuffix(cfg.DataDir, ".jusagenda") {
		t.Fatalf("unexpected data dir %q", cfg.DataDir)
	}
}

func TestLoad_CreatesFileOnFirstRun(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg != Default() {
		t.Fatalf("expected defaults on first run, got %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	// A second load parses the file it just wrote.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if again != cfg {
		t.Fatalf("expected identical config on reload, got %+v", again)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := strings.Join([]string{
		"data_dir: /var/lib/jusagenda",
		"storage: file",
		"timezone: America/Sao_Paulo",
		"default_reminder_time: \"09:00\"",
		"undo_grace_period: 10s",
		"notifications_enabled: false",
		"sweep_cron: \"*/5 * * * *\"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.DataDir != "/var/lib/jusagenda" || cfg.Storage != StorageFile {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Timezone != "America/Sao_Paulo" || cfg.DefaultReminderTime != "09:00" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.UndoGracePeriod != 10*time.Second || cfg.NotificationsEnabled {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.SweepCron != "*/5 * * * *" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage: file\nundo_grace_period: 10s\n"), 0o600); err != nil {
		t.Fatalf("write fixture failed: %v", err)
	}

	t.Setenv("JUSAGENDA_STORAGE", "sqlite")
	t.Setenv("JUSAGENDA_UNDO_GRACE", "30s")
	t.Setenv("JUSAGENDA_NOTIFICATIONS", "off")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Storage != StorageSQLite {
		t.Fatalf("expected env to win, got %q", cfg.Storage)
	}
	if cfg.UndoGracePeriod != 30*time.Second {
		t.Fatalf("expected env grace, got %v", cfg.UndoGracePeriod)
	}
	if cfg.NotificationsEnabled {
		t.Fatal("expected notifications disabled via env")
	}
}

func TestLoad_InvalidEnvValues(t *testing.T) {
	clearEnv(t)

	cases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad grace", key: "JUSAGENDA_UNDO_GRACE", value: "soon"},
		{name: "negative grace", key: "JUSAGENDA_UNDO_GRACE", value: "-5s"},
		{name: "bad notifications flag", key: "JUSAGENDA_NOTIFICATIONS", value: "maybe"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			if _, err := Load(""); err == nil {
				t.Fatal("expected an error for the invalid value")
			}
		})
	}
}

func TestLoad_ValidationRejectsBadValues(t *testing.T) {
	clearEnv(t)

	cases := []struct {
		name    string
		content string
	}{
		{name: "unknown storage", content: "storage: cloud\n"},
		{name: "bad reminder time", content: "default_reminder_time: \"9am\"\n"},
		{name: "bad timezone", content: "timezone: Mars/Olympus\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
				t.Fatalf("write fixture failed: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("write fixture failed: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestConfig_Paths(t *testing.T) {
	t.Parallel()

	cfg := Config{DataDir: "/tmp/agenda"}
	if got := cfg.SQLitePath(); got != filepath.Join("/tmp/agenda", "jusagenda.db") {
		t.Fatalf("unexpected sqlite path %q", got)
	}
	if got := cfg.EventsPath(); got != filepath.Join("/tmp/agenda", "events") {
		t.Fatalf("unexpected events path %q", got)
	}
}

func TestConfig_Location(t *testing.T) {
	t.Parallel()

	local := Config{Timezone: "Local"}
	loc, err := local.Location()
	if err != nil || loc != time.Local {
		t.Fatalf("expected time.Local, got %v err=%v", loc, err)
	}

	utc := Config{Timezone: "UTC"}
	loc, err = utc.Location()
	if err != nil || loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %v err=%v", loc, err)
	}

	bad := Config{Timezone: "Nowhere/Here"}
	if _, err := bad.Location(); err == nil {
		t.Fatal("expected an error for an unknown timezone")
	}
}
