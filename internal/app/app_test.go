package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sdcli/internal/config"
	"sdcli/internal/model"
)

// testConfig builds a config rooted in a temp dir with in-memory backends so
// NewApp wires without touching real state.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Registry.Type = "memory"
	cfg.Credentials.Type = "memory"
	cfg.Supervisor.SkipReadinessCheck = true
	cfg.Bridge.VerifyBuckets = false
	return cfg
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing config file falls back to defaults", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("SDCLI_CONFIG_PATH", filepath.Join(base, "absent.toml"))
		t.Setenv("SDCLI_HOME", base)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.BaseDir != base {
			t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, base)
		}
	})

	t.Run("reads an existing config file", func(t *testing.T) {
		base := t.TempDir()
		path := filepath.Join(base, "sdcli.toml")
		t.Setenv("SDCLI_CONFIG_PATH", path)
		t.Setenv("SDCLI_HOME", base)

		want := config.NewConfig(base)
		want.Bridge.PortMin = 3000
		want.Bridge.PortMax = 3100
		if err := config.Init(path, want); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Bridge.PortMin != 3000 || cfg.Bridge.PortMax != 3100 {
			t.Errorf("port range = %d-%d, want 3000-3100", cfg.Bridge.PortMin, cfg.Bridge.PortMax)
		}
	})
}

func TestNewApp(t *testing.T) {
	cfg := testConfig(t)

	app, err := NewApp(cfg, "Test")
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	if app.Service() == nil {
		t.Error("Service() = nil")
	}
	if app.Config() != cfg {
		t.Error("Config() did not return the provided config")
	}
	if err := app.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestInitWorkspace(t *testing.T) {
	t.Run("writes config and generates keys", func(t *testing.T) {
		base := t.TempDir()
		cfg := config.NewConfig(base)
		path := filepath.Join(base, "sdcli.toml")

		if err := InitWorkspace(path, cfg); err != nil {
			t.Fatalf("InitWorkspace() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Errorf("config file not written: %v", err)
		}
		if _, err := os.Stat(cfg.Credentials.RecipientPath); err != nil {
			t.Errorf("recipient key not written: %v", err)
		}
		if _, err := os.Stat(cfg.Credentials.IdentityPath); err != nil {
			t.Errorf("identity key not written: %v", err)
		}
	})

	t.Run("refuses a second init", func(t *testing.T) {
		base := t.TempDir()
		cfg := config.NewConfig(base)
		path := filepath.Join(base, "sdcli.toml")

		if err := InitWorkspace(path, cfg); err != nil {
			t.Fatalf("InitWorkspace() error = %v", err)
		}
		if err := InitWorkspace(path, cfg); err == nil {
			t.Error("second InitWorkspace() error = nil, want error")
		}
	})
}

func TestFormatRecord(t *testing.T) {
	record := &model.BridgeRecord{
		Fingerprint:      "0123456789abcdef0123456789abcdef",
		Bucket:           "my-bucket",
		CredentialRef:    "ref-1",
		ListenHost:       "127.0.0.1",
		ListenPort:       1111,
		Status:           model.StatusRunning,
		CreatedAt:        time.Now(),
		LastTransitionAt: time.Now(),
	}

	out := FormatRecord(record)
	for _, want := range []string{"0123456789abcdef0123456789abcdef", "running", "127.0.0.1:1111", "my-bucket"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatRecord() = %q, missing %q", out, want)
		}
	}
	if strings.Contains(out, "ref-1") {
		t.Errorf("FormatRecord() = %q, leaks credential ref", out)
	}
}
