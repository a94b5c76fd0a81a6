package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/sdcli",
		LogDir:  "/home/user/.local/share/sdcli/log",
		Registry: RegistryConfig{
			Type:    "sqlite",
			DataDir: "/home/user/.local/share/sdcli/registry",
		},
		Credentials: CredentialsConfig{
			Type:          "age",
			Dir:           "/home/user/.local/share/sdcli/credentials",
			RecipientPath: "/home/user/.local/share/sdcli/keys/sdcli.pub",
			IdentityPath:  "/home/user/.local/share/sdcli/keys/sdcli.key",
		},
		Supervisor: SupervisorConfig{
			Type:              "exec",
			GatewayCommand:    "blackstrap-gateway",
			GracePeriodSecs:   5,
			LaunchTimeoutSecs: 20,
		},
		Bridge: BridgeConfig{
			ListenHost:    "127.0.0.1",
			PortMin:       2000,
			PortMax:       2100,
			VerifyBuckets: true,
			S3Endpoint:    "http://localhost:9000",
			S3Region:      "eu-west-1",
		},
		GitHub: GitHubConfig{
			Organization: "metabronx",
			APIBaseURL:   "https://github.example.com/api/v3",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Registry.Type != "sqlite" {
		t.Errorf("Registry.Type = %q, want %q", got.Registry.Type, "sqlite")
	}
	if got.Registry.DataDir != original.Registry.DataDir {
		t.Errorf("Registry.DataDir = %q, want %q", got.Registry.DataDir, original.Registry.DataDir)
	}
	if got.Credentials.RecipientPath != original.Credentials.RecipientPath {
		t.Errorf("Credentials.RecipientPath = %q, want %q", got.Credentials.RecipientPath, original.Credentials.RecipientPath)
	}
	if got.Credentials.IdentityPath != original.Credentials.IdentityPath {
		t.Errorf("Credentials.IdentityPath = %q, want %q", got.Credentials.IdentityPath, original.Credentials.IdentityPath)
	}
	if got.Supervisor.GatewayCommand != "blackstrap-gateway" {
		t.Errorf("Supervisor.GatewayCommand = %q, want %q", got.Supervisor.GatewayCommand, "blackstrap-gateway")
	}
	if got.Supervisor.GracePeriodSecs != 5 {
		t.Errorf("Supervisor.GracePeriodSecs = %d, want 5", got.Supervisor.GracePeriodSecs)
	}
	if got.Bridge.PortMin != 2000 || got.Bridge.PortMax != 2100 {
		t.Errorf("Bridge port range = %d-%d, want 2000-2100", got.Bridge.PortMin, got.Bridge.PortMax)
	}
	if !got.Bridge.VerifyBuckets {
		t.Error("Bridge.VerifyBuckets = false, want true")
	}
	if got.Bridge.S3Endpoint != "http://localhost:9000" {
		t.Errorf("Bridge.S3Endpoint = %q, want %q", got.Bridge.S3Endpoint, "http://localhost:9000")
	}
	if got.GitHub.Organization != "metabronx" {
		t.Errorf("GitHub.Organization = %q, want %q", got.GitHub.Organization, "metabronx")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/sdcli")

	if cfg.BaseDir != "/data/sdcli" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/sdcli")
	}
	if cfg.LogDir != "/data/sdcli/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/sdcli/log")
	}
	if cfg.LockDir() != "/data/sdcli/locks" {
		t.Errorf("LockDir() = %q, want %q", cfg.LockDir(), "/data/sdcli/locks")
	}
	if cfg.Registry.Type != "sqlite" {
		t.Errorf("Registry.Type = %q, want %q", cfg.Registry.Type, "sqlite")
	}
	if cfg.Credentials.RecipientPath != "/data/sdcli/keys/sdcli.pub" {
		t.Errorf("Credentials.RecipientPath = %q, want %q", cfg.Credentials.RecipientPath, "/data/sdcli/keys/sdcli.pub")
	}
	if cfg.Credentials.IdentityPath != "/data/sdcli/keys/sdcli.key" {
		t.Errorf("Credentials.IdentityPath = %q, want %q", cfg.Credentials.IdentityPath, "/data/sdcli/keys/sdcli.key")
	}
	if cfg.Supervisor.GatewayCommand != "blackstrap-gateway" {
		t.Errorf("Supervisor.GatewayCommand = %q, want %q", cfg.Supervisor.GatewayCommand, "blackstrap-gateway")
	}
	if cfg.Bridge.PortMin != 1111 || cfg.Bridge.PortMax != 1211 {
		t.Errorf("Bridge port range = %d-%d, want 1111-1211", cfg.Bridge.PortMin, cfg.Bridge.PortMax)
	}
	if cfg.Bridge.ListenHost != "127.0.0.1" {
		t.Errorf("Bridge.ListenHost = %q, want %q", cfg.Bridge.ListenHost, "127.0.0.1")
	}
	if cfg.GitHub.Organization != "metabronx" {
		t.Errorf("GitHub.Organization = %q, want %q", cfg.GitHub.Organization, "metabronx")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "sdcli.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.BaseDir != dir {
			t.Errorf("BaseDir = %q, want %q", got.BaseDir, dir)
		}
	})

	t.Run("refuses to overwrite existing config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "sdcli.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := Init(path, cfg); err == nil {
			t.Error("second Init() error = nil, want error")
		}
	})

	t.Run("creates missing parent directories", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "config", "sdcli.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("config file not created: %v", err)
		}
	})
}

func TestReadFromFile_Missing(t *testing.T) {
	if _, err := ReadFromFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("ReadFromFile() error = nil, want error for missing file")
	}
}
