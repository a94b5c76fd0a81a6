package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for sdcli.
type Config struct {
	BaseDir     string            `toml:"base_dir"`
	LogDir      string            `toml:"log_dir"`
	Registry    RegistryConfig    `toml:"registry"`
	Credentials CredentialsConfig `toml:"credentials"`
	Supervisor  SupervisorConfig  `toml:"supervisor"`
	Bridge      BridgeConfig      `toml:"bridge"`
	GitHub      GitHubConfig      `toml:"github"`
}

// LockDir returns the directory holding per-identity lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.BaseDir, "locks")
}

// RegistryConfig represents configuration for the bridge registry.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RegistryConfig struct {
	Type    string `toml:"type"`               // "sqlite" (default) or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// CredentialsConfig represents configuration for the credential store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CredentialsConfig struct {
	Type          string `toml:"type"`          // "age" (default) or "memory"
	Dir           string `toml:"dir,omitempty"` // entry directory, only used for type=age
	RecipientPath string `toml:"recipient_path,omitempty"`
	IdentityPath  string `toml:"identity_path,omitempty"`
}

// SupervisorConfig represents configuration for the gateway process
// supervisor.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SupervisorConfig struct {
	Type string `toml:"type"` // "exec" (default)

	// Exec-specific fields (only used when Type == "exec")
	GatewayCommand     string `toml:"gateway_command,omitempty"`
	GracePeriodSecs    int    `toml:"grace_period_secs"`    // wait for graceful exit before SIGKILL; default 10
	LaunchTimeoutSecs  int    `toml:"launch_timeout_secs"`  // wait for the endpoint to accept connections; default 15
	SkipReadinessCheck bool   `toml:"skip_readiness_check"` // trust the process start without probing the endpoint
}

// BridgeConfig holds bridge-wide settings: endpoint allocation and bucket
// verification.
type BridgeConfig struct {
	ListenHost    string `toml:"listen_host"` // default "127.0.0.1"
	PortMin       int    `toml:"port_min"`    // default 1111
	PortMax       int    `toml:"port_max"`    // default 1211
	VerifyBuckets bool   `toml:"verify_buckets"`
	S3Endpoint    string `toml:"s3_endpoint,omitempty"` // override for S3-compatible stores
	S3Region      string `toml:"s3_region,omitempty"`   // default "us-east-1"
}

// GitHubConfig holds settings for the gh command group.
type GitHubConfig struct {
	Organization string `toml:"organization"` // default "metabronx"
	APIBaseURL   string `toml:"api_base_url,omitempty"`
}

// NewConfig creates a new Config with the provided base directory and
// defaults for everything else.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Registry: RegistryConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "registry"),
		},
		Credentials: CredentialsConfig{
			Type:          "age",
			Dir:           filepath.Join(baseDir, "credentials"),
			RecipientPath: filepath.Join(baseDir, "keys", "sdcli.pub"),
			IdentityPath:  filepath.Join(baseDir, "keys", "sdcli.key"),
		},
		Supervisor: SupervisorConfig{
			Type:              "exec",
			GatewayCommand:    "blackstrap-gateway",
			GracePeriodSecs:   10,
			LaunchTimeoutSecs: 15,
		},
		Bridge: BridgeConfig{
			ListenHost:    "127.0.0.1",
			PortMin:       1111,
			PortMax:       1211,
			VerifyBuckets: true,
			S3Region:      "us-east-1",
		},
		GitHub: GitHubConfig{
			Organization: "metabronx",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
