package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"sdcli/internal/bridge"
	"sdcli/internal/config"
	"sdcli/internal/credentials"
	"sdcli/internal/locker"
	"sdcli/internal/model"
	"sdcli/internal/registry"
	"sdcli/internal/s3"
	"sdcli/internal/supervisor"
)

// App is the application layer between the CLI and the BridgeService.
// It constructs all dependencies from config and manages their lifecycle on
// Close.
type App struct {
	cfg      *config.Config
	registry bridge.Registry
	service  *bridge.BridgeService
	logFile  *os.File
}

// LoadConfig reads the config file from its default (or overridden)
// location, falling back to built-in defaults when no config file exists
// yet.
func LoadConfig() (*config.Config, error) {
	defaults, err := GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.NewConfig(defaults["base_dir"]), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Bridge", "StopBridge") and
// tags every log line of this invocation. The caller must call Close when
// done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	opID := fmt.Sprintf("%s-%s", operation, time.Now().UTC().Format("20060102T150405Z"))
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	reg, err := registry.NewRegistryFromConfig(cfg.Registry)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating registry: %w", err)
	}

	credStore, err := credentials.NewStoreFromConfig(cfg.Credentials)
	if err != nil {
		reg.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating credential store: %w", err)
	}

	sup, err := supervisor.NewSupervisorFromConfig(cfg.Supervisor, log)
	if err != nil {
		reg.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating supervisor: %w", err)
	}

	var verifier bridge.BucketVerifier
	if cfg.Bridge.VerifyBuckets {
		verifier = s3.NewVerifier(cfg.Bridge)
	}

	locks, err := locker.NewFlockLocker(cfg.LockDir())
	if err != nil {
		reg.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating locker: %w", err)
	}

	svc := bridge.NewBridgeService(reg, credStore, sup, verifier, locks, log,
		bridge.RealClock{}, bridge.UUIDGenerator{},
		bridge.EndpointPolicy{
			Host:    cfg.Bridge.ListenHost,
			PortMin: cfg.Bridge.PortMin,
			PortMax: cfg.Bridge.PortMax,
		})

	return &App{
		cfg:      cfg,
		registry: reg,
		service:  svc,
		logFile:  logFile,
	}, nil
}

// Service exposes the lifecycle controller to the CLI layer.
func (a *App) Service() *bridge.BridgeService { return a.service }

// Config returns the active configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Close releases the registry and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.registry.Close(); err != nil {
		firstErr = fmt.Errorf("closing registry: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// InitWorkspace prepares a fresh installation: writes the config file and
// generates the credential store key pair. Used by `sdcli config init`.
func InitWorkspace(configPath string, cfg *config.Config) error {
	if err := config.Init(configPath, cfg); err != nil {
		return err
	}

	if cfg.Credentials.Type == "age" || cfg.Credentials.Type == "" {
		store := credentials.NewAgeStore(cfg.Credentials)
		if !store.IsConfigured() {
			if err := store.Setup(); err != nil {
				return fmt.Errorf("generating credential keys: %w", err)
			}
		}
	}
	return nil
}

// FormatRecord renders one bridge record for human consumption. Secret
// material never appears here; records only carry the credential ref.
func FormatRecord(r *model.BridgeRecord) string {
	return fmt.Sprintf("%s  %-7s  %-20s  %s", r.Fingerprint, r.Status, r.Endpoint(), r.Bucket)
}
