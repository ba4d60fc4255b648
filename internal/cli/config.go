package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pantry/internal/paths"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	envPrefix = "PANTRY"

	// envDatabaseURL names the database file, for compatibility with
	// deployments that set it for the server.
	envDatabaseURL = "DATABASE_URL"
)

// Config keys.
const (
	cfgKeyBackend     = "backend"
	cfgKeyDriver      = "driver"
	cfgKeyDataDir     = "data_dir"
	cfgKeyDatabase    = "database"
	cfgKeyPoolSize    = "pool_size"
	cfgKeyBusyTimeout = "busy_timeout"
	cfgKeyMaxAttempts = "retry.max_attempts"
	cfgKeyBackoff     = "retry.backoff"
	cfgKeyListen      = "listen"
	cfgKeyStaticDir   = "static_dir"
	cfgKeyLogLevel    = "log.level"
	cfgKeyLogFormat   = "log.format"
)

// Defaults for keys not set in config.yaml or the environment.
const (
	defaultListen    = "0.0.0.0:8080"
	defaultStaticDir = "static"
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

// settings is the decoded configuration of one invocation.
type settings struct {
	Backend     string        `mapstructure:"backend"`
	Driver      string        `mapstructure:"driver"`
	DataDir     string        `mapstructure:"data_dir"`
	Database    string        `mapstructure:"database"`
	PoolSize    int           `mapstructure:"pool_size"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	Retry       retrySettings `mapstructure:"retry"`
	Listen      string        `mapstructure:"listen"`
	StaticDir   string        `mapstructure:"static_dir"`
	Log         logSettings   `mapstructure:"log"`
}

type retrySettings struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

type logSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// defaultSettings returns the settings used when nothing is configured.
func defaultSettings() settings {
	return settings{
		Backend:   types.BackendSQLite,
		Driver:    types.DriverModernc,
		Database:  types.DefaultDatabaseFile,
		PoolSize:  types.DefaultPoolSize,
		Listen:    defaultListen,
		StaticDir: defaultStaticDir,
		Log:       logSettings{Level: defaultLogLevel, Format: defaultLogFormat},
	}
}

// loadSettings reads config.yaml from configDir with PANTRY_* environment
// overrides. The config directory and a default config.yaml are created on
// first run.
func loadSettings(configDir string) (*settings, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	if err := writeDefaultConfig(paths.ConfigFile(configDir)); err != nil {
		return nil, err
	}

	v := viper.New()
	d := defaultSettings()
	v.SetDefault(cfgKeyBackend, d.Backend)
	v.SetDefault(cfgKeyDriver, d.Driver)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyDatabase, d.Database)
	v.SetDefault(cfgKeyPoolSize, d.PoolSize)
	v.SetDefault(cfgKeyBusyTimeout, d.BusyTimeout)
	v.SetDefault(cfgKeyMaxAttempts, d.Retry.MaxAttempts)
	v.SetDefault(cfgKeyBackoff, d.Retry.Backoff)
	v.SetDefault(cfgKeyListen, d.Listen)
	v.SetDefault(cfgKeyStaticDir, d.StaticDir)
	v.SetDefault(cfgKeyLogLevel, d.Log.Level)
	v.SetDefault(cfgKeyLogFormat, d.Log.Format)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(cfgKeyDatabase, envPrefix+"_DATABASE", envDatabaseURL); err != nil {
		return nil, fmt.Errorf("binding %s: %w", envDatabaseURL, err)
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	s.Database = strings.TrimPrefix(s.Database, "sqlite://")
	return &s, nil
}

// backendConfig converts settings to the store's configuration.
func (s *settings) backendConfig() types.Config {
	return types.Config{
		Backend: s.Backend,
		DataDir: s.DataDir,
		SQLiteConfig: types.SQLiteConfig{
			Driver:      s.Driver,
			Path:        s.Database,
			PoolSize:    s.PoolSize,
			BusyTimeout: s.BusyTimeout,
			MaxAttempts: s.Retry.MaxAttempts,
			Backoff:     s.Retry.Backoff,
		},
	}
}

// writeDefaultConfig writes config.yaml with default values if the file
// does not exist. An existing file is left untouched.
func writeDefaultConfig(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	data, err := yaml.Marshal(defaultConfigFile())
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	header := []byte("# pantry configuration. Environment variables PANTRY_<KEY> override these values.\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

// defaultConfigFile is what config.yaml holds on first run. Durations are
// written as strings so the file reads naturally.
func defaultConfigFile() map[string]any {
	d := defaultSettings()
	return map[string]any{
		cfgKeyBackend:     d.Backend,
		cfgKeyDriver:      d.Driver,
		cfgKeyDatabase:    d.Database,
		cfgKeyPoolSize:    d.PoolSize,
		cfgKeyBusyTimeout: d.BusyTimeout.String(),
		"retry": map[string]any{
			"max_attempts": d.Retry.MaxAttempts,
			"backoff":      d.Retry.Backoff.String(),
		},
		cfgKeyListen:    d.Listen,
		cfgKeyStaticDir: d.StaticDir,
		"log": map[string]any{
			"level":  d.Log.Level,
			"format": d.Log.Format,
		},
	}
}
