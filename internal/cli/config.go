package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/treesync/internal/logging"
	"github.com/mesh-intelligence/treesync/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "TREESYNC"

	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeySnapshot     = "snapshot"
	cfgKeySyncStrategy = "sync_strategy"
	cfgKeyLogLevel     = "log_level"
	cfgKeyLogFormat    = "log_format"

	defaultBackend  = types.BackendSQLite
	defaultLogLevel = "warn"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Backend      string `yaml:"backend"`
	DataDir      string `yaml:"data_dir,omitempty"`
	Snapshot     string `yaml:"snapshot,omitempty"`
	SyncStrategy string `yaml:"sync_strategy,omitempty"`
	LogLevel     string `yaml:"log_level,omitempty"`
	LogFormat    string `yaml:"log_format,omitempty"`
}

// settings are the resolved configuration values of one invocation.
type settings struct {
	Backend      string
	DataDir      string
	Snapshot     string
	SyncStrategy string
	LogLevel     string
	LogFormat    string
}

// loadSettings reads config.yaml from configDir with viper. Environment
// variables prefixed TREESYNC_ override file values. A missing config.yaml
// is not an error.
func loadSettings(configDir string) (settings, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, logging.FormatConsole)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{cfgKeyBackend, cfgKeySnapshot, cfgKeySyncStrategy, cfgKeyLogLevel, cfgKeyLogFormat} {
		if err := v.BindEnv(key); err != nil {
			return settings{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	s := settings{
		Backend:      v.GetString(cfgKeyBackend),
		DataDir:      v.GetString(cfgKeyDataDir),
		Snapshot:     v.GetString(cfgKeySnapshot),
		SyncStrategy: v.GetString(cfgKeySyncStrategy),
		LogLevel:     v.GetString(cfgKeyLogLevel),
		LogFormat:    v.GetString(cfgKeyLogFormat),
	}
	return s, nil
}

// workspaceConfig builds the backend config for dataDir.
func (s settings) workspaceConfig(dataDir string) types.Config {
	return types.Config{
		Backend:      s.Backend,
		DataDir:      dataDir,
		SyncStrategy: s.SyncStrategy,
	}
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path string, cfg configFile) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
