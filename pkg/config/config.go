// Package config loads the krbsync configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (KRBSYNC_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// The loaded Config is an immutable value: the hook never mutates it,
// and several independent configurations can coexist in one process
// (which the tests rely on).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the krbsync configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// AD configures the Active Directory side of the synchronization.
	AD ADConfig `mapstructure:"ad" yaml:"ad"`

	// Queue configures the durable retry queue.
	Queue QueueConfig `mapstructure:"queue" yaml:"queue"`

	// Metrics configures the Prometheus endpoint exposed by the
	// long-running queue processor.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a
	// file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ADConfig holds the Active Directory connection and propagation
// settings. Every field is optional: password synchronization is off
// entirely until Realm is set, and status synchronization additionally
// needs AdminServer, Keytab, Principal, and LDAPBase.
type ADConfig struct {
	// Realm is the Active Directory Kerberos realm. Synchronization is
	// disabled while it is empty.
	Realm string `mapstructure:"realm" yaml:"realm"`

	// Keytab holds the credentials used to authenticate to AD.
	Keytab string `mapstructure:"keytab" yaml:"keytab"`

	// Principal is the principal in the keytab used for the AD bind.
	Principal string `mapstructure:"principal" yaml:"principal"`

	// AdminServer is the AD domain controller handling LDAP writes.
	AdminServer string `mapstructure:"admin_server" yaml:"admin_server"`

	// LDAPBase is the directory search base for locating accounts.
	LDAPBase string `mapstructure:"ldap_base" yaml:"ldap_base"`

	// Instances lists the instance names whose multi-part principals
	// are still propagated. In a YAML file it is a list; from the
	// environment or legacy configs a space-delimited string is
	// accepted.
	Instances []string `mapstructure:"instances" yaml:"instances,omitempty"`

	// BaseInstance, when set, makes password changes for
	// <name>/<BaseInstance> propagate to the bare <name> account in AD,
	// and suppresses direct changes of <name> when that instance
	// exists.
	BaseInstance string `mapstructure:"base_instance" yaml:"base_instance,omitempty"`

	// QueueOnly forces every change into the queue without a direct
	// synchronization attempt.
	QueueOnly bool `mapstructure:"queue_only" yaml:"queue_only"`

	// Krb5Conf is the Kerberos configuration file used for the AD bind
	// and the local-KDC existence probe.
	Krb5Conf string `mapstructure:"krb5_conf" yaml:"krb5_conf"`
}

// QueueConfig configures the durable retry queue.
type QueueConfig struct {
	// Dir is the queue directory shared between the hook and the
	// processing tool. Queue operations fail loudly while it is unset
	// or missing.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// MetricsConfig configures the Prometheus metrics endpoint. It is only
// served by `krbsync queue process --watch`; the short-lived commands
// have nothing useful to scrape.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Listen is the address of the metrics HTTP endpoint.
	Listen string `mapstructure:"listen" validate:"omitempty,hostname_port" yaml:"listen"`
}

// Load loads configuration from file, environment, and defaults. An
// empty configPath uses the default location; a missing file yields the
// defaults, since a host with no krbsync configuration simply does not
// synchronize.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path in YAML. The file is created
// owner-read/write only since the configuration points at credential
// material.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures environment variable support and the config
// file location. Environment variables use the KRBSYNC_ prefix, e.g.
// KRBSYNC_QUEUE_DIR=/var/spool/krbsync.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("KRBSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(DefaultConfigDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists, reporting
// whether one was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the decode hooks for custom value forms.
// The string-to-slice hook accepts the historical space-delimited form
// of the instance allow-list.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(" "),
	)
}
