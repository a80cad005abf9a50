package config

// DefaultConfigDir is where the configuration file is looked up when no
// explicit path is given. The hook runs inside kadmind as a service, so
// a system path is the default rather than a per-user one.
const DefaultConfigDir = "/etc/krbsync"

// DefaultConfigPath is the default configuration file location.
const DefaultConfigPath = DefaultConfigDir + "/config.yaml"

// GetDefaultConfig returns a configuration with every default applied
// and no synchronization target configured.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in defaults for any unset values.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	if cfg.AD.Krb5Conf == "" {
		cfg.AD.Krb5Conf = "/etc/krb5.conf"
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = "localhost:9464"
	}
}
