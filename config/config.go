package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. FINGERPRINT_SERVER_PORT.
const EnvPrefix = "FINGERPRINT"

// Config represents the application configuration
type Config struct {
	LogLevel     string `mapstructure:"log_level"`
	OutputFormat string `mapstructure:"output_format"`
	Workers      int    `mapstructure:"workers"`

	Server   ServerConfig   `mapstructure:"server"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
}

// ServerConfig contains HTTP and socket.io settings
type ServerConfig struct {
	Protocol    string `mapstructure:"protocol"`
	Port        string `mapstructure:"port"`
	CertFile    string `mapstructure:"cert_file"`
	CertKey     string `mapstructure:"cert_key"`
	MaxUploadMB int    `mapstructure:"max_upload_mb"`
	StaticDir   string `mapstructure:"static_dir"`
}

// AnalysisConfig contains thresholds applied to analysis results
type AnalysisConfig struct {
	// TransientThreshold flags a block as transient when its RMS exceeds it.
	TransientThreshold float64 `mapstructure:"transient_threshold"`
}

// New returns a viper instance reading .env, FINGERPRINT_* variables and,
// when configFile is not empty, that YAML file.
func New(configFile string) (*viper.Viper, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file %s: %w", configFile, err)
		}
	}

	return v, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("output_format", "table")
	v.SetDefault("workers", 4)

	v.SetDefault("server.protocol", "http")
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.cert_file", "")
	v.SetDefault("server.cert_key", "")
	v.SetDefault("server.max_upload_mb", 64)
	v.SetDefault("server.static_dir", "static")

	v.SetDefault("analysis.transient_threshold", 0.1)
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}

	switch strings.ToLower(c.Server.Protocol) {
	case "http", "https":
	default:
		return fmt.Errorf("unsupported protocol %q (want http or https)", c.Server.Protocol)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if strings.EqualFold(c.Server.Protocol, "https") && (c.Server.CertFile == "" || c.Server.CertKey == "") {
		return fmt.Errorf("https requires server.cert_file and server.cert_key")
	}

	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	if c.Analysis.TransientThreshold < 0 {
		return fmt.Errorf("transient threshold cannot be negative")
	}

	return nil
}
