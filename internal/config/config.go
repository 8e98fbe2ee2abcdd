package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds node identity and shutdown configuration
type ServerConfig struct {
	NodeID          string        `yaml:"node_id"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Config represents the complete configuration for the document node
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Files    FilesConfig    `yaml:"files"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds database configuration. DSN may also come from the
// DOCNODE_DB_DSN environment variable, which takes precedence over the file.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite3" or "postgres"
	DSN    string `yaml:"dsn"`
}

// FilesConfig holds file store configuration
type FilesConfig struct {
	Backend  string   `yaml:"backend"` // "local" or "s3"
	BasePath string   `yaml:"base_path"`
	S3       S3Config `yaml:"s3"`
}

// S3Config holds object storage configuration. Credentials may also come
// from DOCNODE_S3_ACCESS_KEY / DOCNODE_S3_SECRET_KEY, which take precedence.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// SweeperConfig holds reconciliation sweeper configuration
type SweeperConfig struct {
	Interval    time.Duration `yaml:"interval"`
	GracePeriod time.Duration `yaml:"grace_period"`
	BatchLimit  int           `yaml:"batch_limit"`
	Retention   time.Duration `yaml:"retention"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig loads configuration from a file, layering environment overrides
// on top. A .env file in the working directory is read if present.
func LoadConfig(filePath string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	// Set defaults if not specified
	setDefaults(&cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets secrets stay out of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOCNODE_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DOCNODE_S3_ACCESS_KEY"); v != "" {
		cfg.Files.S3.AccessKeyID = v
	}
	if v := os.Getenv("DOCNODE_S3_SECRET_KEY"); v != "" {
		cfg.Files.S3.SecretAccessKey = v
	}
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite3"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite3" {
		cfg.Database.DSN = "/var/lib/docnode/docnode.db"
	}

	if cfg.Files.Backend == "" {
		cfg.Files.Backend = "local"
	}
	if cfg.Files.BasePath == "" {
		cfg.Files.BasePath = "/var/lib/docnode/sections"
	}
	if cfg.Files.S3.Region == "" {
		cfg.Files.S3.Region = "us-east-1"
	}

	if cfg.Sweeper.Interval == 0 {
		cfg.Sweeper.Interval = 1 * time.Minute
	}
	if cfg.Sweeper.GracePeriod == 0 {
		cfg.Sweeper.GracePeriod = 10 * time.Minute
	}
	if cfg.Sweeper.BatchLimit == 0 {
		cfg.Sweeper.BatchLimit = 100
	}
	if cfg.Sweeper.Retention == 0 {
		cfg.Sweeper.Retention = 72 * time.Hour
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9104
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.NodeID == "" {
		return fmt.Errorf("server.node_id is required")
	}
	if c.Database.Driver != "sqlite3" && c.Database.Driver != "postgres" {
		return fmt.Errorf("database.driver must be sqlite3 or postgres")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Files.Backend {
	case "local":
		if c.Files.BasePath == "" {
			return fmt.Errorf("files.base_path is required for the local backend")
		}
	case "s3":
		if c.Files.S3.Endpoint == "" || c.Files.S3.Bucket == "" {
			return fmt.Errorf("files.s3.endpoint and files.s3.bucket are required for the s3 backend")
		}
	default:
		return fmt.Errorf("files.backend must be local or s3")
	}
	if c.Sweeper.GracePeriod < time.Second {
		return fmt.Errorf("sweeper.grace_period must be at least 1s")
	}
	if c.Sweeper.BatchLimit < 1 {
		return fmt.Errorf("sweeper.batch_limit must be positive")
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535")
	}
	return nil
}
