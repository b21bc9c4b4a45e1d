package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Target values accepted for export.target.
const (
	TargetS3    = "s3"
	TargetSFTP  = "sftp"
	TargetLocal = "local"
)

// Config holds every recognized option of the exporter.
type Config struct {
	Target        string        `yaml:"target" mapstructure:"target"`
	LocationCode  string        `yaml:"location_code" mapstructure:"location_code"`
	FileExtension string        `yaml:"file_extension" mapstructure:"file_extension"`
	Schedule      string        `yaml:"schedule" mapstructure:"schedule"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	ListenAddr    string        `yaml:"listen_addr" mapstructure:"listen_addr"`

	S3    S3Config    `yaml:"s3" mapstructure:"s3"`
	SFTP  SFTPConfig  `yaml:"sftp" mapstructure:"sftp"`
	Local LocalConfig `yaml:"local" mapstructure:"local"`
	Email EmailConfig `yaml:"email" mapstructure:"email"`

	TestEndpoint TestEndpointConfig `yaml:"test_endpoint" mapstructure:"test_endpoint"`
}

// S3Config configures the object-storage delivery target.
type S3Config struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Region          string `yaml:"region" mapstructure:"region"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
}

// SFTPConfig configures the secure-file-transfer delivery target.
type SFTPConfig struct {
	Host            string `yaml:"host" mapstructure:"host"`
	Port            int    `yaml:"port" mapstructure:"port"`
	Username        string `yaml:"username" mapstructure:"username"`
	Password        string `yaml:"password" mapstructure:"password"`
	PrivateKeyPath  string `yaml:"private_key_path" mapstructure:"private_key_path"`
	TargetDirectory string `yaml:"target_directory" mapstructure:"target_directory"`
}

// LocalConfig configures the local-filesystem delivery target.
type LocalConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// EmailConfig configures the emailed run report. Disabled means the report
// only goes to the application log.
type EmailConfig struct {
	Enabled  bool     `yaml:"enabled" mapstructure:"enabled"`
	From     string   `yaml:"from" mapstructure:"from"`
	To       []string `yaml:"to" mapstructure:"to"`
	Host     string   `yaml:"host" mapstructure:"host"`
	Port     int      `yaml:"port" mapstructure:"port"`
	Username string   `yaml:"username" mapstructure:"username"`
	Password string   `yaml:"password" mapstructure:"password"`
}

// TestEndpointConfig guards the on-demand export trigger.
type TestEndpointConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Token   string `yaml:"token" mapstructure:"token"`
}

func defaults() *Config {
	return &Config{
		Target:        TargetLocal,
		LocationCode:  "beints",
		FileExtension: "txt",
		MaxRetries:    10,
		RetryBackoff:  5 * time.Minute,
		ListenAddr:    ":8080",
		SFTP:          SFTPConfig{Port: 22},
		Email:         EmailConfig{Port: 587},
		Local:         LocalConfig{Path: "marc-exports"},
	}
}

// Load reads the exporter configuration from a YAML file, applies defaults
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field requirements. An unsupported target is a
// configuration error and must stop the process before any round runs.
func (c *Config) Validate() error {
	switch c.Target {
	case TargetS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("config: s3.bucket is required when target is %q", TargetS3)
		}
	case TargetSFTP:
		if c.SFTP.Host == "" || c.SFTP.Username == "" {
			return fmt.Errorf("config: sftp.host and sftp.username are required when target is %q", TargetSFTP)
		}
		if c.SFTP.Password == "" && c.SFTP.PrivateKeyPath == "" {
			return fmt.Errorf("config: sftp needs either a password or a private key")
		}
	case TargetLocal:
		if c.Local.Path == "" {
			return fmt.Errorf("config: local.path is required when target is %q", TargetLocal)
		}
	default:
		return fmt.Errorf("config: target value not supported: %q", c.Target)
	}

	if c.MaxRetries < 1 {
		return fmt.Errorf("config: max_retries must be at least 1")
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("config: invalid schedule %q: %w", c.Schedule, err)
		}
	}

	if c.Email.Enabled && (c.Email.From == "" || len(c.Email.To) == 0 || c.Email.Host == "") {
		return fmt.Errorf("config: email.from, email.to and email.host are required when email is enabled")
	}

	return nil
}
