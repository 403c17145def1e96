package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AI       AIConfig
	Safety   SafetyConfig
	Archive  ArchiveConfig
	SMTP     SMTPConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	MaxRetries   int    `mapstructure:"max_retries"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpiryMinutes int    `mapstructure:"expiry_minutes"`
}

type AIConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type SafetyConfig struct {
	// AIWarningsSuppressible controls whether AI-sourced warnings get
	// deterministic ids and therefore participate in suppression. The
	// observed product behavior is false: AI warnings always require a
	// fresh review. Flagged for product sign-off.
	AIWarningsSuppressible bool `mapstructure:"ai_warnings_suppressible"`
	// ChildAgeThreshold is the age bound used when a forbidden
	// restriction carries no explicit minimum age.
	ChildAgeThreshold int `mapstructure:"child_age_threshold"`
}

type ArchiveConfig struct {
	Hour               int    `mapstructure:"hour"`
	BackupDir          string `mapstructure:"backup_dir"`
	EmailTo            string `mapstructure:"email_to"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

func (c *AIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *SafetyConfig) Threshold() int {
	if c.ChildAgeThreshold <= 0 {
		return 15
	}
	return c.ChildAgeThreshold
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// WorkerConfig is the environment-driven configuration for the archive
// worker binary, which runs without the API server's YAML file.
type WorkerConfig struct {
	DatabaseHost       string `envconfig:"DB_HOST" default:"localhost"`
	DatabasePort       int    `envconfig:"DB_PORT" default:"5432"`
	DatabaseUser       string `envconfig:"DB_USER" default:"meddoc"`
	DatabasePassword   string `envconfig:"DB_PASSWORD"`
	DatabaseName       string `envconfig:"DB_NAME" default:"meddoc"`
	DatabaseSSLMode    string `envconfig:"DB_SSLMODE" default:"disable"`
	MetricsPort        int    `envconfig:"METRICS_PORT" default:"9091"`
	ArchiveHour        int    `envconfig:"ARCHIVE_HOUR" default:"20"`
	BackupDir          string `envconfig:"BACKUP_DIR" default:"./backups"`
	AuditRetentionDays int    `envconfig:"AUDIT_RETENTION_DAYS" default:"365"`
	SMTPHost           string `envconfig:"SMTP_HOST"`
	SMTPPort           int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser           string `envconfig:"SMTP_USER"`
	SMTPPassword       string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom           string `envconfig:"SMTP_FROM"`
	ReportEmailTo      string `envconfig:"REPORT_EMAIL_TO"`
}

func LoadWorkerConfig() (*WorkerConfig, error) {
	var cfg WorkerConfig
	if err := envconfig.Process("meddoc", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process worker environment: %w", err)
	}
	return &cfg, nil
}

func (c *WorkerConfig) Database() DatabaseConfig {
	return DatabaseConfig{
		Host:     c.DatabaseHost,
		Port:     c.DatabasePort,
		User:     c.DatabaseUser,
		Password: c.DatabasePassword,
		Name:     c.DatabaseName,
		SSLMode:  c.DatabaseSSLMode,
	}
}
