package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Billing   BillingConfig   `yaml:"billing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Redis     RedisConfig     `yaml:"redis"`
	SQS       SQSConfig       `yaml:"sqs"`
	Firebase  FirebaseConfig  `yaml:"firebase"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig contains the HTTP and gRPC listener settings
type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	GRPCPort               int    `yaml:"grpc_port"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings. Type "memory"
// runs against the in-process store and ignores the connection fields.
type DatabaseConfig struct {
	Type         string `yaml:"type"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// JWTConfig contains the shared secret used to verify access tokens
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// BillingConfig contains pricing and payment policy settings
type BillingConfig struct {
	Currency               string `yaml:"currency"`
	ChargeExtensions       bool   `yaml:"charge_extensions"`
	ReservationHoldMinutes int    `yaml:"reservation_hold_minutes"`
	StartSkewMinutes       int    `yaml:"start_skew_minutes"`
}

// SchedulerConfig contains cron schedule settings (with seconds field)
type SchedulerConfig struct {
	ExpireSessions           string `yaml:"expire_sessions"`
	SendExpiryAlerts         string `yaml:"send_expiry_alerts"`
	ExpireUnpaidReservations string `yaml:"expire_unpaid_reservations"`
	CompleteReservations     string `yaml:"complete_reservations"`
	ReconcileWallets         string `yaml:"reconcile_wallets"`
	LockTTLSeconds           int    `yaml:"lock_ttl_seconds"`
}

// RedisConfig contains the occupancy cache and job lock settings. An empty
// address disables both.
type RedisConfig struct {
	Addr                string `yaml:"addr"`
	Password            string `yaml:"password"`
	DB                  int    `yaml:"db"`
	OccupancyTTLSeconds int    `yaml:"occupancy_ttl_seconds"`
}

// SQSConfig contains the delayed reservation-expiry queue settings. An empty
// queue URL falls back to the in-process delayer.
type SQSConfig struct {
	Region   string `yaml:"region"`
	QueueURL string `yaml:"queue_url"`
	Endpoint string `yaml:"endpoint"`
}

// FirebaseConfig contains push notification credentials
type FirebaseConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	ProjectID       string `yaml:"project_id"`
}

// SendGridConfig contains email delivery settings
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file, then applies a local .env file
// and environment variables on top of it.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	envString("SERVER_HOST", &c.Server.Host)
	envInt("SERVER_PORT", &c.Server.Port)
	envInt("GRPC_PORT", &c.Server.GRPCPort)

	envString("DB_TYPE", &c.Database.Type)
	envString("DB_HOST", &c.Database.Host)
	envInt("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)
	envBool("DB_AUTO_MIGRATE", &c.Database.AutoMigrate)

	envString("JWT_SECRET", &c.JWT.Secret)

	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	envBool("BILLING_CHARGE_EXTENSIONS", &c.Billing.ChargeExtensions)

	envString("REDIS_ADDR", &c.Redis.Addr)
	envString("REDIS_PASSWORD", &c.Redis.Password)
	envInt("REDIS_DB", &c.Redis.DB)

	envString("SQS_REGION", &c.SQS.Region)
	envString("SQS_QUEUE_URL", &c.SQS.QueueURL)
	envString("SQS_ENDPOINT", &c.SQS.Endpoint)

	envString("FIREBASE_CREDENTIALS_FILE", &c.Firebase.CredentialsFile)
	envString("FIREBASE_PROJECT_ID", &c.Firebase.ProjectID)

	envString("SENDGRID_API_KEY", &c.SendGrid.APIKey)
	envString("SENDGRID_FROM_EMAIL", &c.SendGrid.FromEmail)
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = 15
	}

	if c.Database.Type == "" {
		c.Database.Type = "postgres"
	}
	switch c.Database.Type {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
		if c.Database.MaxOpenConns == 0 {
			c.Database.MaxOpenConns = 20
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Billing defaults
	if c.Billing.Currency == "" {
		c.Billing.Currency = "UGX"
	}
	if c.Billing.ReservationHoldMinutes == 0 {
		c.Billing.ReservationHoldMinutes = 15
	}
	if c.Billing.ReservationHoldMinutes > 15 && c.SQS.QueueURL != "" {
		return fmt.Errorf("reservation hold of %d minutes exceeds the SQS delay limit of 15", c.Billing.ReservationHoldMinutes)
	}
	if c.Billing.StartSkewMinutes == 0 {
		c.Billing.StartSkewMinutes = 10
	}

	// Scheduler defaults
	if c.Scheduler.ExpireSessions == "" {
		c.Scheduler.ExpireSessions = "0 * * * * *" // every minute
	}
	if c.Scheduler.SendExpiryAlerts == "" {
		c.Scheduler.SendExpiryAlerts = "30 * * * * *" // every minute, offset
	}
	if c.Scheduler.ExpireUnpaidReservations == "" {
		c.Scheduler.ExpireUnpaidReservations = "0 */5 * * * *"
	}
	if c.Scheduler.CompleteReservations == "" {
		c.Scheduler.CompleteReservations = "15 * * * * *"
	}
	if c.Scheduler.ReconcileWallets == "" {
		c.Scheduler.ReconcileWallets = "0 0 3 * * *" // 3 AM UTC
	}
	if c.Scheduler.LockTTLSeconds == 0 {
		c.Scheduler.LockTTLSeconds = 55
	}

	if c.Redis.OccupancyTTLSeconds == 0 {
		c.Redis.OccupancyTTLSeconds = 10
	}
	if c.SQS.QueueURL != "" && c.SQS.Region == "" {
		c.SQS.Region = "us-east-1"
	}
	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "SmartPark"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health listener address, or "" when disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func (c *Config) ReservationHold() time.Duration {
	return time.Duration(c.Billing.ReservationHoldMinutes) * time.Minute
}

func (c *Config) StartSkew() time.Duration {
	return time.Duration(c.Billing.StartSkewMinutes) * time.Minute
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Scheduler.LockTTLSeconds) * time.Second
}

func (c *Config) OccupancyTTL() time.Duration {
	return time.Duration(c.Redis.OccupancyTTLSeconds) * time.Second
}
