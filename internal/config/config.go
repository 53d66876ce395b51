package config

import (
	"errors"  // Validation errors
	"fmt"     // Error wrapping
	"strings" // Driver normalization
	"time"    // Durations for TTLs and timeouts

	"github.com/ilyakaznacheev/cleanenv" // Struct-tag environment loader
	"github.com/joho/godotenv"           // For loading .env files
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application configuration
type Config struct {
	AppPort   string `env:"APP_PORT" env-default:"8080"`     // Application port
	IsProd    bool   `env:"IS_PROD" env-default:"false"`     // Is production environment
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`    // logrus level name
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`   // text or json
	ShopName  string `env:"SHOP_NAME" env-default:"Oficina"` // Printed on PDF exports and emails

	DBDriver          string        `env:"DB_DRIVER" env-default:"mysql"`          // mysql, postgres or sqlite
	DBDSN             string        `env:"DB_DSN"`                                 // Full DSN, overrides the parts below
	DBUser            string        `env:"DB_USER"`                                // Database user
	DBPassword        string        `env:"DB_PASSWORD"`                            // Database password
	DBHost            string        `env:"DB_HOST" env-default:"localhost"`        // Database host
	DBPort            string        `env:"DB_PORT"`                                // Database port
	DBName            string        `env:"DB_NAME" env-default:"oficina"`          // Database name (file path for sqlite)
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"20"`     // Pool ceiling
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`      // Idle connections kept
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"30m"` // Connection recycle age
	DBConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" env-default:"30s"`   // Total retry budget at startup

	JWTSecret     string        `env:"JWT_SECRET" env-required:"true"`    // JWT secret key
	JWTTTL        time.Duration `env:"JWT_TTL" env-default:"24h"`         // Session token lifetime
	PublicLinkTTL time.Duration `env:"PUBLIC_LINK_TTL" env-default:"72h"` // Public order link lifetime

	RedisAddr string        `env:"REDIS_ADDR"`                 // Redis server address, empty disables caching
	RedisPass string        `env:"REDIS_PASS"`                 // Redis password
	RedisDB   int           `env:"REDIS_DB" env-default:"0"`   // Redis database number
	CacheTTL  time.Duration `env:"CACHE_TTL" env-default:"5m"` // Report cache lifetime

	StorageEndpoint  string `env:"STORAGE_ENDPOINT"`                       // S3-compatible endpoint, empty disables uploads
	StorageAccessKey string `env:"STORAGE_ACCESS_KEY"`                     // Access key id
	StorageSecretKey string `env:"STORAGE_SECRET_KEY"`                     // Secret access key
	StorageBucket    string `env:"STORAGE_BUCKET" env-default:"oficina"`   // Bucket holding uploads
	StorageUseSSL    bool   `env:"STORAGE_USE_SSL" env-default:"true"`     // TLS to the endpoint
	StoragePublicURL string `env:"STORAGE_PUBLIC_URL"`                     // CDN base for stored objects
	MaxUploadSize    int64  `env:"MAX_UPLOAD_SIZE" env-default:"10485760"` // Bytes accepted per upload

	SMTPHost     string `env:"SMTP_HOST"`                   // Outbound mail host, empty disables email
	SMTPPort     int    `env:"SMTP_PORT" env-default:"587"` // Outbound mail port
	SMTPUser     string `env:"SMTP_USER"`                   // SMTP login
	SMTPPassword string `env:"SMTP_PASSWORD"`               // SMTP password
	SMTPFrom     string `env:"SMTP_FROM"`                   // Sender address

	FrontendURL string `env:"FRONTEND_URL" env-default:"http://localhost:5173"` // SPA origin for CORS and links

	AdminEmail    string `env:"ADMIN_EMAIL"`    // Seeded administrator login
	AdminPassword string `env:"ADMIN_PASSWORD"` // Seeded administrator password
}

// LoadConfig loads configuration from the environment, reading .env first when present
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("config: JWT_SECRET must be at least 32 characters"))
	}
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver))
	}
	if c.JWTTTL <= 0 || c.PublicLinkTTL <= 0 {
		errs = append(errs, errors.New("config: token lifetimes must be positive"))
	}
	if c.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("config: MAX_UPLOAD_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// StorageEnabled reports whether an object store is configured
func (c *Config) StorageEnabled() bool { return c.StorageEndpoint != "" }

// MailEnabled reports whether outbound email is configured
func (c *Config) MailEnabled() bool { return c.SMTPHost != "" }
