package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage driver names accepted by STORAGE_DRIVER.
const (
	StorageDriverMinIO = "minio"
	StorageDriverS3    = "s3"
)

// DatabaseConfig holds PostgreSQL database connection settings.
// URL, when set, takes precedence over the individual fields.
type DatabaseConfig struct {
	URL                string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	QueryTimeoutSec    int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Config holds settings for the AWS S3 driver. Empty credentials fall back to
// the SDK's default provider chain.
type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
}

// StorageConfig selects and configures the object storage backend.
type StorageConfig struct {
	Driver         string
	TimeoutSec     int
	DownloadTTLSec int
	MinIO          MinIOConfig
	S3             S3Config
}

// Bucket returns the bucket name of the selected driver.
func (s StorageConfig) Bucket() string {
	if s.Driver == StorageDriverS3 {
		return s.S3.Bucket
	}
	return s.MinIO.Bucket
}

// ReconcileConfig controls the background sweep of abandoned uploads.
type ReconcileConfig struct {
	Enabled       bool
	IntervalSec   int
	StaleAfterSec int
	BatchSize     int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level    string
	Timezone string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	Database  DatabaseConfig
	Storage   StorageConfig
	Reconcile ReconcileConfig
	Log       LogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", ""),
		Port:    getEnv("PORT", "8000"),
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			QueryTimeoutSec:    getEnvInt("DB_TIMEOUT_SEC", 5),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverMinIO)),
			TimeoutSec:     getEnvInt("STORAGE_TIMEOUT_SEC", 30),
			DownloadTTLSec: getEnvInt("DOWNLOAD_URL_TTL_SEC", 3600),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				Region:    getEnv("MINIO_REGION", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			S3: S3Config{
				Bucket:          getEnv("S3_BUCKET_NAME", ""),
				Region:          getEnv("AWS_REGION", "us-east-1"),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Endpoint:        getEnv("AWS_ENDPOINT_URL_S3", ""),
				UsePathStyle:    getEnvBool("AWS_S3_FORCE_PATH_STYLE", false),
			},
		},
		Reconcile: ReconcileConfig{
			Enabled:       getEnvBool("RECONCILE_ENABLED", true),
			IntervalSec:   getEnvInt("RECONCILE_INTERVAL_SEC", 300),
			StaleAfterSec: getEnvInt("RECONCILE_STALE_AFTER_SEC", 900),
			BatchSize:     getEnvInt("RECONCILE_BATCH_SIZE", 100),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Timezone: getEnv("LOG_TIMEZONE", "UTC"),
		},
	}
}

// Validate reports missing settings that have no sensible default.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Database.URL == "" && (c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "") {
		errs = append(errs, errors.New("database: DATABASE_URL or DB_HOST, DB_USER and DB_NAME are required"))
	}
	switch c.Storage.Driver {
	case StorageDriverMinIO:
		if c.Storage.MinIO.Endpoint == "" {
			errs = append(errs, errors.New("storage: MINIO_ENDPOINT is required"))
		}
		if c.Storage.MinIO.AccessKey == "" || c.Storage.MinIO.SecretKey == "" {
			errs = append(errs, errors.New("storage: MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required"))
		}
		if c.Storage.MinIO.Bucket == "" {
			errs = append(errs, errors.New("storage: MINIO_BUCKET is required"))
		}
	case StorageDriverS3:
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage: S3_BUCKET_NAME is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage: unsupported STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Storage.DownloadTTLSec <= 0 {
		errs = append(errs, errors.New("storage: DOWNLOAD_URL_TTL_SEC must be positive"))
	}
	if c.Reconcile.Enabled {
		// A pending row younger than one upload (reserve, store, commit) may still be in flight.
		inFlight := c.Storage.TimeoutSec + 2*c.Database.QueryTimeoutSec
		if c.Reconcile.StaleAfterSec <= inFlight {
			errs = append(errs, fmt.Errorf(
				"reconcile: RECONCILE_STALE_AFTER_SEC (%d) must exceed STORAGE_TIMEOUT_SEC + 2*DB_TIMEOUT_SEC (%d)",
				c.Reconcile.StaleAfterSec, inFlight))
		}
		if c.Reconcile.IntervalSec <= 0 || c.Reconcile.BatchSize <= 0 {
			errs = append(errs, errors.New("reconcile: RECONCILE_INTERVAL_SEC and RECONCILE_BATCH_SIZE must be positive"))
		}
	}
	return errors.Join(errs...)
}

// Location resolves the configured log timezone, falling back to UTC.
func (l LogConfig) Location() *time.Location {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Seconds converts a config value in seconds to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
