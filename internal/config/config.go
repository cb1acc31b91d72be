package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Identity
	JWTSecret string
	JWTExpiry time.Duration

	// Observability (optional)
	SentryDSN string

	// Storage
	StorageDriver     string // "s3" or "minio"
	StorageRootFolder string // Top-level folder every blob is stored under
	S3Region          string
	S3Bucket          string
	S3AccessKey       string
	S3SecretKey       string
	S3Endpoint        string // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
	MinioEndpoint     string // host:port, used when StorageDriver is "minio"
	MinioUseSSL       bool

	// Uploads
	MaxUploadSize    int64
	UploadRateLimit  int
	UploadRateWindow time.Duration
	UploadAuthExpiry time.Duration // Lifetime of presigned direct-upload URLs
	RedisURL         string        // Optional: shares the upload rate limit across instances
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		AppName: envString("APP_NAME", "Klaudly"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		Port:    envString("PORT", "8090"),

		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/klaudly.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),

		JWTSecret: envRequired("JWT_SECRET"),
		JWTExpiry: envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days

		SentryDSN: envString("SENTRY_DSN", ""),

		StorageDriver:     envString("STORAGE_DRIVER", "s3"),
		StorageRootFolder: envString("STORAGE_ROOT_FOLDER", "klaudly"),
		S3Region:          envString("S3_REGION", "us-east-1"),
		S3Bucket:          envString("S3_BUCKET", "klaudly"),
		S3AccessKey:       envString("S3_ACCESS_KEY", ""),
		S3SecretKey:       envString("S3_SECRET_KEY", ""),
		S3Endpoint:        envString("S3_ENDPOINT", ""),
		MinioEndpoint:     envString("MINIO_ENDPOINT", ""),
		MinioUseSSL:       envBool("MINIO_USE_SSL", false),

		MaxUploadSize:    envInt64("MAX_UPLOAD_SIZE", 25<<20), // 25MB
		UploadRateLimit:  int(envInt64("UPLOAD_RATE_LIMIT", 30)),
		UploadRateWindow: envDuration("UPLOAD_RATE_WINDOW", time.Minute),
		UploadAuthExpiry: envDuration("UPLOAD_AUTH_EXPIRY", 15*time.Minute),
		RedisURL:         envString("REDIS_URL", ""),
	}

	if cfg.StorageDriver == "minio" && cfg.MinioEndpoint == "" {
		slog.Error("config MINIO_ENDPOINT is required when STORAGE_DRIVER=minio")
		os.Exit(1)
	}

	return cfg
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		slog.Warn("config invalid integer, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
