package config

import (
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig selects and parameterizes the storage backend.
// Backend is a one-time factory decision at wiring time, not per call.
type StorageConfig struct {
	Backend       string // "minio" or "local"
	LocalDir      string
	PublicBaseURL string
	URLExpirySec  int
	MinIO         MinIOConfig
}

// UploadConfig holds the upload policy: size ceilings, allow/deny lists and
// the behavioral toggles of the ingestion pipeline. It is passed explicitly
// into each pipeline component at construction.
type UploadConfig struct {
	MaxSizeBytes         int64
	AllowedExtensions    []string
	ReuseEnabled         bool
	QuarantineSuspicious bool
	ContentScanEnabled   bool
}

// LogConfig holds structured-logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	Storage  StorageConfig
	Upload   UploadConfig
	Log      LogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", "minio"),
			LocalDir:      getEnv("STORAGE_LOCAL_DIR", "./data/documents"),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", ""),
			URLExpirySec:  getEnvInt("STORAGE_URL_EXPIRY_SEC", 900),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
		},
		Upload: UploadConfig{
			MaxSizeBytes:         int64(getEnvInt("UPLOAD_MAX_SIZE_BYTES", 25<<20)),
			AllowedExtensions:    getEnvList("UPLOAD_ALLOWED_EXTENSIONS", defaultAllowedExtensions),
			ReuseEnabled:         getEnvBool("UPLOAD_REUSE_ENABLED", true),
			QuarantineSuspicious: getEnvBool("UPLOAD_QUARANTINE_SUSPICIOUS", false),
			ContentScanEnabled:   getEnvBool("UPLOAD_CONTENT_SCAN_ENABLED", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

var defaultAllowedExtensions = []string{
	".pdf", ".png", ".jpg", ".jpeg", ".gif", ".webp",
	".doc", ".docx", ".xls", ".xlsx", ".txt", ".csv",
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

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
