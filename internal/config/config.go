package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
	BackendMinio    = "minio"
	// BackendMemory keeps everything in process; for local runs only.
	BackendMemory   = "memory"
)

type Config struct {
	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Document store: "postgres" (direct connection), "supabase" (PostgREST) or "memory"
	DocumentBackend string
	DatabaseURL     string

	// Blob store: "supabase", "s3", "minio" or "memory"
	BlobBackend string

	// S3-compatible storage
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3Region        string
	S3BaseEndpoint  string
	S3PublicBaseURL string

	// MinIO
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Realtime notifications (optional)
	RedisURL string

	// Vibe extraction endpoint (optional)
	VibesAPIURL string
	VibesAPIKey string

	// Mood boards
	SaveDebounce      time.Duration
	UploadConcurrency int
	DefaultPlanTier   string

	// Server
	Port               string
	Environment        string
	LogLevel           string
	CORSAllowedOrigins []string
	EnablePprof        bool
}

func Load() (*Config, error) {
	cfg := &Config{
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "mood-boards"),

		DocumentBackend: strings.ToLower(getEnv("DOCUMENT_BACKEND", BackendPostgres)),
		DatabaseURL:     getEnv("DATABASE_URL", ""),

		BlobBackend: strings.ToLower(getEnv("BLOB_BACKEND", BackendSupabase)),

		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		S3Bucket:        getEnv("S3_BUCKET", "mood-boards"),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3BaseEndpoint:  getEnv("S3_BASE_ENDPOINT", ""),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "mood-boards"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		RedisURL: getEnv("REDIS_URL", ""),

		VibesAPIURL: getEnv("VIBES_API_URL", ""),
		VibesAPIKey: getEnv("VIBES_API_KEY", ""),

		SaveDebounce:      getEnvDuration("SAVE_DEBOUNCE", time.Second),
		UploadConcurrency: getEnvInt("UPLOAD_CONCURRENCY", 4),
		DefaultPlanTier:   getEnv("DEFAULT_PLAN_TIER", "free"),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		EnablePprof:        getEnvBool("ENABLE_PPROF", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}

	switch c.DocumentBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres document backend")
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabasePublishableKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_PUBLISHABLE_KEY are required for the supabase document backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown DOCUMENT_BACKEND %q", c.DocumentBackend)
	}

	switch c.BlobBackend {
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabasePublishableKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_PUBLISHABLE_KEY are required for the supabase blob backend")
		}
	case BackendS3:
		if c.S3AccessKey == "" || c.S3SecretKey == "" {
			return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required for the s3 blob backend")
		}
	case BackendMinio:
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio blob backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}

	if c.SaveDebounce <= 0 {
		return fmt.Errorf("SAVE_DEBOUNCE must be positive")
	}
	if c.UploadConcurrency < 1 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvDuration accepts Go durations ("1s", "750ms") or plain milliseconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
