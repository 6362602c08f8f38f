package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"docflow-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string

	DatabaseURL    string
	AutoMigrate    bool
	MaxUploadBytes int64

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool

	JWTSecret string
	JWTTTL    time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	AuthRateLimit  float64
	AuthRateBurst  int
	DefaultTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

// loadEnvFiles reads each file that exists. Variables already set win.
func loadEnvFiles(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			telemetry.Warn("config.env_file_unreadable", map[string]any{"path": p, "error": err.Error()})
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./uploads")
	v.SetDefault("MINIO_BUCKET", "docflow-documents")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("KAFKA_TOPIC", "docflow.documents")
	v.SetDefault("AUTH_RATE_LIMIT", 0.2)
	v.SetDefault("AUTH_RATE_BURST", 10)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
}

func fromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	secret := strings.TrimSpace(v.GetString("JWT_SECRET"))

	if env == "production" && dbURL == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "DATABASE_URL"})
	}
	if env == "production" && secret == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "JWT_SECRET"})
	}

	return Config{
		Port:            v.GetString("PORT"),
		Env:             env,
		LogLevel:        v.GetString("LOG_LEVEL"),
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		DatabaseURL:     dbURL,
		AutoMigrate:     v.GetBool("AUTO_MIGRATE"),
		MaxUploadBytes:  v.GetInt64("MAX_UPLOAD_BYTES"),
		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),
		MinioEndpoint:   v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:  v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:  v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:     v.GetString("MINIO_BUCKET"),
		MinioUseSSL:     v.GetBool("MINIO_USE_SSL"),
		JWTSecret:       secret,
		JWTTTL:          v.GetDuration("JWT_TTL"),
		KafkaBrokers:    splitAndTrim(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:      v.GetString("KAFKA_TOPIC"),
		AuthRateLimit:   v.GetFloat64("AUTH_RATE_LIMIT"),
		AuthRateBurst:   v.GetInt("AUTH_RATE_BURST"),
		DefaultTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
	}
}

// IsDevLike reports whether in-memory fallbacks are acceptable.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}
