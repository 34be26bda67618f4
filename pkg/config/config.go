package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Blob      BlobConfig
	Upload    UploadConfig
	Presign   PresignConfig
	Retention RetentionConfig
	Metrics   MetricsConfig
	Audit     AuditConfig
	Process   ProcessConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BlobConfig describes the object-storage backend holding evidence bytes.
type BlobConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// StorageClass is the tier for live evidence; archive uses ArchiveClass.
	StorageClass   string
	ArchiveClass   string
	EncryptionMode string
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// UploadConfig gates inbound evidence payloads.
type UploadConfig struct {
	MaxFileSizeBytes int64
	// AllowedContentTypes accepts exact types and wildcard categories ("image/*").
	AllowedContentTypes []string
	OperationTimeout    time.Duration
}

// PresignConfig bounds capability (presigned URL) issuance.
type PresignConfig struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

// RetentionConfig drives the backup-before-delete flow. RetentionDays is a
// jurisdictional input, not a constant.
type RetentionConfig struct {
	RetentionDays      int
	RestoreDefaultDays int
	RestoreTier        string
}

// MetricsConfig parameterises storage metric thresholds and cost rates so
// operators can tune alerting without a redeploy.
type MetricsConfig struct {
	CacheTTL            time.Duration
	MaxTotalBytes       int64
	MaxArtifactCount    int64
	MaxMonthlyCostUSD   float64
	MaxUploadsPerDay    int64
	StandardRatePerGB   float64
	InfrequentRatePerGB float64
	ArchiveRatePerGB    float64
	RequestRatePer1000  float64
}

// AuditConfig sizes the non-blocking audit dispatch queue.
type AuditConfig struct {
	QueueSize int
}

// ProcessConfig tunes the post-upload verification workers.
type ProcessConfig struct {
	Workers    int
	MaxRetries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Blob = BlobConfig{
		Bucket:          v.GetString("BLOB_BUCKET"),
		Region:          v.GetString("BLOB_REGION"),
		Endpoint:        v.GetString("BLOB_ENDPOINT"),
		AccessKeyID:     v.GetString("BLOB_ACCESS_KEY_ID"),
		SecretAccessKey: v.GetString("BLOB_SECRET_ACCESS_KEY"),
		StorageClass:    v.GetString("BLOB_STORAGE_CLASS"),
		ArchiveClass:    v.GetString("BLOB_ARCHIVE_CLASS"),
		EncryptionMode:  v.GetString("BLOB_ENCRYPTION_MODE"),
		MaxRetries:      v.GetInt("BLOB_MAX_RETRIES"),
		RetryBaseDelay:  parseDuration(v.GetString("BLOB_RETRY_BASE_DELAY"), 200*time.Millisecond),
	}

	maxUploadSize := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 100 * 1024 * 1024
	}
	cfg.Upload = UploadConfig{
		MaxFileSizeBytes:    maxUploadSize,
		AllowedContentTypes: splitAndTrim(v.GetString("UPLOAD_ALLOWED_CONTENT_TYPES")),
		OperationTimeout:    parseDuration(v.GetString("UPLOAD_OPERATION_TIMEOUT"), 5*time.Minute),
	}

	cfg.Presign = PresignConfig{
		DefaultTTL: parseDuration(v.GetString("PRESIGN_DEFAULT_TTL"), 15*time.Minute),
		MaxTTL:     parseDuration(v.GetString("PRESIGN_MAX_TTL"), 4*time.Hour),
	}

	cfg.Retention = RetentionConfig{
		RetentionDays:      v.GetInt("RETENTION_DAYS"),
		RestoreDefaultDays: v.GetInt("RESTORE_DEFAULT_DAYS"),
		RestoreTier:        v.GetString("RESTORE_TIER"),
	}

	cfg.Metrics = MetricsConfig{
		CacheTTL:            parseDuration(v.GetString("METRICS_CACHE_TTL"), 5*time.Minute),
		MaxTotalBytes:       v.GetInt64("METRICS_MAX_TOTAL_BYTES"),
		MaxArtifactCount:    v.GetInt64("METRICS_MAX_ARTIFACT_COUNT"),
		MaxMonthlyCostUSD:   v.GetFloat64("METRICS_MAX_MONTHLY_COST_USD"),
		MaxUploadsPerDay:    v.GetInt64("METRICS_MAX_UPLOADS_PER_DAY"),
		StandardRatePerGB:   v.GetFloat64("METRICS_STANDARD_RATE_PER_GB"),
		InfrequentRatePerGB: v.GetFloat64("METRICS_INFREQUENT_RATE_PER_GB"),
		ArchiveRatePerGB:    v.GetFloat64("METRICS_ARCHIVE_RATE_PER_GB"),
		RequestRatePer1000:  v.GetFloat64("METRICS_REQUEST_RATE_PER_1000"),
	}

	cfg.Audit = AuditConfig{QueueSize: v.GetInt("AUDIT_QUEUE_SIZE")}

	cfg.Process = ProcessConfig{
		Workers:    v.GetInt("PROCESS_WORKERS"),
		MaxRetries: v.GetInt("PROCESS_MAX_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "police_evidence")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BLOB_BUCKET", "police-evidence")
	v.SetDefault("BLOB_REGION", "us-east-1")
	v.SetDefault("BLOB_ENDPOINT", "")
	v.SetDefault("BLOB_ACCESS_KEY_ID", "")
	v.SetDefault("BLOB_SECRET_ACCESS_KEY", "")
	v.SetDefault("BLOB_STORAGE_CLASS", "STANDARD_IA")
	v.SetDefault("BLOB_ARCHIVE_CLASS", "DEEP_ARCHIVE")
	v.SetDefault("BLOB_ENCRYPTION_MODE", "AES256")
	v.SetDefault("BLOB_MAX_RETRIES", 3)
	v.SetDefault("BLOB_RETRY_BASE_DELAY", "200ms")

	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 100*1024*1024)
	v.SetDefault("UPLOAD_ALLOWED_CONTENT_TYPES", "image/*,video/*,audio/*,application/pdf,text/plain")
	v.SetDefault("UPLOAD_OPERATION_TIMEOUT", "5m")

	v.SetDefault("PRESIGN_DEFAULT_TTL", "15m")
	v.SetDefault("PRESIGN_MAX_TTL", "4h")

	// 7 years, the common evidentiary minimum; override per jurisdiction.
	v.SetDefault("RETENTION_DAYS", 2555)
	v.SetDefault("RESTORE_DEFAULT_DAYS", 7)
	v.SetDefault("RESTORE_TIER", "Standard")

	v.SetDefault("METRICS_CACHE_TTL", "5m")
	v.SetDefault("METRICS_MAX_TOTAL_BYTES", 5*1024*1024*1024*1024)
	v.SetDefault("METRICS_MAX_ARTIFACT_COUNT", 1000000)
	v.SetDefault("METRICS_MAX_MONTHLY_COST_USD", 500)
	v.SetDefault("METRICS_MAX_UPLOADS_PER_DAY", 10000)
	v.SetDefault("METRICS_STANDARD_RATE_PER_GB", 0.023)
	v.SetDefault("METRICS_INFREQUENT_RATE_PER_GB", 0.0125)
	v.SetDefault("METRICS_ARCHIVE_RATE_PER_GB", 0.00099)
	v.SetDefault("METRICS_REQUEST_RATE_PER_1000", 0.005)

	v.SetDefault("AUDIT_QUEUE_SIZE", 1024)

	v.SetDefault("PROCESS_WORKERS", 2)
	v.SetDefault("PROCESS_MAX_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
