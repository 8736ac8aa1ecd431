package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type AWSConfig struct {
	Region   string
	Endpoint string // non-empty for localstack
}

type DynamoDBConfig struct {
	CasesTableName string
	FilesTableName string
}

type S3Config struct {
	EvidenceBucket string
}

type RedisConfig struct {
	Host string
}

type ServiceConfig struct {
	HTTPAddr            string
	AuthSecret          string
	StorageEventsQueue  string
	ReaperInterval      time.Duration
	DownloadURLTTL      time.Duration
	MaxDownloadURLTTL   time.Duration
	MaxFileSizeBytes    int64
	SessionExpiryWindow time.Duration
}

type Config struct {
	Env         string
	Tracing     bool
	TracingAddr string

	AWSConfig      *AWSConfig
	DynamoDBConfig *DynamoDBConfig
	S3Config       *S3Config
	RedisConfig    *RedisConfig
	ServiceConfig  *ServiceConfig
}

// LoadConfig reads everything from the environment. A .env file, if present,
// was already folded in by godotenv's autoload import.
func LoadConfig() Config {
	return Config{
		Env:         getEnv("APP_ENV", "development"),
		Tracing:     getBool("TRACING_ENABLED", false),
		TracingAddr: getEnv("TRACING_ADDR", "localhost:4317"),

		AWSConfig: &AWSConfig{
			Region:   getEnv("AWS_REGION", "us-east-1"),
			Endpoint: getEnv("AWS_ENDPOINT", ""),
		},
		DynamoDBConfig: &DynamoDBConfig{
			CasesTableName: getEnv("CASES_TABLE", "cases"),
			FilesTableName: getEnv("CASE_FILES_TABLE", "case_files"),
		},
		S3Config: &S3Config{
			EvidenceBucket: getEnv("EVIDENCE_BUCKET", "casevault-evidence"),
		},
		RedisConfig: &RedisConfig{
			Host: getEnv("REDIS_HOST", ""),
		},
		ServiceConfig: &ServiceConfig{
			HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
			AuthSecret:          getEnv("AUTH_SECRET", ""),
			StorageEventsQueue:  getEnv("STORAGE_EVENTS_QUEUE_URL", ""),
			ReaperInterval:      getDuration("REAPER_INTERVAL", 0),
			DownloadURLTTL:      getDuration("DOWNLOAD_URL_TTL", time.Hour),
			MaxDownloadURLTTL:   getDuration("MAX_DOWNLOAD_URL_TTL", 24*time.Hour),
			MaxFileSizeBytes:    getInt64("MAX_FILE_SIZE_BYTES", 100*1024*1024),
			SessionExpiryWindow: getDuration("SESSION_EXPIRY_WINDOW", time.Hour),
		},
	}
}

// Validate checks the settings the service cannot run without.
func (c Config) Validate() error {
	if c.ServiceConfig.AuthSecret == "" {
		return errors.New("AUTH_SECRET is required")
	}
	if c.S3Config.EvidenceBucket == "" {
		return errors.New("EVIDENCE_BUCKET is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getInt64(key string, fallback int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
