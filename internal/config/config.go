package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"content-review-orchestrator/internal/storage"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"

	DispatchInline   = "inline"
	DispatchTemporal = "temporal"
)

type Config struct {
	HTTPPort string

	StoreDriver string
	PostgresDSN string
	SQLitePath  string

	TemporalAddress   string
	TemporalNamespace string
	TemporalTaskQueue string
	WorkflowIDPrefix  string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAITimeoutSec int

	AutoReviewTimeout  time.Duration
	AutoReviewWorkers  int64
	AutoReviewRules    string
	AutoReviewDispatch string

	ReviewerPool         []string
	HumanReviewersPerJob int
	IDScheme             string

	LogLevel  string
	LogFormat string
}

func defaults(v *viper.Viper) {
	v.SetDefault("http_port", "8080")
	v.SetDefault("store_driver", StoreDriverPostgres)
	v.SetDefault("sqlite_path", "data/review.db")
	v.SetDefault("temporal_address", "localhost:7233")
	v.SetDefault("temporal_namespace", "default")
	v.SetDefault("temporal_task_queue", "content-review-task-queue")
	v.SetDefault("workflow_id_prefix", "auto-review")
	v.SetDefault("minio_endpoint", "localhost:9000")
	v.SetDefault("minio_bucket", "content")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("openai_timeout_sec", 30)
	v.SetDefault("auto_review_timeout_ms", 5000)
	v.SetDefault("auto_review_workers", 8)
	v.SetDefault("auto_review_dispatch", DispatchInline)
	v.SetDefault("human_reviewers_per_job", 1)
	v.SetDefault("id_scheme", "uuid")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads the process environment. A .env file in the working directory
// is applied first when present, and CONFIG_FILE may name a YAML file whose
// keys are the lower-cased variable names. Environment variables win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	v := viper.New()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from v with environment overrides and defaults applied.
func FromViper(v *viper.Viper) (Config, error) {
	v.AutomaticEnv()
	defaults(v)

	cfg := Config{
		HTTPPort:             v.GetString("http_port"),
		StoreDriver:          strings.ToLower(v.GetString("store_driver")),
		PostgresDSN:          v.GetString("postgres_dsn"),
		SQLitePath:           v.GetString("sqlite_path"),
		TemporalAddress:      v.GetString("temporal_address"),
		TemporalNamespace:    v.GetString("temporal_namespace"),
		TemporalTaskQueue:    v.GetString("temporal_task_queue"),
		WorkflowIDPrefix:     v.GetString("workflow_id_prefix"),
		MinioEndpoint:        v.GetString("minio_endpoint"),
		MinioAccessKey:       v.GetString("minio_access_key"),
		MinioSecretKey:       v.GetString("minio_secret_key"),
		MinioBucket:          v.GetString("minio_bucket"),
		MinioUseSSL:          v.GetBool("minio_use_ssl"),
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		OpenAIModel:          v.GetString("openai_model"),
		OpenAITimeoutSec:     v.GetInt("openai_timeout_sec"),
		AutoReviewTimeout:    time.Duration(v.GetInt("auto_review_timeout_ms")) * time.Millisecond,
		AutoReviewWorkers:    v.GetInt64("auto_review_workers"),
		AutoReviewRules:      v.GetString("auto_review_rules"),
		AutoReviewDispatch:   strings.ToLower(v.GetString("auto_review_dispatch")),
		ReviewerPool:         splitList(v.GetString("reviewer_pool")),
		HumanReviewersPerJob: v.GetInt("human_reviewers_per_job"),
		IDScheme:             strings.ToLower(v.GetString("id_scheme")),
		LogLevel:             v.GetString("log_level"),
		LogFormat:            v.GetString("log_format"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=%s", StoreDriverSQLite)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of postgres, sqlite, memory; got %q", c.StoreDriver)
	}

	switch c.AutoReviewDispatch {
	case DispatchInline, DispatchTemporal:
	default:
		return fmt.Errorf("AUTO_REVIEW_DISPATCH must be inline or temporal; got %q", c.AutoReviewDispatch)
	}

	if c.AutoReviewTimeout <= 0 {
		return fmt.Errorf("AUTO_REVIEW_TIMEOUT_MS must be positive")
	}
	if c.AutoReviewWorkers <= 0 {
		return fmt.Errorf("AUTO_REVIEW_WORKERS must be positive")
	}
	if c.HumanReviewersPerJob < 0 {
		return fmt.Errorf("HUMAN_REVIEWERS_PER_JOB must not be negative")
	}
	if c.OpenAITimeoutSec <= 0 {
		return fmt.Errorf("OPENAI_TIMEOUT_SEC must be positive")
	}
	return nil
}

func (c Config) Minio() storage.MinioConfig {
	return storage.MinioConfig{
		Endpoint:  c.MinioEndpoint,
		AccessKey: c.MinioAccessKey,
		SecretKey: c.MinioSecretKey,
		UseSSL:    c.MinioUseSSL,
		Bucket:    c.MinioBucket,
	}
}

func (c Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAITimeoutSec) * time.Second
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
