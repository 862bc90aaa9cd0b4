package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	badgerrepo "github.com/tendant/simple-catalog/pkg/simplecatalog/repo/badger"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/repo/memory"
	repopg "github.com/tendant/simple-catalog/pkg/simplecatalog/repo/postgres"
	redisrepo "github.com/tendant/simple-catalog/pkg/simplecatalog/repo/redis"
	fsstorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/fs"
	memorystorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/memory"
	s3storage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/s3"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/urlstrategy"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FromEnv loads configuration from the process environment
func FromEnv() (*ServerConfig, error) {
	return Load(WithEnv())
}

// FromFile loads configuration from a yaml, json or env file; environment
// variables still override file values
func FromFile(path string) (*ServerConfig, error) {
	return Load(WithFile(path))
}

// DefaultPlaceholderURL is served in place of missing preview images
const DefaultPlaceholderURL = "https://placehold.co/400x300/1a1a1a/666666?text=Preview"

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "8080",
		Environment:        "development",
		DatabaseURL:        "memory",
		DBSchema:           "",
		StorageURL:         "memory://",
		PlaceholderURL:     DefaultPlaceholderURL,
		RequestTimeout:     30 * time.Second,
		CounterTimeout:     10 * time.Second,
		MaxUploadBytes:     100 << 20,
		EnableEventLogging: true,
		LogLevel:           "info",
		S3:                 S3Config{Region: "us-east-1"},
	}
}

// ServerConfig represents server configuration for the simple-catalog service.
// Field tags drive cleanenv for both environment variables and config files.
type ServerConfig struct {
	Port        string `yaml:"port" json:"port" env:"PORT" env-default:"8080"`
	Environment string `yaml:"environment" json:"environment" env:"ENVIRONMENT" env-default:"development"` // development, production, testing

	// Shared secret for /admin
	AdminKey string `yaml:"admin_key" json:"admin_key" env:"ADMIN_KEY"`

	// Public URL layout
	APIPrefix      string `yaml:"api_prefix" json:"api_prefix" env:"API_PREFIX"`
	CDNBaseURL     string `yaml:"cdn_base_url" json:"cdn_base_url" env:"CDN_BASE_URL"`
	PlaceholderURL string `yaml:"placeholder_url" json:"placeholder_url" env:"PLACEHOLDER_URL" env-default:"https://placehold.co/400x300/1a1a1a/666666?text=Preview"`

	// Stores: memory | postgres://... | redis://... | badger:///path
	DatabaseURL string `yaml:"database_url" json:"database_url" env:"DATABASE_URL" env-default:"memory"`
	DBSchema    string `yaml:"db_schema" json:"db_schema" env:"DB_SCHEMA"`
	// memory:// | file:///path | s3://bucket?region=&endpoint=&path_style=true
	StorageURL string   `yaml:"storage_url" json:"storage_url" env:"STORAGE_URL" env-default:"memory://"`
	S3         S3Config `yaml:"s3" json:"s3"`

	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"30s"`
	CounterTimeout time.Duration `yaml:"counter_timeout" json:"counter_timeout" env:"COUNTER_TIMEOUT" env-default:"10s"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" json:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-default:"104857600"`

	// Known categories; empty means the built-in list
	Categories []string `yaml:"categories" json:"categories" env:"CATEGORIES" env-separator:","`

	EnableEventLogging bool   `yaml:"enable_event_logging" json:"enable_event_logging" env:"ENABLE_EVENT_LOGGING" env-default:"true"`
	EnableMetrics      bool   `yaml:"enable_metrics" json:"enable_metrics" env:"ENABLE_METRICS" env-default:"false"`
	LogLevel           string `yaml:"log_level" json:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

// S3Config carries credentials and options that do not fit in STORAGE_URL
type S3Config struct {
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	Region          string `yaml:"region" json:"region" env:"AWS_REGION" env-default:"us-east-1"`
	EnableSSE       bool   `yaml:"enable_sse" json:"enable_sse" env:"AWS_S3_ENABLE_SSE" env-default:"false"`
	SSEAlgorithm    string `yaml:"sse_algorithm" json:"sse_algorithm" env:"AWS_S3_SSE_ALGORITHM" env-default:"AES256"`
	SSEKMSKeyID     string `yaml:"sse_kms_key_id" json:"sse_kms_key_id" env:"AWS_S3_SSE_KMS_KEY_ID"`
}

// Validate validates the store selectors and limits. It does not require an
// admin key so the CLI can share the configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if _, err := ParseDatabaseURL(c.DatabaseURL); err != nil {
		return err
	}
	if _, err := ParseStorageURL(c.StorageURL); err != nil {
		return err
	}
	if c.CounterTimeout <= 0 {
		return errors.New("counter_timeout must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	return nil
}

// ValidateServer additionally checks what only the HTTP server needs
func (c *ServerConfig) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.AdminKey == "" {
		return errors.New("admin_key is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}

// DatabaseType reports the metadata store kind, e.g. "postgres"
func (c *ServerConfig) DatabaseType() string {
	target, err := ParseDatabaseURL(c.DatabaseURL)
	if err != nil {
		return ""
	}
	return target.Type
}

// StorageType reports the asset store kind, e.g. "s3"
func (c *ServerConfig) StorageType() string {
	target, err := ParseStorageURL(c.StorageURL)
	if err != nil {
		return ""
	}
	return target.Type
}

// BuildService creates a Service instance from the server configuration.
// Extra options are applied last, e.g. a metrics event sink.
func (c *ServerConfig) BuildService(ctx context.Context, extra ...simplecatalog.Option) (simplecatalog.Service, error) {
	var options []simplecatalog.Option

	repo, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	options = append(options, simplecatalog.WithRepository(repo))

	store, err := c.BuildBlobStore(ctx)
	if err != nil {
		closeRepository(repo)
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}
	options = append(options, simplecatalog.WithBlobStore(store))

	options = append(options,
		simplecatalog.WithURLStrategy(urlstrategy.NewRecommendedStrategy(c.Environment, c.CDNBaseURL, c.APIPrefix)),
		simplecatalog.WithCounterTimeout(c.CounterTimeout),
	)
	if len(c.Categories) > 0 {
		options = append(options, simplecatalog.WithCategories(c.Categories))
	}
	if c.EnableEventLogging {
		options = append(options, simplecatalog.WithEventSink(simplecatalog.NewLoggingEventSink(slog.Default())))
	}
	options = append(options, extra...)

	svc, err := simplecatalog.New(options...)
	if err != nil {
		closeRepository(repo)
		return nil, err
	}
	return svc, nil
}

// BuildRepository opens the metadata store selected by DatabaseURL
func (c *ServerConfig) BuildRepository(ctx context.Context) (simplecatalog.Repository, error) {
	target, err := ParseDatabaseURL(c.DatabaseURL)
	if err != nil {
		return nil, err
	}

	switch target.Type {
	case "memory":
		return memory.New(), nil
	case "postgres":
		repo, err := repopg.Connect(ctx, target.URL, c.DBSchema)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return repo, nil
	case "redis":
		return redisrepo.NewFromURL(ctx, target.URL, redisrepo.WithPrefix(target.Prefix))
	case "badger":
		return badgerrepo.Open(badgerrepo.Config{Dir: target.Path, Prefix: target.Prefix})
	default:
		return nil, fmt.Errorf("unsupported database type: %s", target.Type)
	}
}

// BuildBlobStore opens the asset store selected by StorageURL
func (c *ServerConfig) BuildBlobStore(ctx context.Context) (simplecatalog.BlobStore, error) {
	target, err := ParseStorageURL(c.StorageURL)
	if err != nil {
		return nil, err
	}

	switch target.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: target.Path})
	case "s3":
		region := target.Region
		if region == "" {
			region = c.S3.Region
		}
		return s3storage.New(s3storage.Config{
			Region:                 region,
			Bucket:                 target.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               target.Endpoint,
			UsePathStyle:           target.PathStyle,
			EnableSSE:              c.S3.EnableSSE,
			SSEAlgorithm:           c.S3.SSEAlgorithm,
			SSEKMSKeyID:            c.S3.SSEKMSKeyID,
			CreateBucketIfNotExist: target.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", target.Type)
	}
}

func closeRepository(repo simplecatalog.Repository) {
	if closer, ok := repo.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("failed to close repository", "err", err)
		}
	}
}
