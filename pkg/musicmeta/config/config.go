package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tunebox/music-meta/pkg/musicmeta"
	"github.com/tunebox/music-meta/pkg/musicmeta/repo/memory"
	repopg "github.com/tunebox/music-meta/pkg/musicmeta/repo/postgres"
	fsstorage "github.com/tunebox/music-meta/pkg/musicmeta/storage/fs"
	memorystorage "github.com/tunebox/music-meta/pkg/musicmeta/storage/memory"
	miniostorage "github.com/tunebox/music-meta/pkg/musicmeta/storage/minio"
	s3storage "github.com/tunebox/music-meta/pkg/musicmeta/storage/s3"
	"github.com/tunebox/music-meta/pkg/musicmeta/urlstrategy"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
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

func defaults() ServerConfig {
	return ServerConfig{
		Port:                  "8080",
		Environment:           "development",
		DatabaseType:          "memory",
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{
				Name:   "memory",
				Type:   "memory",
				Config: map[string]interface{}{},
			},
		},
		AssetBaseURL:  "http://localhost:8080/assets",
		MaxUploadSize: musicmeta.DefaultMaxUploadSize,
	}
}

// ServerConfig represents server configuration for the music metadata service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Storage configuration
	DefaultStorageBackend string
	StorageBackends       []StorageBackendConfig

	// AssetBaseURL is the public prefix asset URLs are built from when the
	// backend has no canonical URL form of its own.
	AssetBaseURL string

	// MaxUploadSize caps a single asset upload, in bytes.
	MaxUploadSize int64
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Name   string
	Type   string // "memory", "fs", "s3", "minio"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.MaxUploadSize <= 0 {
		return errors.New("max_upload_size must be positive")
	}

	found := false
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultStorageBackend {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (musicmeta.Service, error) {
	var options []musicmeta.Option

	music, users, err := c.buildRepositories()
	if err != nil {
		return nil, fmt.Errorf("failed to build repositories: %w", err)
	}
	options = append(options,
		musicmeta.WithMusicRepository(music),
		musicmeta.WithUserRepository(users),
	)

	backendConfig, err := c.defaultBackendConfig()
	if err != nil {
		return nil, err
	}

	store, err := c.buildStorageBackend(backendConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend %s: %w", backendConfig.Name, err)
	}
	options = append(options, musicmeta.WithBlobStore(backendConfig.Name, store))

	options = append(options, musicmeta.WithURLStrategy(c.buildURLStrategy(backendConfig)))

	// Filesystem backends double as the local asset cache: replacing or
	// removing a record should remove its stale files too.
	if cache, ok := store.(musicmeta.AssetCache); ok {
		options = append(options, musicmeta.WithAssetCache(cache))
	}

	options = append(options, musicmeta.WithGatewayOptions(
		musicmeta.WithMaxUploadSize(c.MaxUploadSize),
	))

	return musicmeta.New(options...)
}

func (c *ServerConfig) defaultBackendConfig() (StorageBackendConfig, error) {
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultStorageBackend {
			return backend, nil
		}
	}
	return StorageBackendConfig{}, fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
}

// buildRepositories creates the music and user repositories based on the
// configuration. Both interfaces are served by the same store.
func (c *ServerConfig) buildRepositories() (musicmeta.MusicRepository, musicmeta.UserRepository, error) {
	switch c.DatabaseType {
	case "memory":
		repo := memory.New()
		return repo, repo, nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, nil, errors.New("database_url is required for postgres")
		}
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		repo := repopg.NewWithPool(pool)
		return repo, repo, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// PingPostgres verifies connectivity to Postgres.
func PingPostgres(databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend(config StorageBackendConfig) (musicmeta.BlobStore, error) {
	switch config.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		fsConfig := fsstorage.Config{
			BaseDir:   getString(config.Config, "base_dir", "./data/storage"),
			URLPrefix: getString(config.Config, "url_prefix", c.AssetBaseURL),
		}
		return fsstorage.New(fsConfig)

	case "s3":
		s3Config := s3storage.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", ""),
			SecretAccessKey:        getString(config.Config, "secret_access_key", ""),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			EnableSSE:              getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:           getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config.Config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
		}
		return s3storage.New(s3Config)

	case "minio":
		minioConfig := miniostorage.Config{
			Endpoint:        getString(config.Config, "endpoint", "localhost:9000"),
			AccessKeyID:     getString(config.Config, "access_key_id", ""),
			SecretAccessKey: getString(config.Config, "secret_access_key", ""),
			Bucket:          getString(config.Config, "bucket", ""),
			UseSSL:          getBool(config.Config, "use_ssl", false),
			PublicRead:      getBool(config.Config, "public_read", true),
		}
		return miniostorage.New(minioConfig)

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

// buildURLStrategy picks how public asset URLs are formed for the backend.
// S3 against real AWS gets virtual-hosted URLs; everything else serves from
// the configured base URL.
func (c *ServerConfig) buildURLStrategy(config StorageBackendConfig) urlstrategy.URLStrategy {
	if config.Type == "s3" && getString(config.Config, "endpoint", "") == "" {
		return urlstrategy.NewS3PublicStrategy(
			getString(config.Config, "bucket", ""),
			getString(config.Config, "region", "us-east-1"),
		)
	}
	return urlstrategy.NewPrefixStrategy(c.AssetBaseURL)
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}
