package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvConfig is the environment variable surface read by WithEnv.
//
//	DATABASE_URL - "memory" (default) or "postgres://..." / "postgresql://..."
//	STORAGE_URL  - "memory://" (default) or "s3://bucket?region=..&endpoint=..&path_style=true&prefix=.."
type EnvConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL string `env:"DATABASE_URL" env-default:"memory"`
	DBSchema    string `env:"DB_SCHEMA"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" env-default:"true"`

	StorageURL         string `env:"STORAGE_URL" env-default:"memory://"`
	AWSRegion          string `env:"AWS_REGION" env-default:"us-east-1"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	EnableEventLogging bool   `env:"ENABLE_EVENT_LOGGING" env-default:"true"`
	JWTSecret          string `env:"JWT_SECRET"`
	APIKeySHA256       string `env:"API_KEY_SHA256"`
}

// WithEnv applies environment variable configuration read through cleanenv
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env EnvConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return env.apply(c)
	}
}

func (e EnvConfig) apply(c *ServerConfig) error {
	c.Port = e.Port
	c.Environment = e.Environment
	c.DBSchema = e.DBSchema
	c.AutoMigrate = e.AutoMigrate
	c.EnableEventLogging = e.EnableEventLogging
	c.JWTSecret = e.JWTSecret
	c.APIKeySHA256 = e.APIKeySHA256

	if err := e.applyDatabase(c); err != nil {
		return err
	}
	return e.applyStorage(c)
}

func (e EnvConfig) applyDatabase(c *ServerConfig) error {
	dbURL := e.DatabaseURL
	switch {
	case dbURL == "" || dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
	}
	return nil
}

func (e EnvConfig) applyStorage(c *ServerConfig) error {
	storageURL := e.StorageURL
	if storageURL == "" || storageURL == "memory" || storageURL == "memory://" {
		c.DefaultStorageBackend = "memory"
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name: "memory",
			Type: "memory",
		})
		return nil
	}

	if !strings.HasPrefix(storageURL, "s3://") {
		return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://' or 's3://...')", storageURL)
	}

	u, err := url.Parse(storageURL)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
	}

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = e.AWSRegion
	}

	backend := StorageBackendConfig{
		Name: "s3",
		Type: "s3",
		Config: map[string]interface{}{
			"bucket": u.Host,
			"region": region,
		},
	}
	if v := query.Get("endpoint"); v != "" {
		backend.Config["endpoint"] = v
	}
	if v := query.Get("prefix"); v != "" {
		backend.Config["prefix"] = v
	}
	if v := query.Get("path_style"); v != "" {
		backend.Config["use_path_style"] = v
	}
	if v := query.Get("create_bucket"); v != "" {
		backend.Config["create_bucket_if_not_exist"] = v
	}
	if e.AWSAccessKeyID != "" {
		backend.Config["access_key_id"] = e.AWSAccessKeyID
	}
	if e.AWSSecretAccessKey != "" {
		backend.Config["secret_access_key"] = e.AWSSecretAccessKey
	}

	c.DefaultStorageBackend = "s3"
	c.StorageBackends = upsertStorageBackend(c.StorageBackends, backend)
	return nil
}

func upsertStorageBackend(backends []StorageBackendConfig, backend StorageBackendConfig) []StorageBackendConfig {
	if backend.Config == nil {
		backend.Config = map[string]interface{}{}
	}
	for i := range backends {
		if backends[i].Name == backend.Name {
			backends[i] = backend
			return backends
		}
	}
	return append(backends, backend)
}
