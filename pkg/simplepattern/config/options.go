package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithAutoMigrate toggles creating the pattern table on startup
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithDefaultStorage sets the default storage backend name
func WithDefaultStorage(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("default storage backend name cannot be empty")
		}
		c.DefaultStorageBackend = name
		return nil
	}
}

// WithS3Storage adds an S3 storage backend
// If name is empty, defaults to "s3"
func WithS3Storage(name, bucket, region string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}

		backend := StorageBackendConfig{
			Name: name,
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": bucket,
				"region": region,
			},
		}

		c.StorageBackends = upsertStorageBackend(c.StorageBackends, backend)
		return nil
	}
}

// WithS3Credentials sets AWS credentials for S3 storage
func WithS3Credentials(name, accessKeyID, secretAccessKey string) Option {
	return withS3Settings(name, map[string]interface{}{
		"access_key_id":     accessKeyID,
		"secret_access_key": secretAccessKey,
	})
}

// WithS3Endpoint sets a custom S3 endpoint (for MinIO, LocalStack, etc.)
func WithS3Endpoint(name, endpoint string, usePathStyle bool) Option {
	return withS3Settings(name, map[string]interface{}{
		"endpoint":       endpoint,
		"use_path_style": usePathStyle,
	})
}

func withS3Settings(name string, settings map[string]interface{}) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}

		for i := range c.StorageBackends {
			if c.StorageBackends[i].Name == name && c.StorageBackends[i].Type == "s3" {
				for k, v := range settings {
					c.StorageBackends[i].Config[k] = v
				}
				return nil
			}
		}

		backend := StorageBackendConfig{
			Name:   name,
			Type:   "s3",
			Config: map[string]interface{}{},
		}
		for k, v := range settings {
			backend.Config[k] = v
		}
		c.StorageBackends = append(c.StorageBackends, backend)
		return nil
	}
}

// WithEventLogging toggles logging of pattern lifecycle events
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithJWTSecret enables HS256 bearer auth on write routes
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithAPIKeySHA256 enables API key auth with the given key digest
func WithAPIKeySHA256(digest string) Option {
	return func(c *ServerConfig) error {
		c.APIKeySHA256 = digest
		return nil
	}
}
