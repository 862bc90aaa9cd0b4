package config

import (
	"fmt"
	"time"
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

// WithAdminKey sets the shared admin secret
func WithAdminKey(key string) Option {
	return func(c *ServerConfig) error {
		c.AdminKey = key
		return nil
	}
}

// WithDatabaseURL selects the metadata store
func WithDatabaseURL(raw string) Option {
	return func(c *ServerConfig) error {
		if _, err := ParseDatabaseURL(raw); err != nil {
			return err
		}
		c.DatabaseURL = raw
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

// WithStorageURL selects the asset store
func WithStorageURL(raw string) Option {
	return func(c *ServerConfig) error {
		if _, err := ParseStorageURL(raw); err != nil {
			return err
		}
		c.StorageURL = raw
		return nil
	}
}

// WithS3Credentials sets static S3 credentials
func WithS3Credentials(accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		c.S3.AccessKeyID = accessKeyID
		c.S3.SecretAccessKey = secretAccessKey
		return nil
	}
}

// WithCDN sets the base URL assets are served from in production
func WithCDN(baseURL string) Option {
	return func(c *ServerConfig) error {
		c.CDNBaseURL = baseURL
		return nil
	}
}

// WithAPIPrefix mounts the routes under prefix, e.g. "/api"
func WithAPIPrefix(prefix string) Option {
	return func(c *ServerConfig) error {
		c.APIPrefix = prefix
		return nil
	}
}

// WithPlaceholderURL sets the image served for missing thumbnails
func WithPlaceholderURL(u string) Option {
	return func(c *ServerConfig) error {
		c.PlaceholderURL = u
		return nil
	}
}

// WithCategories replaces the built-in category list
func WithCategories(categories ...string) Option {
	return func(c *ServerConfig) error {
		c.Categories = categories
		return nil
	}
}

// WithTimeouts sets the request and download counter timeouts
func WithTimeouts(request, counter time.Duration) Option {
	return func(c *ServerConfig) error {
		if request <= 0 || counter <= 0 {
			return fmt.Errorf("timeouts must be positive")
		}
		c.RequestTimeout = request
		c.CounterTimeout = counter
		return nil
	}
}

// WithMaxUploadBytes caps the size of admin uploads
func WithMaxUploadBytes(n int64) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("max upload bytes must be positive")
		}
		c.MaxUploadBytes = n
		return nil
	}
}

// WithEventLogging enables or disables event logging
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithMetrics enables or disables the Prometheus collector and /metrics
func WithMetrics(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableMetrics = enabled
		return nil
	}
}

// WithLogLevel sets the minimum log level
func WithLogLevel(level string) Option {
	return func(c *ServerConfig) error {
		c.LogLevel = level
		return nil
	}
}
