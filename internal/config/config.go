// Package config loads herdcore settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"herdcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

// Supported storage drivers.
const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// BlobDriver identifies the archive target.
type BlobDriver string

// Supported blob drivers.
const (
	BlobMemory BlobDriver = "memory"
	BlobFS     BlobDriver = "fs"
	BlobS3     BlobDriver = "s3"
)

// Config is the full herdcore configuration surface.
type Config struct {
	Storage     Storage `envPrefix:"HERDCORE_"`
	Blob        Blob    `envPrefix:"HERDCORE_BLOB_"`
	Archive     Archive `envPrefix:"HERDCORE_ARCHIVE_"`
	SpeciesFile string  `env:"HERDCORE_SPECIES_FILE"`
	LogLevel    string  `env:"HERDCORE_LOG_LEVEL" envDefault:"info"`
	MetricsAddr string  `env:"HERDCORE_METRICS_ADDR" envDefault:":9464"`
}

// Storage selects and locates the persistent store.
type Storage struct {
	Driver      StorageDriver `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string        `env:"SQLITE_PATH" envDefault:"herdcore.db"`
	PostgresDSN string        `env:"POSTGRES_DSN"`
}

// Blob selects the archive blob store.
type Blob struct {
	Driver BlobDriver `env:"DRIVER" envDefault:"fs"`
	FSRoot string     `env:"FS_ROOT" envDefault:"./archive"`
	S3     S3         `envPrefix:"S3_"`
}

// S3 configures the S3 blob backend.
type S3 struct {
	Bucket       string `env:"BUCKET"`
	Region       string `env:"REGION"`
	Endpoint     string `env:"ENDPOINT"`
	UsePathStyle bool   `env:"PATH_STYLE"`
}

// Archive configures scheduled snapshot archival.
type Archive struct {
	Schedule string        `env:"SCHEDULE" envDefault:"@daily"`
	Prefix   string        `env:"PREFIX" envDefault:"snapshots"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"2m"`
}

// Load reads envFile (when it exists) into the process environment and then
// parses the environment. A missing envFile is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	return Parse()
}

// Parse reads the configuration from the current environment.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver selections and required companions.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return domain.ConfigurationError{Reason: "HERDCORE_POSTGRES_DSN is required for the postgres driver"}
		}
	default:
		return domain.ConfigurationError{Reason: fmt.Sprintf("unknown storage driver %q", c.Storage.Driver)}
	}
	switch c.Blob.Driver {
	case BlobMemory, BlobFS:
	case BlobS3:
		if c.Blob.S3.Bucket == "" {
			return domain.ConfigurationError{Reason: "HERDCORE_BLOB_S3_BUCKET is required for the s3 driver"}
		}
	default:
		return domain.ConfigurationError{Reason: fmt.Sprintf("unknown blob driver %q", c.Blob.Driver)}
	}
	return nil
}
