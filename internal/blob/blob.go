// Package blob selects the archive blob store and re-exports its contract.
// Packages outside internal/blob depend on blob.Store, never on the backends.
package blob

import (
	"context"
	"fmt"

	"herdcore/internal/blob/core"
	"herdcore/internal/config"
	"herdcore/internal/infra/blob/fs"
	memorystore "herdcore/internal/infra/blob/memory"
	infraS3 "herdcore/internal/infra/blob/s3"
	"herdcore/pkg/domain"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
)

// Open builds the store named by cfg.Driver. An empty driver means fs.
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	switch cfg.Driver {
	case config.BlobFS, "":
		return NewFilesystem(cfg.FSRoot)
	case config.BlobMemory:
		return NewMemory(), nil
	case config.BlobS3:
		store, err := infraS3.New(ctx, infraS3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, domain.ConfigurationError{Reason: fmt.Sprintf("unknown blob driver %q", cfg.Driver)}
	}
}

// NewMemory returns an in-memory store.
func NewMemory() Store { return memorystore.New() }

// NewFilesystem returns a store rooted at dir, creating it if needed.
func NewFilesystem(dir string) (Store, error) {
	store, err := fs.New(dir)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewFakeS3ForTests returns an S3 store talking to an in-process fake bucket.
func NewFakeS3ForTests() Store { return infraS3.NewFake() }
