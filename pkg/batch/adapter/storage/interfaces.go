// Package storage defines the common interfaces for the object storage adapters.
// The series store, the dashboard export and the directory mail source all reach storage
// through these interfaces, so a local directory and a GCS bucket are interchangeable.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	coreAdapter "github.com/tigerroll/foottraffic/pkg/batch/core/adapter"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
)

// ErrObjectNotFound is returned (wrapped) by Download when the object does not exist.
var ErrObjectNotFound = errors.New("storage object not found")

func init() {
	exception.RegisterErrorType("storage.ErrObjectNotFound", ErrObjectNotFound)
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	// Name is the object name relative to the bucket, with "/" separators.
	Name    string
	Size    int64
	ModTime time.Time
}

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload writes data to the object. Readers never observe a partially written object.
	// An empty bucket means the connection's configured bucket.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens the object for reading. The caller must close the returned ReadCloser.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(info ObjectInfo) error) error
	// DeleteObject deletes the object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection represents a named data storage connection.
type StorageConnection interface {
	coreAdapter.ResourceConnection
	StorageExecutor
}

// StorageProvider creates and caches connections of one storage type.
type StorageProvider interface {
	// GetConnection retrieves the connection with the specified name, creating it on first use.
	GetConnection(ctx context.Context, name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the storage type handled by this provider (e.g. "local", "gcs").
	Type() string
}

// StorageConnectionResolver resolves named storage connections across providers.
type StorageConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveStorageConnection resolves a StorageConnection by name.
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}
