// Package gcs provides a Google Cloud Storage implementation of the storage adapter interfaces.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	gcs "cloud.google.com/go/storage"
	"github.com/hashicorp/go-multierror"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/foottraffic/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/foottraffic/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/foottraffic/pkg/batch/core/config"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

const ProviderType = "gcs"

// gcsAdapter implements storage.StorageConnection on a GCS client.
// An object write becomes visible only when the writer is closed successfully.
type gcsAdapter struct {
	client *gcs.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*gcsAdapter)(nil)

// NewGCSAdapter wraps an existing client. It is exposed so tests can point the client at an emulator.
func NewGCSAdapter(client *gcs.Client, cfg storageConfig.StorageConfig, name string) storageAdapter.StorageConnection {
	return &gcsAdapter{client: client, cfg: cfg, name: name}
}

func (a *gcsAdapter) Close() error {
	if err := a.client.Close(); err != nil {
		return fmt.Errorf("failed to close GCS client '%s': %w", a.name, err)
	}
	return nil
}

func (a *gcsAdapter) Type() string { return ProviderType }

func (a *gcsAdapter) Name() string { return a.name }

func (a *gcsAdapter) bucket(bucket string) string {
	if bucket == "" {
		return a.cfg.BucketName
	}
	return bucket
}

func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	b := a.bucket(bucket)
	w := a.client.Bucket(b).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", b, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", b, objectName, err)
	}
	logger.Debugf("Uploaded gs://%s/%s (GCS adapter '%s').", b, objectName, a.name)
	return nil
}

func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	b := a.bucket(bucket)
	r, err := a.client.Bucket(b).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("object gs://%s/%s: %w", b, objectName, storageAdapter.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", b, objectName, err)
	}
	return r, nil
}

func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(info storageAdapter.ObjectInfo) error) error {
	b := a.bucket(bucket)
	it := a.client.Bucket(b).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list gs://%s/%s: %w", b, prefix, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		if err := fn(storageAdapter.ObjectInfo{Name: attrs.Name, Size: attrs.Size, ModTime: attrs.Updated}); err != nil {
			return err
		}
	}
}

func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	b := a.bucket(bucket)
	if err := a.client.Bucket(b).Object(objectName).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete gs://%s/%s: %w", b, objectName, err)
	}
	return nil
}

// ClientFactory creates GCS clients. Replaced in tests.
type ClientFactory func(ctx context.Context, opts ...option.ClientOption) (*gcs.Client, error)

// GCSProvider implements storage.StorageProvider for GCS buckets.
type GCSProvider struct {
	cfg         *coreConfig.Config
	newClient   ClientFactory
	connections map[string]storageAdapter.StorageConnection
	mu          sync.Mutex
}

// NewGCSProvider creates a GCSProvider using gcs.NewClient.
func NewGCSProvider(cfg *coreConfig.Config) *GCSProvider {
	return NewGCSProviderWithFactory(cfg, gcs.NewClient)
}

// NewGCSProviderWithFactory creates a GCSProvider with a custom client factory.
func NewGCSProviderWithFactory(cfg *coreConfig.Config, factory ClientFactory) *GCSProvider {
	return &GCSProvider{
		cfg:         cfg,
		newClient:   factory,
		connections: make(map[string]storageAdapter.StorageConnection),
	}
}

// GetConnection returns the cached connection for name or creates a client from configuration.
// Without a credentials file the client uses Application Default Credentials.
func (p *GCSProvider) GetConnection(ctx context.Context, name string) (storageAdapter.StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}

	sc, err := storageAdapter.LookupConfig(p.cfg, name)
	if err != nil {
		return nil, err
	}
	if sc.Type != ProviderType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, ProviderType, sc.Type)
	}

	var opts []option.ClientOption
	if sc.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(sc.CredentialsFile))
	}
	client, err := p.newClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client for '%s': %w", name, err)
	}
	conn := NewGCSAdapter(client, sc, name)
	p.connections[name] = conn
	logger.Debugf("Created new GCS storage connection '%s' (bucket: %s).", name, sc.BucketName)
	return conn, nil
}

// CloseAll closes all clients managed by this provider.
func (p *GCSProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}

func (p *GCSProvider) Type() string { return ProviderType }

var _ storageAdapter.StorageProvider = (*GCSProvider)(nil)
