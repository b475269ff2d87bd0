package storage

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/foottraffic/pkg/batch/adapter/storage/config"
	coreAdapter "github.com/tigerroll/foottraffic/pkg/batch/core/adapter"
	coreConfig "github.com/tigerroll/foottraffic/pkg/batch/core/config"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// LookupConfig decodes and validates foottraffic.adapter.storage.<name>.
func LookupConfig(cfg *coreConfig.Config, name string) (storageConfig.StorageConfig, error) {
	var sc storageConfig.StorageConfig
	section := cfg.AdapterSection("storage")
	if section == nil {
		return sc, fmt.Errorf("no 'adapter.storage' configuration found")
	}
	raw, ok := section[name]
	if !ok {
		return sc, fmt.Errorf("storage connection '%s' not found in configuration", name)
	}
	if err := configbinder.BindAndValidate(raw, &sc); err != nil {
		return sc, fmt.Errorf("invalid storage configuration '%s': %w", name, err)
	}
	return sc, nil
}

// ConnectionResolver implements StorageConnectionResolver over the registered providers,
// choosing the provider by the connection's configured type.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *coreConfig.Config
}

// NewConnectionResolver creates a resolver over providers.
func NewConnectionResolver(providers []StorageProvider, cfg *coreConfig.Config) *ConnectionResolver {
	byType := make(map[string]StorageProvider, len(providers))
	for _, p := range providers {
		byType[p.Type()] = p
	}
	return &ConnectionResolver{providers: byType, cfg: cfg}
}

// ResolveConnection resolves a generic resource connection by name.
func (r *ConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveStorageConnection(ctx, name)
}

// ResolveStorageConnection resolves a StorageConnection by name.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	sc, err := LookupConfig(r.cfg, name)
	if err != nil {
		return nil, err
	}
	provider, ok := r.providers[sc.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", sc.Type, name)
	}
	conn, err := provider.GetConnection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage connection '%s' from provider '%s': %w", name, sc.Type, err)
	}
	logger.Debugf("Resolved storage connection '%s' (type: %s).", name, sc.Type)
	return conn, nil
}

// CloseAll closes every provider's connections.
func (r *ConnectionResolver) CloseAll() error {
	var result *multierror.Error
	for _, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

var _ StorageConnectionResolver = (*ConnectionResolver)(nil)
