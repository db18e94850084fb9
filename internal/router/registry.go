package router

import (
	"sync"

	"github.com/google/uuid"

	"github.com/redbco/askdata/pkg/models"
)

// Registry resolves datasource identifiers. The connection-setup flow that
// populates it is external; the router only reads.
type Registry interface {
	Resolve(id string) (*models.Datasource, bool)
}

// MemoryRegistry is an in-memory Registry for standalone deployments and
// tests. Safe for concurrent use.
type MemoryRegistry struct {
	mu          sync.RWMutex
	datasources map[string]*models.Datasource
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{datasources: make(map[string]*models.Datasource)}
}

// Add stores a datasource, assigning an identifier when the record has
// none, and returns the identifier.
func (r *MemoryRegistry) Add(ds *models.Datasource) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	r.datasources[ds.ID] = ds
	return ds.ID
}

// Resolve implements Registry.
func (r *MemoryRegistry) Resolve(id string) (*models.Datasource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ds, ok := r.datasources[id]
	return ds, ok
}

// Remove deletes a datasource record.
func (r *MemoryRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.datasources, id)
}
