package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/botirk38/lastcorr/types"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is used when the config does not set one.
const DefaultCapacity = 64

// LRUBackend implements DatasetBackend using LRU eviction policy
type LRUBackend struct {
	mu      *sync.RWMutex
	cache   *lru.Cache[string, types.Dataset]
	evicted int
}

// NewLRUBackend creates a new LRU backend
func NewLRUBackend(config types.BackendConfig) (*LRUBackend, error) {
	capacity := config.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	lruCache, err := lru.New[string, types.Dataset](capacity)
	if err != nil {
		return nil, err
	}

	return &LRUBackend{
		mu:    &sync.RWMutex{},
		cache: lruCache,
	}, nil
}

// Put stores a dataset in the LRU cache
func (b *LRUBackend) Put(ctx context.Context, ds types.Dataset) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cache.Add(ds.Name, ds) {
		b.evicted++
	}
	return nil
}

// Get retrieves a dataset from the LRU cache
func (b *LRUBackend) Get(ctx context.Context, name string) (types.Dataset, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ds, ok := b.cache.Get(name); ok {
		return ds, true, nil
	}
	return types.Dataset{}, false, nil
}

// Delete removes a dataset from the LRU cache
func (b *LRUBackend) Delete(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cache.Remove(name)
	return nil
}

// Names returns the stored dataset names in ascending order
func (b *LRUBackend) Names(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := b.cache.Keys()
	sort.Strings(names)
	return names, nil
}

// Flush clears all datasets from the LRU cache
func (b *LRUBackend) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cache.Purge()
	b.evicted = 0
	return nil
}

// Len returns the number of datasets in the LRU cache
func (b *LRUBackend) Len(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.cache.Len(), nil
}

// Evicted returns how many datasets were pushed out by capacity since the
// last flush.
func (b *LRUBackend) Evicted() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.evicted
}

// Close closes the LRU backend (no-op for in-memory)
func (b *LRUBackend) Close() error {
	return nil
}
