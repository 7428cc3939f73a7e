package backends

import (
	"context"
	"errors"

	"github.com/botirk38/lastcorr/backends/file"
	"github.com/botirk38/lastcorr/backends/inmemory"
	"github.com/botirk38/lastcorr/backends/remote"
	"github.com/botirk38/lastcorr/types"
)

var ErrUnsupportedBackend = errors.New("unsupported backend type")

// BackendFactory creates dataset backends based on type and configuration
type BackendFactory struct{}

// NewBackend creates a new dataset backend of the specified type
func (f *BackendFactory) NewBackend(backendType types.BackendType, config types.BackendConfig) (types.DatasetBackend, error) {
	switch backendType {
	case types.BackendMemory:
		return NewLRUBackend(config)
	case types.BackendFile:
		return NewFileBackend(config)
	case types.BackendRedis:
		return NewRedisBackend(config)
	case types.BackendNone:
		return Discard{}, nil
	default:
		return nil, ErrUnsupportedBackend
	}
}

// NewLRUBackend creates a new in-memory LRU backend
func NewLRUBackend(config types.BackendConfig) (types.DatasetBackend, error) {
	return inmemory.NewLRUBackend(config)
}

// NewFileBackend creates a new JSON file backend
func NewFileBackend(config types.BackendConfig) (types.DatasetBackend, error) {
	return file.NewBackend(config)
}

// NewRedisBackend creates a new Redis backend
func NewRedisBackend(config types.BackendConfig) (types.DatasetBackend, error) {
	return remote.NewRedisBackend(config)
}

// Discard drops every dataset it is given.
type Discard struct{}

func (Discard) Put(context.Context, types.Dataset) error { return nil }

func (Discard) Get(context.Context, string) (types.Dataset, bool, error) {
	return types.Dataset{}, false, nil
}

func (Discard) Delete(context.Context, string) error    { return nil }
func (Discard) Names(context.Context) ([]string, error) { return nil, nil }
func (Discard) Flush(context.Context) error             { return nil }
func (Discard) Len(context.Context) (int, error)        { return 0, nil }
func (Discard) Close() error                            { return nil }
