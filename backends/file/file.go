// Package file stores datasets as one JSON document per dataset in a
// directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/botirk38/lastcorr/types"
)

// DefaultDir is used when the config does not set one.
const DefaultDir = "data/datasets"

const ext = ".json"

// ErrInvalidName is returned for dataset names that cannot be used as a file
// name.
var ErrInvalidName = errors.New("file: invalid dataset name")

// Backend implements DatasetBackend on the local file system.
type Backend struct {
	dir string
}

// NewBackend creates the directory if needed and returns a backend rooted
// there.
func NewBackend(config types.BackendConfig) (*Backend, error) {
	dir := config.Dir
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}
	return &Backend{dir: dir}, nil
}

// Dir returns the backend directory.
func (b *Backend) Dir() string {
	return b.dir
}

func (b *Backend) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(b.dir, name+ext), nil
}

// Put writes the dataset, replacing any previous version. The file is
// written next to its destination and renamed into place.
func (b *Backend) Put(ctx context.Context, ds types.Dataset) error {
	path, err := b.path(ds.Name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, ds.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(ds); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write dataset %s: %w", ds.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write dataset %s: %w", ds.Name, err)
	}
	return os.Rename(tmp.Name(), path)
}

// Get reads a dataset by name.
func (b *Backend) Get(ctx context.Context, name string) (types.Dataset, bool, error) {
	path, err := b.path(name)
	if err != nil {
		return types.Dataset{}, false, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return types.Dataset{}, false, nil
	}
	if err != nil {
		return types.Dataset{}, false, fmt.Errorf("failed to read dataset %s: %w", name, err)
	}

	var ds types.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return types.Dataset{}, false, fmt.Errorf("failed to decode dataset %s: %w", name, err)
	}
	return ds, true, nil
}

// Delete removes a dataset. Missing datasets are ignored.
func (b *Backend) Delete(ctx context.Context, name string) error {
	path, err := b.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete dataset %s: %w", name, err)
	}
	return nil
}

// Names returns the stored dataset names in ascending order.
func (b *Backend) Names(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(names)
	return names, nil
}

// Flush removes every dataset file.
func (b *Backend) Flush(ctx context.Context) error {
	names, err := b.Names(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := b.Delete(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored datasets.
func (b *Backend) Len(ctx context.Context) (int, error) {
	names, err := b.Names(ctx)
	return len(names), err
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}
