package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/botirk38/lastcorr/types"
)

func TestPutWritesJSONFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "datasets")
	backend, err := NewBackend(types.BackendConfig{Dir: dir})
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	ctx := context.Background()
	if err := backend.Put(ctx, types.Dataset{Name: "unique_tags", Labels: []string{"80s", "pop"}}); err != nil {
		t.Fatalf("Failed to put: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "unique_tags.json" {
		t.Errorf("Expected a single unique_tags.json, got %v", entries)
	}
}

func TestInvalidNames(t *testing.T) {
	backend, err := NewBackend(types.BackendConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	ctx := context.Background()
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		if err := backend.Put(ctx, types.Dataset{Name: name}); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Name %q: expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestDeleteMissing(t *testing.T) {
	backend, _ := NewBackend(types.BackendConfig{Dir: t.TempDir()})
	if err := backend.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("Expected no error deleting missing dataset, got %v", err)
	}
}
