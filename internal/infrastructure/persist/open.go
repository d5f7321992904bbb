package persist

import (
	"fmt"
	"path/filepath"

	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/pkg/filesystem"
	"github.com/alle-ai/alle-go/internal/ports"
)

// Open builds the store selected by storage.backend.
func Open(cfg domain.Config) (ports.KVStore, error) {
	dir := cfg.Storage.Dir
	if dir == "" {
		dir = filepath.Join(filesystem.AppDir(), "storage")
	}
	dir = filesystem.ExpandHome(dir)

	switch cfg.GetStorageBackend() {
	case domain.StorageBackendFile:
		return NewFileStore(dir), nil
	case domain.StorageBackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, "workbench.db")), nil
	case domain.StorageBackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
