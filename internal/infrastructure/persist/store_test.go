package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/ports"
)

func storesUnderTest(t *testing.T) map[string]ports.KVStore {
	t.Helper()
	dir := t.TempDir()
	stores := map[string]ports.KVStore{
		"file":   NewFileStore(filepath.Join(dir, "file")),
		"sqlite": NewSQLiteStore(filepath.Join(dir, "sqlite", "workbench.db")),
		"memory": NewMemoryStore(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoresRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.Get(ctx, domain.DefaultStorageKey); err != nil || ok {
				t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
			}

			if err := store.Set(ctx, domain.DefaultStorageKey, []byte(`{"history":[]}`)); err != nil {
				t.Fatalf("Set error: %v", err)
			}
			if err := store.Set(ctx, domain.DefaultStorageKey, []byte(`{"history":[1]}`)); err != nil {
				t.Fatalf("Set overwrite error: %v", err)
			}

			got, ok, err := store.Get(ctx, domain.DefaultStorageKey)
			if err != nil || !ok {
				t.Fatalf("Get error: ok=%v err=%v", ok, err)
			}
			if string(got) != `{"history":[1]}` {
				t.Errorf("Get = %s", got)
			}

			if err := store.Delete(ctx, domain.DefaultStorageKey); err != nil {
				t.Fatalf("Delete error: %v", err)
			}
			if _, ok, _ := store.Get(ctx, domain.DefaultStorageKey); ok {
				t.Error("key still present after Delete")
			}
			if err := store.Delete(ctx, domain.DefaultStorageKey); err != nil {
				t.Errorf("Delete of missing key error: %v", err)
			}
		})
	}
}

func TestFileStoreWritesAtomicallyWithSecurePermissions(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	if err := store.Set(context.Background(), "state", []byte("{}")); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	info, err := os.Stat(store.Path("state"))
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if info.Mode().Perm() != domain.SecureFilePermissions {
		t.Errorf("mode = %v, want %v", info.Mode().Perm(), os.FileMode(domain.SecureFilePermissions))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the data file, found %d entries", len(entries))
	}
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Set(context.Background(), "../escape", []byte("x")); err == nil {
		t.Fatal("expected error for key containing a path separator")
	}
}

func TestSQLiteStoreFallsBackToFiles(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	store := NewSQLiteStore(filepath.Join(blocker, "workbench.db"))
	if !store.Degraded() {
		t.Fatal("expected degraded store when the directory cannot be created")
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		backend string
		want    string
	}{
		{"", "*persist.FileStore"},
		{"sqlite", "*persist.SQLiteStore"},
		{"memory", "*persist.MemoryStore"},
	}
	for _, tt := range tests {
		cfg := domain.Config{Storage: domain.StorageSettings{Backend: tt.backend, Dir: dir}}
		store, err := Open(cfg)
		if err != nil {
			t.Fatalf("Open(%q) error: %v", tt.backend, err)
		}
		if got := typeName(store); got != tt.want {
			t.Errorf("Open(%q) = %s, want %s", tt.backend, got, tt.want)
		}
		store.Close()
	}

	if _, err := Open(domain.Config{Storage: domain.StorageSettings{Backend: "redis"}}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *FileStore:
		return "*persist.FileStore"
	case *SQLiteStore:
		return "*persist.SQLiteStore"
	case *MemoryStore:
		return "*persist.MemoryStore"
	}
	return "unknown"
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	value := []byte("abc")
	if err := store.Set(ctx, "k", value); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	value[0] = 'x'

	got, _, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("stored value changed with caller slice: %s", got)
	}
	got[1] = 'y'
	if again, _, _ := store.Get(ctx, "k"); string(again) != "abc" {
		t.Errorf("stored value changed with returned slice: %s", again)
	}
}
