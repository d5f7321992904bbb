package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alle-ai/alle-go/internal/infrastructure/backend"
	"github.com/alle-ai/alle-go/internal/infrastructure/persist"
)

func TestBuildContainerEphemeral(t *testing.T) {
	t.Setenv("ALLE_STORAGE_BACKEND", "")
	container, err := BuildContainer(context.Background(), Options{
		ConfigPath: filepath.Join(t.TempDir(), "config.yaml"),
		Ephemeral:  true,
	})
	if err != nil {
		t.Fatalf("BuildContainer: %v", err)
	}
	defer container.Close()

	if _, ok := container.Store.(*persist.MemoryStore); !ok {
		t.Errorf("store = %T, want *persist.MemoryStore", container.Store)
	}
	if _, ok := container.VideoBackend.(*backend.Client); !ok {
		t.Errorf("video backend = %T, want *backend.Client", container.VideoBackend)
	}
	if container.Invoker == nil || container.VideoService == nil || container.DoctorService == nil {
		t.Fatalf("container not fully wired: %+v", container)
	}

	poller := container.NewPoller()
	if poller.Interval != 5*time.Second {
		t.Errorf("poll interval = %v, want 5s", poller.Interval)
	}
	if poller.Queue != container.Workbench {
		t.Error("poller does not read the workbench queue")
	}
}

func TestBuildContainerFileStoreUsesConfiguredDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ALLE_STORAGE_BACKEND", "file")
	t.Setenv("ALLE_STORAGE_DIR", dir)

	container, err := BuildContainer(context.Background(), Options{
		ConfigPath: filepath.Join(t.TempDir(), "config.yaml"),
	})
	if err != nil {
		t.Fatalf("BuildContainer: %v", err)
	}
	defer container.Close()

	store, ok := container.Store.(*persist.FileStore)
	if !ok {
		t.Fatalf("store = %T, want *persist.FileStore", container.Store)
	}
	if got, want := store.Path("k"), filepath.Join(dir, "k.json"); got != want {
		t.Errorf("store path = %q, want %q", got, want)
	}
}
