package app

import (
	"context"
	"fmt"

	"github.com/alle-ai/alle-go/internal/application/doctor"
	"github.com/alle-ai/alle-go/internal/application/video"
	"github.com/alle-ai/alle-go/internal/application/workbench"
	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/infrastructure/backend"
	"github.com/alle-ai/alle-go/internal/infrastructure/config"
	"github.com/alle-ai/alle-go/internal/infrastructure/persist"
	"github.com/alle-ai/alle-go/internal/pkg/clock"
	"github.com/alle-ai/alle-go/internal/pkg/logger"
	"github.com/alle-ai/alle-go/internal/ports"
)

// Options controls how the dependency graph is built.
type Options struct {
	Verbose    bool
	Ephemeral  bool
	ConfigPath string

	// Overrides used by tests.
	Store        ports.KVStore
	VideoBackend ports.VideoBackend
	Invoker      ports.APIInvoker
	Clock        ports.Clock
	Logger       ports.Logger
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Config         domain.Config
	Logger         ports.Logger
	Clock          ports.Clock
	Store          ports.KVStore
	Workbench      *workbench.Manager
	VideoBackend   ports.VideoBackend
	Invoker        ports.APIInvoker
	VideoService   *video.Service
	DoctorService  *doctor.Service
	Prompter       ports.ConfirmationPrompter
}

// BuildContainer constructs the dependency graph and loads persisted state.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Ephemeral {
		cfg.Storage.Backend = domain.StorageBackendMemory
	}

	log := opts.Logger
	if log == nil {
		log = newLogger(cfg, opts.Verbose)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	store := opts.Store
	if store == nil {
		store, err = persist.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
	}

	manager := workbench.NewManager(workbench.Options{
		Store:  store,
		Key:    cfg.GetStorageKey(),
		UserID: cfg.Storage.UserID,
		Clock:  clk,
		Logger: log,
	})
	if err := manager.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load workbench state: %w", err)
	}

	var client *backend.Client
	if opts.VideoBackend == nil || opts.Invoker == nil {
		client = backend.NewClient(cfg)
	}
	videoBackend := opts.VideoBackend
	if videoBackend == nil {
		videoBackend = client
	}
	invoker := opts.Invoker
	if invoker == nil {
		invoker = client
	}

	videoService := &video.Service{
		Queue:   manager,
		Backend: videoBackend,
		Clock:   clk,
		Logger:  log,
	}

	doctorService := &doctor.Service{
		ConfigProvider: cfgLoader,
		Store:          store,
		Usage:          manager,
	}

	return &Container{
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Config:         cfg,
		Logger:         log,
		Clock:          clk,
		Store:          store,
		Workbench:      manager,
		VideoBackend:   videoBackend,
		Invoker:        invoker,
		VideoService:   videoService,
		DoctorService:  doctorService,
	}, nil
}

// NewPoller returns a poller over the workbench video queue.
func (c *Container) NewPoller() *video.Poller {
	return &video.Poller{
		Queue:    c.Workbench,
		Backend:  c.VideoBackend,
		Clock:    c.Clock,
		Interval: c.Config.GetPollInterval(),
		Logger:   c.Logger,
	}
}

// Close waits for pending stats work and releases the store.
func (c *Container) Close() error {
	if c.Workbench != nil {
		c.Workbench.Wait()
	}
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

func newLogger(cfg domain.Config, verbose bool) ports.Logger {
	if verbose {
		return logger.New(logger.Options{Level: "debug", Format: cfg.Logging.Format})
	}
	return logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
}
