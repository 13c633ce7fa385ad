package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/km-arc/service-annotations/framework/bundles"
	"github.com/km-arc/service-annotations/framework/config"
	"github.com/km-arc/service-annotations/framework/container"
	"github.com/km-arc/service-annotations/framework/discovery"
	"github.com/km-arc/service-annotations/framework/inspect"
	"github.com/km-arc/service-annotations/framework/providers"
	"github.com/km-arc/service-annotations/routing"
)

const shutdownTimeout = 5 * time.Second

// Application is the top-level kernel. It owns the configuration, the bundle
// list and the container built from them.
type Application struct {
	config   *config.Config
	bundles  []bundles.Bundle
	excludes []string
	logger   *slog.Logger
	scanner  *discovery.Scanner

	mu        sync.RWMutex
	builder   *container.Builder
	providers *container.ProviderRegistry
	scan      *discovery.Provider
}

// New loads the bundle manifest and registers the core providers, which
// runs the discovery pass. Call Boot afterwards.
//
//	application, err := app.New(config.Load(), logger)
//	if err != nil { ... }
//	if err := application.Boot(); err != nil { ... }
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	bs, err := bundles.Load(cfg.Scan.BundlesFile)
	if err != nil {
		return nil, err
	}

	excludes := cfg.Scan.Excludes
	if len(excludes) == 0 {
		excludes = discovery.DefaultExcludes
	}

	a := &Application{
		config:   cfg,
		bundles:  bs,
		excludes: excludes,
		logger:   logger,
		scanner:  discovery.NewScanner(discovery.WithLogger(logger), discovery.WithExcludes(excludes...)),
	}

	b, registry, scan, err := a.register()
	if err != nil {
		return nil, err
	}
	a.builder, a.providers, a.scan = b, registry, scan
	return a, nil
}

// register builds a fresh container and registers the core providers into
// it, parameters first.
func (a *Application) register() (*container.Builder, *container.ProviderRegistry, *discovery.Provider, error) {
	b := container.New()
	registry := container.NewProviderRegistry(b)

	scan := &discovery.Provider{Bundles: a.bundles, Env: a.config.App.Env, Scanner: a.scanner}
	core := []container.ServiceProvider{
		&providers.ParametersServiceProvider{Config: a.config, Bundles: a.bundles},
		scan,
	}
	for _, p := range core {
		if err := registry.Register(p); err != nil {
			return nil, nil, nil, err
		}
	}
	return b, registry, scan, nil
}

// Boot runs the Boot phase on all providers.
func (a *Application) Boot() error {
	a.mu.RLock()
	registry := a.providers
	a.mu.RUnlock()
	return registry.Boot()
}

// Booted reports whether Boot has completed.
func (a *Application) Booted() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.providers.Booted()
}

// Reload re-runs every provider into a new container and boots it. The
// current container is only replaced when the whole pass succeeds.
func (a *Application) Reload() error {
	b, registry, scan, err := a.register()
	if err != nil {
		return err
	}
	if err := registry.Boot(); err != nil {
		return err
	}

	a.mu.Lock()
	a.builder, a.providers, a.scan = b, registry, scan
	a.mu.Unlock()
	return nil
}

// Builder returns the current container.
func (a *Application) Builder() *container.Builder {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.builder
}

// Summary describes the most recent successful discovery pass.
func (a *Application) Summary() discovery.Summary {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.scan.Summary()
}

// Config returns the configuration the kernel was built with.
func (a *Application) Config() *config.Config { return a.config }

// Bundles returns the bundles listed in the manifest.
func (a *Application) Bundles() []bundles.Bundle { return a.bundles }

// Excludes returns the directory names discovery skips.
func (a *Application) Excludes() []string { return a.excludes }

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.config.App.Env }
func (a *Application) IsDebug() bool       { return a.config.App.Debug }

// Handler returns the inspection API over the current container.
func (a *Application) Handler() *routing.Router {
	return inspect.New(a.Builder, a.logger)
}

// Run boots the application (if needed) and serves the inspection API on
// APP_PORT until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if !a.Booted() {
		if err := a.Boot(); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              ":" + a.config.App.Port,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	a.logger.Info("inspection API listening", "name", a.config.App.Name, "addr", srv.Addr, "env", a.config.App.Env)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
