package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"reprieve/internal/config"
	"reprieve/internal/coordinator"
	"reprieve/internal/logging"
	"reprieve/internal/notify"
	"reprieve/internal/state"
	"reprieve/internal/store"
	"reprieve/internal/types"
)

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func newLogger(cfg config.Config, out io.Writer) logging.Logger {
	return logging.New(out, logging.ParseLevel(cfg.LogLevel()))
}

// openLogFile opens the append-only log the terminal UI writes to, since
// stderr belongs to the screen while it runs.
func openLogFile() (io.WriteCloser, error) {
	path, err := config.LogPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// openRepository opens the configured list store. A fresh bbolt store is
// seeded from the file store so switching backends keeps existing lists.
func openRepository(ctx context.Context, cfg config.Config) (store.ListRepository, error) {
	path, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	backend := cfg.StorageBackend()
	paths := store.RepositoryPaths{}
	if backend == store.RepositoryBackendFile {
		paths.ListsPath = path
	} else {
		paths.DBPath = path
		if lists, err := config.ListsPath(); err == nil {
			paths.ListsPath = lists
		}
	}
	repo, err := store.OpenRepository(paths, backend)
	if err != nil {
		return nil, err
	}
	if err := store.SeedRepositoryFromFiles(ctx, repo, paths); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("migrate file lists: %w", err)
	}
	return repo, nil
}

type runtimeOptions struct {
	window   time.Duration
	registry prometheus.Registerer
}

// deletionRuntime is the assembled deletion pipeline: one store, the
// coordinator writing to it and the notification worker it reports to.
type deletionRuntime struct {
	store    *state.Store
	coord    *coordinator.Coordinator
	notifier *notify.Service
	logger   logging.Logger
	timeout  time.Duration
}

func newDeletionRuntime(cfg config.Config, repo store.ListRepository, logger logging.Logger, opts runtimeOptions) *deletionRuntime {
	st := state.NewStore(state.State{}, logger)
	notifier := notify.NewService(
		notify.NewPolicyResolver(cfg.NotificationSettings(), cfg.SilencedScopes()),
		notify.NewDispatcher(notify.DefaultSinks(logger), logger),
		logger,
	)
	window := cfg.Window()
	scopeWindows := cfg.ScopeWindows()
	if opts.window > 0 {
		window = opts.window
		scopeWindows = nil
	}
	var metrics *coordinator.Metrics
	if opts.registry != nil {
		metrics = coordinator.NewMetrics(opts.registry)
	}
	coord := coordinator.New(repo, st, coordinator.Options{
		Window:        window,
		ScopeWindows:  scopeWindows,
		CommitTimeout: cfg.CommitTimeout(),
		Notifier:      notifier,
		Metrics:       metrics,
		Logger:        logger,
	})
	return &deletionRuntime{
		store:    st,
		coord:    coord,
		notifier: notifier,
		logger:   logger,
		timeout:  cfg.CommitTimeout(),
	}
}

// Close commits whatever is still pending, then drains notifications.
func (r *deletionRuntime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout+5*time.Second)
	defer cancel()
	err := r.coord.Close(ctx)
	if stopErr := r.notifier.Stop(ctx); stopErr != nil {
		r.logger.Warn("notification_stop_failed", logging.F("error", stopErr))
	}
	return err
}

func loadScopeList(ctx context.Context, repo store.ListRepository, scope types.Scope) (types.SourceList, error) {
	list, err := repo.Load(ctx, scope)
	if err != nil {
		return types.SourceList{}, fmt.Errorf("load %s: %w", scope, err)
	}
	return list, nil
}

func parseScope(raw string) (types.Scope, error) {
	scope, ok := types.NormalizeScope(raw)
	if !ok {
		return "", fmt.Errorf("invalid scope %q", raw)
	}
	return scope, nil
}
