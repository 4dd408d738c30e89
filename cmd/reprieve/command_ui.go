package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reprieve/internal/app"
	"reprieve/internal/config"
	"reprieve/internal/logging"
	"reprieve/internal/store"
	"reprieve/internal/types"
)

type UICommand struct {
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	runUI      func(ctx context.Context, opts app.Options) error
	logOutput  func() (io.WriteCloser, error)
}

func NewUICommand(stderr io.Writer, loadConfig func() (config.Config, error), runUI func(ctx context.Context, opts app.Options) error) *UICommand {
	return &UICommand{
		stderr:     stderr,
		loadConfig: loadConfig,
		runUI:      runUI,
		logOutput:  openLogFile,
	}
}

func (c *UICommand) Run(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	scopeFlag := fs.String("scope", "", "scope shown first (default from config)")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	initial := cfg.UIScope()
	if *scopeFlag != "" {
		if initial, err = parseScope(*scopeFlag); err != nil {
			return err
		}
	}

	logFile, err := c.logOutput()
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := newLogger(cfg, logFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	registry := prometheus.NewRegistry()
	rt := newDeletionRuntime(cfg, repo, logger, runtimeOptions{registry: registry})
	if *metricsAddr != "" {
		stopMetrics := serveMetrics(*metricsAddr, registry, logger)
		defer stopMetrics()
	}

	scopes, err := uiScopes(ctx, repo, initial)
	if err != nil {
		_ = rt.Close()
		return err
	}
	logger.Info("ui_started",
		logging.F("backend", repo.Backend()),
		logging.F("scopes", len(scopes)),
		logging.F("window", rt.coord.WindowFor(initial)),
	)
	runErr := c.runUI(ctx, app.Options{
		Store:   rt.store,
		Intents: rt.coord,
		Pages:   missingScopeAsEmpty{repo},
		Scopes:  scopes,
		Scope:   initial,
		Buckets: cfg.UIBuckets(),
		Logger:  logger,
	})
	return errors.Join(runErr, rt.Close())
}

// uiScopes lists the stored scopes, the defaults and the initial scope, with
// the defaults first.
func uiScopes(ctx context.Context, repo store.ListRepository, initial types.Scope) ([]types.Scope, error) {
	stored, err := repo.Scopes(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[types.Scope]struct{}{}
	var out []types.Scope
	for _, group := range [][]types.Scope{types.DefaultScopes(), stored, {initial}} {
		for _, scope := range group {
			if _, ok := seen[scope]; ok || scope == "" {
				continue
			}
			seen[scope] = struct{}{}
			out = append(out, scope)
		}
	}
	return out, nil
}

// missingScopeAsEmpty pages a scope that has never been stored as an empty
// list.
type missingScopeAsEmpty struct {
	repo store.ListRepository
}

func (p missingScopeAsEmpty) Page(ctx context.Context, scope types.Scope, cursor string, limit int) (types.SourceList, error) {
	page, err := p.repo.Page(ctx, scope, cursor, limit)
	if errors.Is(err, store.ErrScopeNotFound) {
		return types.SourceList{Scope: scope}, nil
	}
	return page, err
}

func serveMetrics(addr string, registry *prometheus.Registry, logger logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_failed", logging.F("addr", addr), logging.F("error", err))
		}
	}()
	logger.Info("metrics_server_started", logging.F("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
