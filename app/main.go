package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/text/language"

	"github.com/hindustan-founders/hfn-saved/app/api"
	"github.com/hindustan-founders/hfn-saved/app/catalog"
	"github.com/hindustan-founders/hfn-saved/app/cfg"
	"github.com/hindustan-founders/hfn-saved/app/database"
	"github.com/hindustan-founders/hfn-saved/app/metrics"
	"github.com/hindustan-founders/hfn-saved/app/saved"
	"github.com/hindustan-founders/hfn-saved/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting HFN Saved server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		fatal("Failed to open database", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		fatal("Failed to run migrations", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	loader := catalog.NewLoader(appCfg.CatalogFile, appCfg.SourcesDir)
	if err := loader.Run(); err != nil {
		fatal("Failed to load source configurations", err)
	}
	slog.Info("Source configurations loaded", "count", loader.GetSourceCount(), "dir", appCfg.SourcesDir)

	resourceRepo := database.NewResourceRepository(db)
	sourceRepo := database.NewSourceRepository(db)
	searchRepo := database.NewSearchRepository(db)
	blobRepo := database.NewBlobRepository(db)

	m := metrics.New()

	locale := language.Make(appCfg.Locale)
	stores := saved.NewRegistry(func(ctx context.Context, session string) (*saved.Store, error) {
		store := saved.NewStore(blobRepo.Persister("saved/"+session), saved.WithLocale(locale))
		if err := store.Init(ctx); err != nil {
			if !errors.Is(err, saved.ErrCorruptData) {
				return nil, err
			}
			// The store is left empty; the next mutation overwrites the bad data.
			slog.Warn("Discarding unreadable saved items", "session", session, "error", err)
		}
		return store, nil
	}, appCfg.SessionIdleTTL())

	scheduler := tasks.NewScheduler(loader, resourceRepo, sourceRepo,
		&http.Client{}, catalog.NewFeedParser(), catalog.NewSummarizer(), m,
		tasks.Options{
			UserAgent:   appCfg.UserAgent,
			Interval:    time.Duration(appCfg.SchedulerInterval) * time.Second,
			WorkerCount: appCfg.WorkerCount,
		})
	scheduler.Start()
	defer scheduler.Stop()

	opts := api.Options{
		APIAccessKey:   appCfg.APIAccessKey,
		RateLimit:      appCfg.RateLimit,
		RateBurst:      appCfg.RateBurst,
		TrustedProxies: appCfg.TrustedProxies,
		Debounce:       appCfg.Debounce(),
		TagMatchAll:    appCfg.TagMatchAll,
		SessionTTL:     appCfg.SessionIdleTTL(),
		BaseURL:        appCfg.BaseUrl,
		Version:        appCfg.Version,
	}
	handler := api.NewHandler(stores, resourceRepo, searchRepo, sourceRepo, loader, scheduler, m, opts)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, opts),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "base_url", appCfg.BaseUrl)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("HFN Saved server shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
