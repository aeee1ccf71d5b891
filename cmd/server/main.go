package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docnav/internal/api"
	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/content"
	"github.com/dgallion1/docnav/internal/counter"
	"github.com/dgallion1/docnav/internal/kvstore"
)

func main() {
	cfgPath := os.Getenv("DOCNAV_CONFIG")
	if cfgPath == "" {
		cfgPath = "docnav.yml"
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Error("loading configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load content.
	lib := content.NewLibrary(cfg.ContentDir, cfg.Exclude, log)
	if err := lib.Load(); err != nil {
		log.Error("loading content", "dir", cfg.ContentDir, "error", err)
		os.Exit(1)
	}

	var watcher *content.Watcher
	if cfg.Watch {
		watcher, err = content.NewWatcher(lib, 300*time.Millisecond, log)
		if err != nil {
			log.Error("creating watcher", "error", err)
			os.Exit(1)
		}
		if err := watcher.Start(); err != nil {
			log.Error("starting watcher", "error", err)
			os.Exit(1)
		}
	}

	// Star counter.
	var (
		widget    *counter.Widget
		refresher *counter.Refresher
		gh        *counter.GitHubClient
		db        *kvstore.SQLite
	)
	if cfg.Counter.Repo != "" {
		var store counter.Store = kvstore.NewMemory()
		if cfg.Counter.DBPath != "" {
			db, err = kvstore.Open(cfg.Counter.DBPath)
			if err != nil {
				log.Error("opening counter store", "path", cfg.Counter.DBPath, "error", err)
				os.Exit(1)
			}
			store = db
		}
		gh = counter.NewGitHubClient(cfg.Counter.APIURL, cfg.Counter.Repo, cfg.Counter.Timeout)
		fetcher := counter.NewRetryFetcher(gh, counter.MaxRetries, time.Second, log)
		cache := counter.NewCache(store, fetcher,
			counter.WithTTL(cfg.Counter.TTL),
			counter.WithLogger(log),
		)
		widget = counter.NewWidget(cache)

		// Remount whenever the stored count goes stale.
		refresher = counter.NewRefresher(widget, counter.DefaultRetryInterval)
		refresher.Start(ctx)
	}

	// Initialize HTTP server.
	var ctr api.Counter
	if widget != nil {
		ctr = widget
	}
	srv, err := api.NewServer(lib, ctr, log, cfg)
	if err != nil {
		log.Error("creating server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		if watcher != nil {
			watcher.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		cancel()
		if refresher != nil {
			refresher.Stop()
		}
		if gh != nil {
			gh.Close()
		}
		if db != nil {
			db.Close()
		}
	}()

	log.Info("starting docnav", "port", cfg.Port, "content_dir", cfg.ContentDir, "pages", len(lib.List()))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	log.Info("stopped")
}
