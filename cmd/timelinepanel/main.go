package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timelinepanel/internal/config"
	"timelinepanel/internal/editor"
	"timelinepanel/internal/feed"
	"timelinepanel/internal/logging"
	"timelinepanel/internal/server"
	"timelinepanel/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to configuration file (YAML)")
		addr       = flag.String("addr", "", "address for the web server (overrides listen_addr)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.SetLevel(cfg.LogLevel)
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	logging.Infof("loaded %d panel(s) and %d source(s) from %s", len(cfg.Panels), len(cfg.Sources), *configPath)

	store, err := storage.NewPanelStore(cfg.PanelsPath())
	if err != nil {
		log.Fatalf("initialise storage: %v", err)
	}
	if err := seedPanels(store, cfg); err != nil {
		log.Fatalf("seed panels: %v", err)
	}

	sources := make([]feed.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		sources = append(sources, feed.Source{PanelID: s.PanelID, Path: s.Path, Interval: s.Interval()})
	}
	if len(sources) > 0 {
		fd := feed.New(sources, store)
		fd.Start()
		defer fd.Stop()
	}

	srv := server.New(cfg.ListenAddr, store, server.Options{
		Theme:             cfg.Theme,
		Location:          cfg.Location(),
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Errorf("server shutdown: %v", err)
		}
	}()

	logging.Infof("timeline panels listening on %s", cfg.ListenAddr)
	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

// seedPanels stores configured panels that the store does not know yet, so
// edits made through the API survive restarts when a data directory is set.
func seedPanels(store *storage.PanelStore, cfg config.Config) error {
	random := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, p := range cfg.Panels {
		if _, err := store.Get(p.ID); err == nil {
			continue
		}
		snap := p.Snapshot()
		snap.Metrics = editor.Normalize(snap.Metrics, random)
		if err := store.Put(snap); err != nil {
			return err
		}
	}
	return nil
}
