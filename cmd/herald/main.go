// main is the entry point of the Herald application.
// It initializes the configuration, logger, message store, host watcher and the status reporter,
// and keeps the Discord status message of the game server up to date until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/herald/internal/config"
	"github.com/woozymasta/herald/internal/discord"
	"github.com/woozymasta/herald/internal/game"
	"github.com/woozymasta/herald/internal/geoip"
	"github.com/woozymasta/herald/internal/ipresolve"
	"github.com/woozymasta/herald/internal/logger"
	"github.com/woozymasta/herald/internal/maintenance"
	"github.com/woozymasta/herald/internal/models"
	"github.com/woozymasta/herald/internal/reporter"
	"github.com/woozymasta/herald/internal/server"
	"github.com/woozymasta/herald/internal/storage"
	"github.com/woozymasta/herald/internal/vars"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)
	log.Info().Str("version", vars.Version).Msg("Starting herald service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	store, err := storage.New(ctx, cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// database maintenance
	if maintenance.Run(ctx, cfg, store, os.Stdout) {
		return
	}

	info := messageInfo(ctx, cfg, store)
	opts := reporter.Options{
		Store:         store,
		EventEvery:    cfg.RateLimit.EventEvery,
		EventBurst:    cfg.RateLimit.EventBurst,
		OfflineOnStop: cfg.Webhook.OfflineOnStop,
	}

	// Public address
	if info.IPAddress == "" && cfg.IP.ResolverURL != "" {
		opts.Resolver = ipresolve.New(cfg.IP.ResolverURL, cfg.IP.Port, cfg.IP.Timeout)
	}

	// GeoIP
	if cfg.GeoIP.Path != "" {
		if geo := openGeoIP(ctx, cfg.GeoIP); geo != nil {
			defer func() {
				if err := geo.Close(); err != nil {
					log.Error().Err(err).Msg("Error closing GeoIP provider")
				}
			}()
			opts.Geo = geo
		}
	}

	// Game server watcher
	var watcher *game.Watcher
	if cfg.A2S.Host != "" {
		watcher = game.NewWatcher(cfg.A2S, nil)
		opts.Host = watcher
		opts.Health = watcher
	}

	rep := reporter.New(info, discord.NewClient(cfg.Webhook.Timeout), opts)

	// First poll before start, so the first message carries the hostname, map and status
	if watcher != nil {
		watcher.SetListener(rep)
		watcher.Poll()
	}

	if err := rep.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start status reporter")
	}

	var wg sync.WaitGroup
	if watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Str("host", cfg.A2S.Host).Int("port", cfg.A2S.Port).Msg("Watching game server")
			watcher.Run(ctx)
		}()
	}

	// Local API
	var (
		httpServer *http.Server
		apiHandler *server.Server
	)
	if cfg.Server.Address != "" {
		apiHandler = server.New(rep, cfg)
		apiHandler.StartWorkers()

		httpServer = &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      apiHandler.Run(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			log.Info().Str("address", cfg.Server.Address).Msg("Local API listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Local API failed")
			}
		}()
	}

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Local API forced to shutdown")
		}
		shutdownCancel()
		apiHandler.StopWorkers()
	}

	// Stop host events first, then the reporter drains in-flight refreshes
	cancel()
	wg.Wait()
	rep.Stop()

	log.Info().Msg("Herald exited")
}

// messageInfo builds the status message description from flags and the stored message id.
func messageInfo(ctx context.Context, cfg *config.Config, store *storage.Repository) models.StatusMessageInfo {
	info := models.StatusMessageInfo{
		WebhookURI:      cfg.Webhook.URI,
		MessageID:       cfg.Webhook.MessageID,
		ServerName:      cfg.Webhook.ServerName,
		IPAddress:       cfg.Webhook.IPAddress,
		MessageInterval: cfg.Webhook.Interval,
	}

	if info.MessageID != "" {
		return info
	}

	id, err := store.MessageID(ctx, cfg.Webhook.URI)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read stored message id, a new message will be posted")
		return info
	}
	info.MessageID = id

	return info
}

// openGeoIP refreshes and opens the country database, returning nil when it is unusable.
func openGeoIP(ctx context.Context, cfg config.GeoIP) *geoip.Provider {
	log.Info().Msg("Checking GeoIP database...")
	if err := geoip.EnsureDB(ctx, cfg.Path, cfg.URL, cfg.Interval); err != nil {
		log.Error().Err(err).Msg("Failed to download GeoIP database")
	}

	geo, err := geoip.Open(cfg.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open GeoIP database, country field disabled")
		return nil
	}

	return geo
}
