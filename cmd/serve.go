package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abdhe/game-catalog-proxy/pkg/cache"
	"github.com/abdhe/game-catalog-proxy/pkg/catalog"
	"github.com/abdhe/game-catalog-proxy/pkg/config"
	"github.com/abdhe/game-catalog-proxy/pkg/fetch"
	"github.com/abdhe/game-catalog-proxy/pkg/keyring"
	"github.com/abdhe/game-catalog-proxy/pkg/server"
	"github.com/abdhe/game-catalog-proxy/pkg/video"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API and metrics servers",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	log := logrus.WithField("component", "serve")

	// -------------------------------------------------------------------------
	// Key rings
	// -------------------------------------------------------------------------
	catalogRing := keyring.New(cfg.CatalogKeys)
	if catalogRing.Size() == 0 {
		return errors.New("no catalog API keys configured, set CATALOG_API_KEYS")
	}
	log.Infof("catalog key ring: %d keys", catalogRing.Size())

	videoRing := keyring.New(cfg.VideoKeys)
	if videoRing.Size() == 0 {
		log.Warn("no video API keys configured, video search will fail until VIDEO_API_KEYS is set")
	} else {
		log.Infof("video key ring: %d keys", videoRing.Size())
	}

	// -------------------------------------------------------------------------
	// Cache store: Redis when reachable, in-memory otherwise
	// -------------------------------------------------------------------------
	var store cache.Store
	redisStore := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisStore.Ping(pingCtx); err != nil {
		log.WithError(err).Warn("redis unreachable, using in-memory cache for this process")
		_ = redisStore.Close()
		store = cache.NewMemoryStore()
	} else {
		log.Infof("response cache on redis at %s (TTL %s)", cfg.RedisAddr, cfg.CacheTTL)
		store = redisStore
	}
	cancel()
	defer store.Close()

	catalogCache := cache.New(store, "catalog_", cfg.CacheTTL)
	detailCache := cache.New(store, "detail_", cfg.DetailCacheTTL)
	videoCache := cache.New(store, "video_", cfg.CacheTTL)

	// -------------------------------------------------------------------------
	// Fetchers and clients
	// -------------------------------------------------------------------------
	lists := fetch.New(fetch.Config{
		Family:  "catalog",
		Timeout: cfg.ListTimeout,
	}, catalogCache)
	details := fetch.New(fetch.Config{
		Family:  "detail",
		Timeout: cfg.DetailTimeout,
	}, detailCache)
	videoFetcher := fetch.New(fetch.Config{
		Family:        "video",
		Timeout:       cfg.ListTimeout,
		RetryStatuses: []int{http.StatusForbidden},
	}, videoCache)

	catalogClient := catalog.NewClient(catalog.Config{BaseURL: cfg.CatalogBaseURL}, lists, details, catalogRing)
	videoClient := video.NewClient(cfg.VideoBaseURL, videoFetcher, videoRing)

	srv := server.New(catalogClient, videoClient)

	// -------------------------------------------------------------------------
	// Metrics server
	// -------------------------------------------------------------------------
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	metricsServer := &http.Server{
		Addr:         cfg.MetricsAddr,
		Handler:      metricsMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("metrics server listening on %s/metrics", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("metrics server error")
		}
	}()

	go func() {
		log.Infof("API server listening on %s", cfg.ListenAddr)
		if err := srv.Listen(cfg.ListenAddr); err != nil {
			log.WithError(err).Fatal("API server error")
		}
	}()

	// -------------------------------------------------------------------------
	// Graceful shutdown
	// -------------------------------------------------------------------------
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Infof("received signal %v, shutting down", sig)

	if err := srv.Shutdown(10 * time.Second); err != nil {
		log.WithError(err).Warn("API server shutdown error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("metrics server shutdown error")
	}

	log.Info("shutdown complete")
	return nil
}
