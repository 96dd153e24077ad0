package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "dramastream/catalogservice/internal/api/http"
	"dramastream/catalogservice/internal/app"
	"dramastream/catalogservice/internal/cache"
	"dramastream/catalogservice/internal/catalog"
	"dramastream/catalogservice/internal/database"
	"dramastream/catalogservice/internal/ingest"
	"dramastream/catalogservice/internal/metrics"
	"dramastream/catalogservice/internal/providers/dramabox"
	"dramastream/catalogservice/internal/providers/flickreel"
	"dramastream/catalogservice/internal/providers/reelshort"
	"dramastream/catalogservice/internal/providers/shortmax"
	"dramastream/catalogservice/internal/repository"
	"dramastream/catalogservice/internal/search"
	"dramastream/catalogservice/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "catalog-service")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "catalog-service"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.String("databaseDriver", cfg.DatabaseDriver),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("cacheDisabled", cfg.CacheDisabled),
	)

	db, err := database.Open(database.Config{
		Driver:      cfg.DatabaseDriver,
		PostgresDSN: cfg.PostgresDSN,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		logger.Error("database open failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	repo := repository.NewContentRepository(db)

	cacheStore := buildCacheStore(cfg, logger)

	ingestService := ingest.NewService(repo,
		ingest.WithLogger(logger),
		ingest.WithCache(cacheStore),
	)

	providerClient := func() *http.Client {
		return &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	searchService := search.NewService([]search.Provider{
		dramabox.NewProvider(dramabox.Config{
			Endpoint:  cfg.DramaboxEndpoint,
			UserAgent: cfg.UserAgent,
			Client:    providerClient(),
		}),
		reelshort.NewProvider(reelshort.Config{
			Endpoint:  cfg.ReelshortEndpoint,
			UserAgent: cfg.UserAgent,
			Client:    providerClient(),
		}),
		shortmax.NewProvider(shortmax.Config{
			Endpoint:  cfg.ShortmaxEndpoint,
			UserAgent: cfg.UserAgent,
			Client:    providerClient(),
		}),
		flickreel.NewProvider(flickreel.Config{
			Endpoint:  cfg.FlickreelEndpoint,
			APIKey:    cfg.FlickreelAPIKey,
			UserAgent: cfg.UserAgent,
			Client:    providerClient(),
		}),
	}, cfg.RequestTimeout,
		search.WithLogger(logger),
		search.WithCache(cacheStore, cfg.SearchTTL),
	)

	suggestService := search.NewSuggestService(searchService, repo, ingestService,
		search.WithSuggestLogger(logger),
		search.WithSuggestCache(cacheStore, cfg.SuggestTTL),
		search.WithSuggestThreshold(cfg.SuggestThreshold),
		search.WithSuggestLimit(cfg.SuggestLimit),
	)

	catalogService := catalog.NewService(repo,
		catalog.WithLogger(logger),
		catalog.WithCache(cacheStore),
		catalog.WithTTLs(cfg.HomeTTL, cfg.ExploreTTL, cfg.FiltersTTL),
	)

	syncTrigger := search.NewSyncTrigger(ingestService, map[string]search.Normalizer{
		"dramabox":  dramabox.Normalize,
		"reelshort": reelshort.Normalize,
		"shortmax":  shortmax.Normalize,
		"flickreel": flickreel.Normalize,
	}, search.WithTriggerLogger(logger), search.WithLanguageRecorder(ingestService))

	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithSuggest(suggestService),
		apihttp.WithCatalog(catalogService),
		apihttp.WithAdmin(ingestService),
		apihttp.WithTrigger(syncTrigger),
	).Handler()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("catalog service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.RequestTimeout),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("catalog service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildCacheStore connects Redis when configured. Reads degrade to
// direct compute when the store is nil or the backend is down, so any
// failure here only costs cache hits, never availability.
func buildCacheStore(cfg app.Config, logger *slog.Logger) *cache.Store {
	if cfg.CacheDisabled {
		logger.Info("cache disabled by configuration")
		return nil
	}
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		logger.Info("redis not configured, caching disabled")
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, caching disabled", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, caching disabled", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return cache.NewStore(cache.NewRedisBackend(client), logger)
}
