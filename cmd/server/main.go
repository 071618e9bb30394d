package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"foodexplorer/internal/config"
	apphttp "foodexplorer/internal/http"
	"foodexplorer/internal/integrations/openfoodfacts"
	"foodexplorer/internal/logger"
	"foodexplorer/internal/security/secretbox"
	"foodexplorer/internal/service/cart"
	"foodexplorer/internal/service/drawer"
	"foodexplorer/internal/service/listing"
	storepkg "foodexplorer/internal/store"
	"foodexplorer/internal/store/memory"
	"foodexplorer/internal/store/postgres"
	"foodexplorer/internal/store/redis"
	"foodexplorer/internal/store/sealed"
	"foodexplorer/internal/telemetry"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logger.New(logger.Config{Level: "error", Format: "console"}).Fatal("load config", zap.Error(err))
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.TracingEnabled,
		CollectorEndpoint: cfg.TracingEndpoint,
		SamplingRatio:     cfg.TracingSamplingRatio,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.TracingInsecure,
	}, log)
	if err != nil {
		log.Fatal("initialize tracing", zap.Error(err))
	}

	st, closeStore := openStorage(cfg, log)
	defer closeStore()

	cartStore := cart.NewStore(st, log)
	if err := cartStore.Load(ctx); err != nil {
		log.Fatal("initialize cart", zap.Error(err))
	}

	catalog := openfoodfacts.NewClient(openfoodfacts.Options{
		BaseURL:    cfg.CatalogBaseURL,
		Timeout:    cfg.CatalogTimeout,
		MaxRetries: cfg.CatalogMaxRetries,
		RetryBase:  cfg.CatalogRetryBase,
		RetryMax:   cfg.CatalogRetryMax,
	}, log)

	catalogListing := listing.New(catalog, listing.Options{
		PageSize: cfg.CatalogPageSize,
		Debounce: cfg.SearchDebounce,
	}, log)
	defer catalogListing.Close()

	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.CatalogTimeout)
	catalogListing.LoadCategories(loadCtx)
	if err := catalogListing.Reload(loadCtx); err != nil {
		log.Warn("initial product load failed", zap.Error(err))
	}
	cancelLoad()

	srv := apphttp.NewServer(cfg, cartStore, catalog, catalogListing, drawer.New(), log)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("food explorer API listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("env", cfg.AppEnv),
			zap.String("store", cfg.StoreMode))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.Error("flush traces", zap.Error(err))
	}
}

// openStorage picks the durable backend. An unreachable database falls back
// to memory so the catalog stays usable; the cart then lives only as long as
// the process.
func openStorage(cfg config.Config, log *zap.Logger) (storepkg.Storage, func()) {
	var (
		st      storepkg.Storage
		closeFn = func() {}
	)
	switch cfg.StoreMode {
	case config.StoreModePostgres:
		pg, err := postgres.NewStore(cfg.DatabaseURL)
		if err != nil {
			log.Warn("postgres store unavailable, falling back to memory store", zap.Error(err))
			break
		}
		st, closeFn = pg, func() { _ = pg.Close() }
	case config.StoreModeRedis:
		rs, err := redis.NewStore(redis.Options{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.StorageKeyPrefix,
		})
		if err != nil {
			log.Warn("redis store unavailable, falling back to memory store", zap.Error(err))
			break
		}
		st, closeFn = rs, func() { _ = rs.Close() }
	}
	if st == nil {
		st = memory.NewStore(0)
	}

	if cfg.StorageEncryptionKey != "" {
		box, err := secretbox.New(cfg.StorageEncryptionKey)
		if err != nil {
			log.Fatal("storage encryption key", zap.Error(err))
		}
		st = sealed.NewStore(st, box)
	}
	return st, closeFn
}
