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

	"github.com/gin-gonic/gin"

	"gamecatalog/internal/auth"
	"gamecatalog/internal/cache"
	"gamecatalog/internal/catalog"
	"gamecatalog/internal/server"
	"gamecatalog/internal/static"
	"gamecatalog/pkg/config"
	"gamecatalog/pkg/database"
	"gamecatalog/pkg/logger"
	"gamecatalog/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("load config")
	}
	log := logger.Setup(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.JWTSecret == config.DevJWTSecret {
		log.Warn().Msg("using development JWT secret; set GAMECAT_JWT_SECRET")
	}

	ctx := context.Background()

	dbCfg := database.DefaultConfig()
	dbCfg.Driver = cfg.DBDriver
	dbCfg.DSN = cfg.DBDSN
	db, dialect, err := database.Open(ctx, dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, dialect); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	seed, err := static.LoadFile(cfg.StaticSeed, time.Now().UTC())
	if err != nil {
		log.Fatal().Err(err).Msg("load static catalog")
	}

	reg := metrics.NewRegistry()

	var optsCache catalog.OptionsCache = cache.NewMemory(cfg.CacheTTL)
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		defer rdb.Close()
		optsCache = cache.NewRedis(rdb, cfg.CacheTTL)
	}

	svc := catalog.NewService(
		catalog.NewRepo(db, dialect),
		seed,
		catalog.WithCache(optsCache),
		catalog.WithMetrics(reg),
	)

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.Deps{
		DB:       db,
		Catalog:  svc,
		AuthRepo: auth.NewRepo(db, dialect),
		Tokens: auth.TokenService{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Duration: cfg.JWTDuration,
		},
		Metrics:        reg,
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("db_driver", string(dialect)).
			Int("static_entries", seed.Len()).
			Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}

	wg.Wait()
	log.Info().Msg("server stopped")
}
