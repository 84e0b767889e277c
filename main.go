package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio-tracker/cache"
	"portfolio-tracker/config"
	"portfolio-tracker/database"
	"portfolio-tracker/handlers"
	"portfolio-tracker/jobs"
	"portfolio-tracker/logger"
	"portfolio-tracker/market"
	"portfolio-tracker/middleware"
	"portfolio-tracker/session"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg.DB)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	var store cache.Store = cache.NewMemoryStore()
	checks := map[string]handlers.Pinger{"postgres": sqlDB.PingContext}
	if cfg.Redis.Enabled {
		rdb, err := config.InitRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		store = cache.NewRedisStore(rdb, cfg.Redis.Prefix)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		zl.Warn("redis disabled, using in-process cache")
	}

	av := market.NewAlphaVantage(cfg.Market.APIKey, cfg.Market.Timeout)
	if cfg.Market.BaseURL != "" {
		av.BaseURL = cfg.Market.BaseURL
	}
	var upstream market.Provider = av
	if cfg.Market.ArchiveBars {
		upstream = market.NewArchivingProvider(av, database.NewPriceStore(db), zl)
	}
	prices := market.NewCachedProvider(upstream, store, market.CacheTTL{
		Latest:  cfg.Market.LatestTTL,
		History: cfg.Market.HistoryTTL,
		Info:    cfg.Market.InfoTTL,
		News:    cfg.Market.NewsTTL,
	}, zl)

	sessions := session.NewRegistry(prices, database.NewLedgerStore(db), zl)

	runner := jobs.NewRunner(ctx, zl)
	if cfg.Cron.Enabled {
		if err := jobs.NewQuoteRefresher(sessions, prices, zl).Schedule(runner, cfg.Cron.QuoteRefresh); err != nil {
			return err
		}
		runner.Start()
		defer runner.Stop()
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(zl))

	secret := []byte(cfg.Auth.JWTSecret)
	handlers.Routes{
		Auth:      handlers.NewAuthHandler(database.NewUserStore(db), store, secret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, zl),
		Portfolio: handlers.NewPortfolioHandler(sessions, zl),
		Market:    handlers.NewMarketHandler(prices, zl),
		Health:    handlers.Health(checks),
	}.Register(router, middleware.JWTAuth(secret))

	srv := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		zl.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
