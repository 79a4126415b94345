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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dharmasatrya/flightbooking/internal/auth"
	"github.com/dharmasatrya/flightbooking/internal/booking"
	"github.com/dharmasatrya/flightbooking/internal/cache"
	"github.com/dharmasatrya/flightbooking/internal/config"
	"github.com/dharmasatrya/flightbooking/internal/handler"
	"github.com/dharmasatrya/flightbooking/internal/providers"
	"github.com/dharmasatrya/flightbooking/internal/ratelimit"
	"github.com/dharmasatrya/flightbooking/internal/store"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadServer()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DevSecret() {
		logger.Warn("JWT_SECRET not set, signing tokens with the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	provider, err := initializeProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize provider: %w", err)
	}
	logger.Info("flight provider ready", "provider", provider.Name())

	var searchCache cache.Cache
	if cfg.CacheEnabled {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Host: cfg.RedisHost,
			Port: cfg.RedisPort,
			TTL:  cfg.RedisTTL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		searchCache = redisCache
		logger.Info("redis cache enabled", "addr", cfg.RedisHost+":"+cfg.RedisPort, "ttl", cfg.RedisTTL)
	} else {
		searchCache = cache.NewNoOpCache()
		logger.Info("cache disabled")
	}
	defer searchCache.Close()

	var st store.Store
	if cfg.MongoURI != "" {
		mongoStore, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		st = mongoStore
		logger.Info("mongo store enabled", "database", cfg.MongoDatabase)
	} else {
		st = store.NewMemoryStore()
		logger.Warn("MONGO_URI not set, carts and bookings are kept in memory")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	bookings := booking.NewService(st, booking.WithLogger(logger))
	throttle := ratelimit.NewKeyedLimiter(ratelimit.RateLimitConfig{
		RequestsPerSecond: cfg.APIRateRPS,
		BurstSize:         cfg.APIRateBurst,
	})
	go sweepThrottle(ctx, throttle)

	handler.Register(e, handler.Handlers{
		Search:   handler.NewSearchHandler(provider, searchCache, logger),
		Cart:     handler.NewCartHandler(bookings, logger),
		Bookings: handler.NewBookingHandler(bookings, logger),
		Issuer:   auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Throttle: throttle,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting flight booking server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func initializeProvider(cfg config.Server, logger *slog.Logger) (providers.Provider, error) {
	if cfg.ProviderURL == "" {
		return providers.NewSimulatedProvider(providers.DefaultSimulatedConfig()), nil
	}

	limiter := ratelimit.NewKeyedLimiterWithDefaults()
	limiter.SetLimit(cfg.ProviderName, cfg.ProviderRPS, cfg.ProviderBurst)

	return providers.NewHTTPProvider(providers.HTTPConfig{
		Name:        cfg.ProviderName,
		BaseURL:     cfg.ProviderURL,
		Limiter:     limiter,
		RetryDelays: providers.DefaultRetryDelays(),
		Logger:      logger,
	})
}

func sweepThrottle(ctx context.Context, l *ratelimit.KeyedLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(10 * time.Minute)
		}
	}
}
