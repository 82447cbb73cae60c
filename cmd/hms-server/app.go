package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/admin"
	"github.com/hms/hms/internal/domain/catalog"
	"github.com/hms/hms/internal/domain/feedback"
	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/domain/registration"
	"github.com/hms/hms/internal/domain/scheduling"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/metrics"
	"github.com/hms/hms/internal/platform/middleware"
	"github.com/hms/hms/internal/platform/store"
)

// backend is the opened record store. pool is set only for Postgres.
type backend struct {
	store store.Store
	pool  *pgxpool.Pool
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		r, err := store.NewRedisFromURL(cfg.RedisURL, cfg.RedisNamespace)
		if err != nil {
			return nil, err
		}
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return &backend{store: r}, nil
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &backend{store: pg, pool: pool}, nil
	default:
		return &backend{store: store.NewMemory()}, nil
	}
}

// newEngine falls back to the default grid for an invalid SLOT_* setting, so
// every command sees the grid the server books against.
func newEngine(cfg *config.Config) *scheduling.Engine {
	return scheduling.NewEngine(cfg.SlotGrid(), cfg.BookingHorizonMonths, &scheduling.MonotonicIDs{})
}

type app struct {
	echo       *echo.Echo
	registry   *prometheus.Registry
	identity   *identity.Service
	scheduling *scheduling.Service
}

func newApp(cfg *config.Config, b *backend, logger zerolog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	now := func() time.Time { return time.Now().In(loc) }

	var cat *catalog.Provider
	if cfg.CatalogDir != "" {
		cat, err = catalog.LoadDir(cfg.CatalogDir)
	} else {
		cat, err = catalog.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		logger.Warn().Msg("SESSION_SECRET not set, sessions will not survive a restart")
	}
	tokens, err := auth.NewTokens(secret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	engine := newEngine(cfg)

	ids := identity.NewService(b.store, tokens,
		identity.WithClock(now), identity.WithMetrics(m), identity.WithLogger(logger))
	sched := scheduling.NewService(scheduling.NewStoreRepository(b.store), cat, engine,
		scheduling.WithClock(now), scheduling.WithMetrics(m), scheduling.WithLogger(logger))
	regs := registration.NewService(registration.NewStoreRepository(b.store), cat,
		registration.WithClock(now), registration.WithMetrics(m), registration.WithLogger(logger))
	fbs := feedback.NewService(feedback.NewStoreRepository(b.store),
		feedback.WithClock(now), feedback.WithMetrics(m), feedback.WithLogger(logger))
	adm := admin.NewService(ids, sched, regs, cat, now)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	// handlers run on the timeout goroutine, so recovery must sit inside it
	e.Use(middleware.Recovery(logger))

	e.GET("/health", db.HealthHandler(cfg.StoreBackend, b.store, b.pool))
	e.GET("/metrics", metrics.Handler(reg))

	api := e.Group("/api/v1", auth.SessionMiddleware(ids))
	limit := middleware.DefaultRateLimitConfig()
	limit.RequestsPerSecond = cfg.RateLimitRPS
	limit.BurstSize = cfg.RateLimitBurst

	identity.NewHandler(ids).RegisterRoutes(api, middleware.RateLimit(limit))
	catalog.NewHandler(cat).RegisterRoutes(api)
	scheduling.NewHandler(sched).RegisterRoutes(api)
	registration.NewHandler(regs).RegisterRoutes(api)
	admin.NewHandler(adm).RegisterRoutes(api)
	feedback.NewHandler(fbs).RegisterRoutes(api)

	return &app{echo: e, registry: reg, identity: ids, scheduling: sched}, nil
}
