package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-cart/internal/auth"
	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/common"
	"github.com/noah-isme/toko-cart/internal/config"
	"github.com/noah-isme/toko-cart/internal/coupon"
	"github.com/noah-isme/toko-cart/internal/db"
	"github.com/noah-isme/toko-cart/internal/events"
	"github.com/noah-isme/toko-cart/internal/health"
	"github.com/noah-isme/toko-cart/internal/lock"
	"github.com/noah-isme/toko-cart/internal/notify"
	"github.com/noah-isme/toko-cart/internal/obs"
	"github.com/noah-isme/toko-cart/internal/ratelimit"
	"github.com/noah-isme/toko-cart/internal/security"
	"github.com/noah-isme/toko-cart/internal/session"
	"github.com/noah-isme/toko-cart/internal/shop"
	"github.com/noah-isme/toko-cart/internal/tasks"
)

// App is the assembled storefront.
type App struct {
	cfg  *config.Config
	deps *Dependencies
	log  zerolog.Logger

	Events   *events.Bus
	Sessions *session.Store
	Catalog  *catalog.Service
	Coupons  *coupon.Service
	Shop     *shop.Service
	Auth     *auth.Service
	Stats    tasks.SalesStats

	httpMetrics *obs.HTTPMetrics
	limiter     ratelimit.Limiter
	stopJanitor context.CancelFunc
}

// New builds every service on top of deps. Postgres-backed repositories are used
// when deps.DB is set and redis-backed sessions, feeds and locks when deps.Redis is.
func New(ctx context.Context, cfg *config.Config, deps *Dependencies, logger zerolog.Logger) (*App, error) {
	if deps == nil {
		deps = &Dependencies{}
	}
	if deps.Registry == nil {
		deps.Registry = obs.NewRegistry()
	}
	a := &App{cfg: cfg, deps: deps, log: logger}

	if cfg.Obs.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, deps.Registry)
		a.httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), deps.Registry)
	}

	var (
		products   catalog.Repository
		couponRepo coupon.Repository
		eventStore events.EventStore
	)
	if deps.DB != nil {
		products = catalog.NewPostgresRepository(deps.DB)
		couponRepo = coupon.NewPostgresRepository(deps.DB)
		eventStore = events.NewPostgresStore(deps.DB)
	} else {
		products = catalog.NewMemoryRepository()
		couponRepo = coupon.NewMemoryRepository()
		eventStore = events.NewMemoryStore()
	}
	if cfg.SeedOnBoot {
		res, err := db.Seed(ctx, products, couponRepo)
		if err != nil {
			return nil, err
		}
		if res.Products > 0 || res.Coupons > 0 {
			logger.Info().Int("products", res.Products).Int("coupons", res.Coupons).Msg("initial catalog seeded")
		}
	}

	a.Events = &events.Bus{
		Store:     eventStore,
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger.With().Str("component", "events").Logger()}},
	}
	if deps.TaskClient != nil {
		a.Events.Notifiers = append(a.Events.Notifiers, tasks.NewNotifier(deps.TaskClient, logger, events.DefaultTopics()...))
	}

	var (
		persister session.Persister
		locker    session.Locker
		feed      notify.Feed
	)
	if deps.Redis != nil {
		persister = session.NewRedisPersister(deps.Redis, cfg.SessionTTL)
		locker = lock.Locker{R: deps.Redis, RetryBackoff: 20 * time.Millisecond}
		feed = notify.NewRedisFeed(deps.Redis, cfg.SessionTTL, notify.DefaultFeedLimit, logger)
		a.limiter = ratelimit.Sliding{Client: deps.Redis, Prefix: "rl:"}
	} else {
		persister = session.NewMemoryPersister(cfg.SessionTTL)
		locker = &lock.Local{}
		feed = notify.NewMemoryFeed(notify.DefaultFeedLimit)
		a.limiter = ratelimit.NewMemory("rl")
	}
	a.Stats = tasks.SalesStats{R: deps.Redis}

	var err error
	a.Sessions, err = session.NewStore(session.Config{Persister: persister, Locker: locker, Logger: logger})
	if err != nil {
		return nil, err
	}
	if deps.Redis == nil && cfg.SessionTTL > 0 {
		janitorCtx, cancel := context.WithCancel(ctx)
		a.stopJanitor = cancel
		go a.Sessions.RunJanitor(janitorCtx, janitorInterval(cfg.SessionTTL))
	}
	a.Catalog, err = catalog.NewService(catalog.ServiceConfig{
		Repo:   products,
		Cache:  catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL),
		Events: a.Events,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	a.Coupons, err = coupon.NewService(coupon.ServiceConfig{
		Repo:      couponRepo,
		Events:    a.Events,
		Selection: a.Sessions,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	a.Shop, err = shop.NewService(shop.Config{
		Sessions: a.Sessions,
		Products: a.Catalog,
		Coupons:  a.Coupons,
		Feed:     feed,
		Events:   a.Events,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	a.Auth, err = auth.NewService(auth.Config{
		Secret:       cfg.AdminJWTSecret,
		PasswordHash: cfg.AdminPasswordHash,
		TokenTTL:     cfg.AdminTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise admin auth: %w", err)
	}
	if cfg.AdminPasswordHash == "" {
		logger.Warn().Msg("ADMIN_PASSWORD_HASH not set; admin login is disabled")
	}
	return a, nil
}

// Handler returns the router, wrapped in an otelhttp server span when tracing is on.
func (a *App) Handler() http.Handler {
	router := a.Router()
	if !a.cfg.Obs.TracingEnabled {
		return router
	}
	return otelhttp.NewHandler(router, a.cfg.Obs.ServiceName)
}

// Router builds the chi router with every route and middleware.
func (a *App) Router() chi.Router {
	cfg := a.cfg
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{
		Enable:                true,
		EnableHSTS:            cfg.IsProduction(),
		HSTSIncludeSubdomains: true,
		NoStorePrefixes:       []string{"/api/v1/carts", "/api/v1/admin"},
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"Location", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))
	if cfg.Obs.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if a.httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: a.httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: a.log}.Middleware)

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", obs.Handler(a.deps.Registry))
	}
	if cfg.Obs.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.Obs.PprofUser, cfg.Obs.PprofPass))
	}

	healthHandler := health.Handler{Checker: health.Probes{DB: a.deps.DB, Redis: a.deps.Redis}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: a.Catalog})
	couponHandler := coupon.NewHandler(a.Coupons)
	shopHandler := shop.NewHandler(a.Shop)
	authHandler := auth.NewHandler(a.Auth)
	authMiddleware := auth.Middleware{Service: a.Auth}
	statsHandler := tasks.StatsHandler{Stats: a.Stats}
	idem := common.Idem{R: a.deps.Redis, TTL: cfg.IdempotencyTTL}
	limit := ratelimit.Handler{
		Limiter: a.limiter,
		Config:  ratelimit.Config{Key: ratelimit.ByClientIP, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) { a.log.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limit.Middleware)
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}", catalogHandler.Product)
		v.Get("/coupons", couponHandler.List)

		v.Route("/carts", func(c chi.Router) {
			shopHandler.Routes(c, idem.Middleware)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Post("/login", authHandler.Login)
			admin.Group(func(g chi.Router) {
				g.Use(authMiddleware.RequireAdmin)
				g.Post("/products", catalogHandler.Create)
				g.Post("/products/validate", catalogHandler.ValidateField)
				g.Patch("/products/{id}", catalogHandler.Update)
				g.Delete("/products/{id}", catalogHandler.Delete)
				g.Post("/coupons", couponHandler.Create)
				g.Delete("/coupons/{code}", couponHandler.Delete)
				g.Get("/stats/daily", statsHandler.Daily)
			})
		})
	})
	return r
}

// Close stops background work and releases the backends.
func (a *App) Close() error {
	if a.stopJanitor != nil {
		a.stopJanitor()
	}
	return a.deps.Close()
}

func janitorInterval(ttl time.Duration) time.Duration {
	every := ttl / 4
	if every < time.Minute {
		every = time.Minute
	}
	return every
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
