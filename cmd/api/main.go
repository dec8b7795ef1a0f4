package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tienda-api/internal/address"
	"github.com/noah-isme/tienda-api/internal/app"
	"github.com/noah-isme/tienda-api/internal/audit"
	"github.com/noah-isme/tienda-api/internal/auth"
	"github.com/noah-isme/tienda-api/internal/cart"
	"github.com/noah-isme/tienda-api/internal/catalog"
	"github.com/noah-isme/tienda-api/internal/checkout"
	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/config"
	"github.com/noah-isme/tienda-api/internal/coupon"
	"github.com/noah-isme/tienda-api/internal/events"
	"github.com/noah-isme/tienda-api/internal/health"
	"github.com/noah-isme/tienda-api/internal/lock"
	"github.com/noah-isme/tienda-api/internal/notify"
	"github.com/noah-isme/tienda-api/internal/obs"
	"github.com/noah-isme/tienda-api/internal/queue"
	"github.com/noah-isme/tienda-api/internal/ratelimit"
	"github.com/noah-isme/tienda-api/internal/resilience"
	"github.com/noah-isme/tienda-api/internal/security"
	"github.com/noah-isme/tienda-api/internal/storeconfig"
	"github.com/noah-isme/tienda-api/internal/wishlist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		ServiceName:   cfg.OTelServiceName,
		Endpoint:      cfg.OTelEndpoint,
		Exporter:      cfg.OTelExporter,
		SamplingRatio: cfg.OTelSampleRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		shutdownTracer = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	registry := app.NewRegistry()
	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, nil, registry)
	domainMetrics := obs.NewDomainMetrics(cfg.MetricsNamespace, registry)
	resilience.RegisterMetrics(cfg.MetricsNamespace, registry)

	redisClient, err := app.NewRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	taskClient, err := app.NewTaskClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect task queue")
	}
	defer func() { _ = taskClient.Close() }()

	inspector, err := app.NewTaskInspector(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect task inspector")
	}
	defer func() { _ = inspector.Close() }()

	relay := &events.RedisRelay{R: redisClient, Logger: logger}
	bus := &events.Bus{Relay: relay, Logger: logger}
	relayReady := make(chan struct{})
	go func() {
		if err := relay.Run(ctx, bus, relayReady); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("event relay stopped")
		}
	}()

	storeSvc := &storeconfig.Service{
		R:        redisClient,
		Locker:   lock.Locker{R: redisClient, RetryBackoff: 50 * time.Millisecond, MaxWait: 2 * time.Second},
		Bus:      bus,
		Defaults: app.StoreDefaults(cfg),
		Logger:   logger,
	}
	if _, err := storeSvc.Current(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load store config")
	}
	for _, topic := range events.ConfigTopics() {
		bus.Subscribe(topic, func(_ context.Context, ev events.Event) error {
			domainMetrics.ConfigUpdated(ev.Topic)
			return nil
		})
	}

	seed, err := catalog.LoadSeed()
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog seed")
	}
	catalogSvc := catalog.NewService(catalog.ServiceConfig{
		Seed:   seed,
		Cache:  catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	})
	unsync, err := storeSvc.SyncCatalog(ctx, bus, catalogSvc)
	if err != nil {
		logger.Fatal().Err(err).Msg("apply store config to catalog")
	}
	defer unsync()

	publisher := &notify.Publisher{
		Client:    taskClient,
		Queue:     cfg.QueueName,
		MaxRetry:  cfg.QueueMaxRetry,
		Retention: cfg.QueueRetention,
		Logger:    logger,
	}
	bus.Subscribe(events.TopicOrderCreated, publisher.OnOrderCreated)

	cartStore := &cart.Store{R: redisClient, Catalog: catalogSvc, TTL: cfg.SessionTTL, MaxQty: cfg.CartMaxQty}
	wishlistStore := &wishlist.Store{R: redisClient, Products: catalogSvc, Cart: cartStore, TTL: cfg.SessionTTL}
	addressBook := &address.Book{R: redisClient, TTL: cfg.SessionTTL}

	checkoutSvc := &checkout.Service{
		Carts:     cartStore,
		Addresses: addressBook,
		Config:    storeSvc,
		Bus:       bus,
		Metrics:   domainMetrics,
		Logger:    logger.With().Str("component", "checkout").Logger(),
		Location:  cfg.Location(),
	}

	authService, err := auth.NewService(auth.Config{
		Username:       cfg.AdminUsername,
		PasswordHash:   cfg.AdminPasswordHash,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	if cfg.AdminPasswordHash == "" {
		logger.Warn().Msg("ADMIN_PASSWORD_HASH is empty, admin login is disabled")
	}
	loginLimiter, err := app.NewLoginLimiter(redisClient, cfg.LoginRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise login limiter")
	}

	catalogHandler := &catalog.Handler{
		Service: catalogSvc,
		Money:   func(ctx context.Context) catalog.MoneyFormatter { return storeSvc.Money(ctx) },
	}
	cartHandler := &cart.Handler{Store: cartStore, Surcharge: storeSvc.Surcharge}
	wishlistHandler := &wishlist.Handler{Store: wishlistStore, Surcharge: storeSvc.Surcharge}
	addressHandler := &address.Handler{Book: addressBook}
	couponHandler := &coupon.Handler{Source: storeSvc}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}
	storeHandler := &storeconfig.Handler{Service: storeSvc}
	authHandler := &auth.Handler{Service: authService, Limiter: loginLimiter}
	authMiddleware := auth.Middleware{Service: authService}
	auditLog := &audit.Log{R: redisClient}
	auditHandler := audit.Handler{Log: auditLog}
	recorder := audit.Recorder{Log: auditLog, Logger: logger}
	queueHandler := &queue.AdminHandler{
		Inspector: inspector,
		Queue:     cfg.QueueName,
		Metrics:   queue.NewMetrics(cfg.MetricsNamespace, registry),
		Logger:    logger.With().Str("component", "queue-admin").Logger(),
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	checkoutLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:"},
		Config:  ratelimit.Config{Key: ratelimit.SessionOrIP("checkout"), Window: time.Minute, Max: cfg.CheckoutRPM},
		OnError: func(err error) { logger.Warn().Err(err).Msg("checkout rate limiter unavailable") },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.TracingMiddleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.IsProduction()}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	if cfg.PprofEnabled {
		r.Mount("/debug", protectPprof(middleware.Profiler(), cfg.PprofUser, cfg.PprofPass))
	}

	healthHandler := health.Handler{Checker: health.RedisChecker{R: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Post("/session", common.IssueSession)
		v.Get("/store", storeHandler.Public)

		v.Get("/categories", catalogHandler.Categories)
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/price-range", catalogHandler.PriceRange)
		v.Get("/products/{productID}", catalogHandler.Product)
		v.Get("/coupons/{code}", couponHandler.Preview)

		v.Group(func(s chi.Router) {
			s.Use(common.RequireSession)

			s.Route("/cart", func(c chi.Router) {
				c.Get("/", cartHandler.Get)
				c.Delete("/", cartHandler.Clear)
				c.Post("/items", cartHandler.AddItem)
				c.Patch("/items/{itemKey}", cartHandler.UpdateItem)
				c.Delete("/items/{itemKey}", cartHandler.RemoveItem)
			})

			s.Route("/wishlist", func(wl chi.Router) {
				wl.Get("/", wishlistHandler.List)
				wl.Post("/", wishlistHandler.Add)
				wl.Get("/{productID}", wishlistHandler.Check)
				wl.Delete("/{productID}", wishlistHandler.Remove)
				wl.Post("/{productID}/move-to-cart", wishlistHandler.MoveToCart)
			})

			s.Route("/addresses", func(a chi.Router) {
				a.Get("/", addressHandler.List)
				a.Post("/", addressHandler.Create)
				a.Get("/{addressID}", addressHandler.Get)
				a.Patch("/{addressID}", addressHandler.Update)
				a.Delete("/{addressID}", addressHandler.Delete)
			})

			s.With(checkoutLimit.Middleware).Post("/checkout/quote", checkoutHandler.Quote)
			s.With(checkoutLimit.Middleware, idem.Middleware).Post("/checkout", checkoutHandler.Checkout)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Post("/login", authHandler.Login)
			admin.Group(func(p chi.Router) {
				p.Use(authMiddleware.RequireAdmin)
				p.Get("/me", authHandler.Me)
				p.Get("/config", storeHandler.Get)
				p.With(recorder.Middleware(audit.Route{Action: "config.store.update", Resource: "store"})).Put("/store", storeHandler.PutStore)
				p.With(recorder.Middleware(audit.Route{Action: "config.zones.update", Resource: "zones"})).Put("/zones", storeHandler.PutZones)
				p.With(recorder.Middleware(audit.Route{Action: "config.surcharge.update", Resource: "surcharge"})).Put("/surcharge", storeHandler.PutSurcharge)
				p.With(recorder.Middleware(audit.Route{Action: "config.coupons.update", Resource: "coupons"})).Put("/coupons", storeHandler.PutCoupons)
				p.With(recorder.Middleware(audit.Route{Action: "config.currency.update", Resource: "currency"})).Put("/currency", storeHandler.PutCurrency)
				p.With(recorder.Middleware(audit.Route{Action: "config.products.update", Resource: "products"})).Put("/products", storeHandler.PutProducts)
				p.Get("/audit", auditHandler.List)

				p.Route("/notifications", func(n chi.Router) {
					n.Get("/stats", queueHandler.Stats)
					n.Get("/failed", queueHandler.ListFailed)
					n.With(recorder.Middleware(audit.Route{Action: "notifications.replay", Resource: "notifications"})).Post("/failed/replay", queueHandler.Replay)
					n.With(recorder.Middleware(audit.Route{Action: "notifications.discard", Resource: "notifications"})).Delete("/failed/{taskID}", queueHandler.Discard)
				})
			})
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	select {
	case <-relayReady:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("event relay not subscribed yet, config changes from other instances may be missed")
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	shutdown(srv, cfg.ShutdownTimeout, logger)
}

func shutdown(srv *http.Server, timeout time.Duration, logger zerolog.Logger) {
	health.SetReady(false)
	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
