package app

import (
	"context"
	"net/http"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/sun8-storefront/internal/admin"
	"github.com/xenking/sun8-storefront/internal/api"
	"github.com/xenking/sun8-storefront/internal/concierge"
	"github.com/xenking/sun8-storefront/internal/domain/checkout"
	"github.com/xenking/sun8-storefront/internal/genai"
	"github.com/xenking/sun8-storefront/internal/i18n"
	"github.com/xenking/sun8-storefront/internal/persist"
	"github.com/xenking/sun8-storefront/internal/shop"
	"github.com/xenking/sun8-storefront/internal/storage"
	"github.com/xenking/sun8-storefront/internal/studio"
	"github.com/xenking/sun8-storefront/pkg/health"
	"github.com/xenking/sun8-storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lang, err := i18n.ParseLanguage(cfg.Language)
	if err != nil {
		return errors.Wrap(err, "language")
	}
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("language", lang.String()),
	)

	bundle, err := i18n.Load()
	if err != nil {
		return errors.Wrap(err, "load translations")
	}

	be, err := openBackend(ctx, lg, cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	kv := storage.WithQuota(be.kv, cfg.Storage.Quota)
	defer func() {
		if err := kv.Close(); err != nil {
			lg.Warn("Storage close failed", zap.Error(err))
		}
	}()

	s, err := shop.New(ctx, bundle, persist.New(kv, lg.Named("persist")), shop.Options{
		Language: lang,
		Checkout: checkout.Options{
			ProcessingDelay: cfg.Checkout.ProcessingDelay,
			Log:             be.orders,
		},
		Bus:    EventBus.New(),
		Logger: lg.Named("shop"),
	})
	if err != nil {
		return errors.Wrap(err, "create shop")
	}

	node, err := snowflake.NewNode(cfg.Admin.Node)
	if err != nil {
		return errors.Wrap(err, "snowflake node")
	}
	panel, err := admin.New(s, admin.Options{
		Node:          node,
		MaxImageBytes: cfg.Admin.MaxImageBytes,
		Logger:        lg.Named("admin"),
	})
	if err != nil {
		return errors.Wrap(err, "create admin panel")
	}

	keys := genai.NewKeyRing(cfg.GenAI.APIKey)
	client := genai.NewClient(keys, genai.Options{
		BaseURL:        cfg.GenAI.BaseURL,
		TextModel:      cfg.GenAI.TextModel,
		VideoModel:     cfg.GenAI.VideoModel,
		Timeout:        cfg.GenAI.Timeout,
		TracerProvider: m.TracerProvider(),
	})
	if !keys.Valid() {
		lg.Warn("No generative AI key configured, concierge and studio need one selected")
	}

	chat := concierge.NewSession(client, s, bundle, lang, concierge.Options{Logger: lg.Named("concierge")})
	if err := s.OnLanguageChange(chat.Reset); err != nil {
		return errors.Wrap(err, "subscribe concierge")
	}

	st := studio.New(client, keys, bundle, studio.Options{
		PollInterval:  cfg.GenAI.PollInterval,
		MaxImageBytes: int(cfg.Admin.MaxImageBytes),
		Logger:        lg.Named("studio"),
	})
	defer st.Close()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("storage", 5*time.Second, health.PingCheck(cfg.Storage.Driver, kv))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	defer healthSvc.Stop()
	healthSvc.SetReady(true)

	router := chi.NewRouter()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	api.NewHandler(s, panel, chat, st).Mount(router)

	routeFinder := chiRouteFinder(router)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Content-Disposition"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				Skip:   isProbe,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(routeFinder),
		), "storefront",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithFilter(func(r *http.Request) bool { return !isProbe(r) }),
		),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-gCtx.Done()
		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

func isProbe(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}

// chiRouteFinder resolves route patterns before the router runs so that the
// outer middlewares can label requests by route.
func chiRouteFinder(router chi.Routes) httpmiddleware.RouteFinder {
	return func(r *http.Request) string {
		rctx := chi.NewRouteContext()
		if !router.Match(rctx, r.Method, r.URL.Path) {
			return ""
		}
		return rctx.RoutePattern()
	}
}
