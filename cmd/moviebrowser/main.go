package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ogero/moviebrowser/internal"
	"github.com/ogero/moviebrowser/internal/cache"
	"github.com/ogero/moviebrowser/internal/common"
	"github.com/ogero/moviebrowser/internal/config"
	"github.com/ogero/moviebrowser/internal/favorites"
	"github.com/ogero/moviebrowser/pkg/catalog"
	"github.com/ogero/moviebrowser/pkg/images"
	"github.com/ogero/moviebrowser/pkg/transport"
	slogchi "github.com/samber/slog-chi"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		common.Log.Error("Failed to config.Load", "err", err)
		os.Exit(1)
	}

	loggerShutdown, err := common.InitLogger(cfg.ServiceName, cfg.ServiceVersion, cfg.ServiceEnvironment, cfg.OtelExporterEndpoint)
	if err != nil {
		common.Log.Error("Failed to common.InitLogger", "err", err)
		os.Exit(1)
	}

	instrumentationShutdown, err := common.InitInstrumentation(cfg.ServiceName, cfg.ServiceVersion, cfg.ServiceEnvironment, cfg.OtelExporterEndpoint)
	if err != nil {
		common.Log.Error("Failed to common.InitInstrumentation", "err", err)
		os.Exit(1)
	}

	responses, err := cache.NewResponses(cfg.ResponseCacheBytes)
	if err != nil {
		common.Log.Error("Failed to cache.NewResponses", "err", err)
		os.Exit(1)
	}

	imageStore, err := cache.OpenStore(cfg.ImageStoreDir, cfg.ImageStoreTTL, common.Log)
	if err != nil {
		common.Log.Error("Failed to cache.OpenStore", "err", err)
		os.Exit(1)
	}

	catalogClient := catalog.NewClient(
		transport.NewHTTPTransport(
			transport.WithTimeout(cfg.CatalogTimeout),
			transport.WithRateLimit(cfg.RequestsPerSecond),
		),
		responses,
		cfg.CatalogBaseURL,
		common.Log,
	)

	imageLoader, err := images.NewLoader(
		images.NewTransport(transport.WithTimeout(cfg.ImageTimeout)),
		imageStore,
		cfg.ImageCacheBytes,
		common.Log,
	)
	if err != nil {
		common.Log.Error("Failed to images.NewLoader", "err", err)
		os.Exit(1)
	}

	browserService, err := internal.NewBrowserService(
		"ratings",
		catalogClient,
		catalog.NewRatingEnricher(catalogClient, cfg.RatingsConcurrency, common.Log),
		favorites.NewStore(),
		imageLoader,
	)
	if err != nil {
		common.Log.Error("Failed to internal.NewBrowserService", "err", err)
		os.Exit(1)
	}

	app := internal.NewApp(browserService)

	r := chi.NewRouter()
	r.Use(slogchi.New(common.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{
			"Content-Type",
			"X-Requested-With",
			"Accept",
			"Accept-Language",
			"Accept-Encoding",
			"Content-Language",
			"Origin",
		},
		MaxAge: 300,
	}))
	app.Routes(r)

	// Listen
	srv := &http.Server{
		Addr:    cfg.ServerListenAddr,
		Handler: otelhttp.NewHandler(r, "moviebrowser"),
	}
	go func() {
		common.Log.Info("Listening", "addr", cfg.ServerListenAddr, "catalog", cfg.CatalogBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.Log.Error("Failed to http.Server.ListenAndServe", "err", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		common.Log.Error("Failed to http server shutdown", "err", err)
	}

	if err := browserService.Shutdown(ctx); err != nil {
		common.Log.Error("Failed to internal.BrowserService.Shutdown", "err", err)
	}

	imageLoader.Close()
	responses.Close()

	if err := imageStore.Close(); err != nil {
		common.Log.Error("Failed to cache.Store.Close", "err", err)
	}

	common.Log.Info("Bye!")

	instrumentationShutdown(ctx)
	if err := loggerShutdown(ctx); err != nil {
		common.Log.Error("Failed to logger shutdown", "err", err)
	}
}
