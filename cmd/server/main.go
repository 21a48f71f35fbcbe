// Command server serves the customer search API
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/diogoqz/api-consulta-hotmart/config"
	"github.com/diogoqz/api-consulta-hotmart/internal/app"
	"github.com/diogoqz/api-consulta-hotmart/pkg/middleware"
	"github.com/diogoqz/api-consulta-hotmart/pkg/routes/health"
	"github.com/diogoqz/api-consulta-hotmart/pkg/routes/imports"
	searchroutes "github.com/diogoqz/api-consulta-hotmart/pkg/routes/search"
	"github.com/diogoqz/api-consulta-hotmart/pkg/routes/stats"
	"github.com/diogoqz/api-consulta-hotmart/pkg/startup"
	"github.com/diogoqz/api-consulta-hotmart/pkg/tracing"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger ectologger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: cfg.AppName,
		Exporter:    cfg.TracingExporter,
		Endpoint:    cfg.TracingEndpoint,
		Insecure:    cfg.TracingInsecure,
		Timeout:     10 * time.Second,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	a := app.New(cfg, logger)
	checker := health.NewChecker(version)
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	serverErrors := make(chan error, 1)
	routed := false

	a.AddDependency(&startup.Dependency{
		Name:     "http",
		Requires: []string{app.DependencyComponents},
		StartFunc: func(ctx context.Context) error {
			if !routed {
				if err := setupRoutes(ctx, e, cfg, a, checker, logger); err != nil {
					return err
				}
				routed = true
			}
			go func() {
				logger.WithField("addr", srv.Addr).Info("HTTP server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErrors <- err
				}
			}()
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	if err := a.Start(ctx); err != nil {
		return err
	}
	checker.SetReady(true)

	select {
	case err = <-serverErrors:
		logger.WithError(err).Error("Server error")
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if stopErr := a.Stop(shutdownCtx); stopErr != nil {
		logger.WithError(stopErr).Error("Graceful shutdown failed")
	}

	logger.Info("Server stopped")
	return err
}

func setupRoutes(ctx context.Context, e *echo.Echo, cfg *config.Config, a *app.App, checker *health.Checker, logger ectologger.Logger) error {
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(echomiddleware.Recover())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	checker.AddCheck("database", func(ctx context.Context) (string, error) {
		if err := a.DB.PingContext(ctx); err != nil {
			return "", err
		}
		count, err := a.Sales.Count(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d records", count), nil
	})
	checker.AddCheck("cache", func(ctx context.Context) (string, error) {
		return "", a.Store.Ping(ctx)
	})
	if a.Graph != nil {
		checker.AddCheck("graph", func(ctx context.Context) (string, error) {
			return "", a.Graph.VerifyConnectivity(ctx)
		})
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	health.RegisterIndex(e, "/api", cfg.AppName, version)

	checker.RegisterRoutes(e.Group("/api/v1"))

	api := e.Group("/api")

	if cfg.AuthEnabled {
		verifier, err := middleware.NewOIDCVerifier(ctx, cfg.AuthIssuerURL, cfg.AuthClientID)
		if err != nil {
			return err
		}
		api = api.Group("", middleware.Authentication(logger, verifier))
	}

	searchOpts := []searchroutes.Option{
		searchroutes.WithCache(a.SearchCache),
		searchroutes.WithSummaries(a.Summaries),
		searchroutes.WithPublisher(a.Publisher),
	}
	if policy := cfg.Policy; policy != nil {
		defaults := policy.Search
		defaults.MinScore = policy.APIMinScore
		searchOpts = append(searchOpts, searchroutes.WithDefaults(defaults))
	}
	searchroutes.NewHandler(a.Engine, logger, searchOpts...).Register(api)

	statsOpts := []stats.Option{stats.WithSummaries(a.Summaries)}
	if a.Projection != nil {
		statsOpts = append(statsOpts, stats.WithGraph(a.Projection))
	}
	stats.NewHandler(a.Engine, a.Sales, logger, statsOpts...).Register(api)

	imports.NewHandler(a.Importer, a.Runs, logger, cfg.MaxUploadBytes).Register(api)

	return nil
}
