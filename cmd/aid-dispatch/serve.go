package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mr1hm/go-aid-dispatch/internal/api"
	"github.com/mr1hm/go-aid-dispatch/internal/events"
	"github.com/mr1hm/go-aid-dispatch/internal/ingestion"
	"github.com/mr1hm/go-aid-dispatch/internal/logging"
	"github.com/mr1hm/go-aid-dispatch/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and feed ingestion",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, os.Stdout)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	broadcaster := events.NewBroadcaster()
	sys, closeDB, err := buildSystem(cfg, broadcaster, true)
	if err != nil {
		return err
	}
	defer closeDB()

	if cfg.Server.MetricsEnabled {
		collector, err := metrics.NewCollector(nil, sys.Fleet.AvailableCount)
		if err != nil {
			return err
		}
		sys.SetObserver(collector)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := ingestion.NewManager(cfg, sys)
	mgr.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	handler := api.NewHandler(sys, newGeocoder(cfg))
	handler.RegisterRoutes(router)
	if cfg.Server.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler(nil)))
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err = <-serveErr:
		slog.Error("server error", "error", err)
	}

	slog.Info("shutting down...")

	cancel()
	mgr.Stop()
	broadcaster.Close() // Ends open event streams

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return err
}
