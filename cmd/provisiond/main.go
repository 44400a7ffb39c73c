package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	internalhttp "github.com/edgehive/provisiond/internal/api/http"
	"github.com/edgehive/provisiond/internal/auth"
	"github.com/edgehive/provisiond/internal/db"
	"github.com/edgehive/provisiond/internal/metrics"
	"github.com/edgehive/provisiond/internal/provision"
	"github.com/edgehive/provisiond/internal/store"
)

var AppVersion string

func main() {
	InitConfig()

	slog.Info("Device Provisioning Service", "version", AppVersion)

	if err := db.RunMigrations(config.Database.URL, config.Database.Schema); err != nil {
		slog.Error("Migrations failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.InitPool(ctx, config.Database)
	if err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	provisionMetrics := metrics.NewProvisionMetrics()

	profileStore := store.NewProfileStore(pool)
	deviceStore := store.NewDeviceStore(pool)
	keyIndex := store.NewKeyIndex(profileStore, config.Provision.KeyCacheTTL, provisionMetrics)

	issuer := provision.NewIssuer(deviceStore)
	provisioningService := provision.NewService(keyIndex, deviceStore, issuer, provisionMetrics)
	authService := auth.NewService(config.Auth)

	services := &internalhttp.Services{
		Provisioning: provisioningService,
		Auth:         authService,
		Profiles:     profileStore,
		KeyIndex:     keyIndex,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Http.Port),
		Handler: engine,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}
