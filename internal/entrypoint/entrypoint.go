package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/jlienhard/schoolhouse/internal/config"
	"github.com/jlienhard/schoolhouse/internal/database"
	"github.com/jlienhard/schoolhouse/internal/database/flashcards"
	"github.com/jlienhard/schoolhouse/internal/exporters"
	http_controllers "github.com/jlienhard/schoolhouse/internal/http"
	"github.com/jlienhard/schoolhouse/internal/services"
	"github.com/jlienhard/schoolhouse/internal/staging"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Schoolhouse v%s", version)

	if err := staging.Prepare(cfg.Staging.Dir); err != nil {
		log.Fatalf("Failed to prepare staging directory: %v", err)
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	repo := flashcards.NewRepository(db.DB)

	importService := services.NewImportService(
		cfg.Limits.MaxImportSize,
		cfg.Staging.Dir,
		cfg.Limits.DuplicateThreshold,
		repo,
		repo,
	)
	exportEngine := exporters.NewEngine(cfg.Limits.MaxExportSize, cfg.Staging.Dir)
	exportService := services.NewExportService(exportEngine, repo)

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Health: http_controllers.NewHealthController(db, version),
		Import: http_controllers.NewImportController(importService, cfg.Limits.MaxUploadBytes),
		Export: http_controllers.NewExportController(exportService),
	})

	// Sweep stale staging dirs left behind by crashed requests and
	// media-handling imports.
	scheduler := cron.New()
	maxAge := time.Duration(cfg.Staging.MaxAgeMinutes) * time.Minute
	_, err = scheduler.AddFunc(cfg.Staging.CleanupSchedule, func() {
		removed, err := staging.Cleanup(cfg.Staging.Dir, maxAge)
		if err != nil {
			log.Printf("Staging cleanup failed: %v", err)
			return
		}
		if removed > 0 {
			log.Printf("Staging cleanup removed %d stale directories", removed)
		}
	})
	if err != nil {
		log.Fatalf("Invalid staging cleanup schedule %q: %v", cfg.Staging.CleanupSchedule, err)
	}
	scheduler.Start()

	Serve(router, cfg, func(ctx context.Context) {
		stopCtx := scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	})
}
