// Package entrypoint wires the application together and runs the HTTP
// server with graceful shutdown.
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

	"github.com/mlukasik/filmlog/internal/audit"
	"github.com/mlukasik/filmlog/internal/config"
	"github.com/mlukasik/filmlog/internal/database"
	auditrepo "github.com/mlukasik/filmlog/internal/database/audit"
	"github.com/mlukasik/filmlog/internal/database/importjobs"
	"github.com/mlukasik/filmlog/internal/database/library"
	"github.com/mlukasik/filmlog/internal/database/users"
	http_controllers "github.com/mlukasik/filmlog/internal/http"
	"github.com/mlukasik/filmlog/internal/importer"
	"github.com/mlukasik/filmlog/internal/matcher"
	"github.com/mlukasik/filmlog/internal/progress"
	"github.com/mlukasik/filmlog/internal/resolver"
	"github.com/mlukasik/filmlog/internal/scheduler"
	"github.com/mlukasik/filmlog/internal/tasks"
	"github.com/mlukasik/filmlog/internal/tmdb"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM arrives, then shuts it
// down within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background workers before the HTTP listener so in-flight
	// jobs get released back to the queue.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run assembles the service and blocks until shutdown.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting filmlog v%s", version)

	if cfg.TMDB.Token == "" {
		log.Printf("WARNING: TMDB token is not set. Catalog lookups will fail and every imported title will be recorded as unmatched. Set 'TMDB_TOKEN' to enable matching.")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	usersRepo := users.NewRepository(db.DB)
	libraryRepo := library.NewRepository(db.DB)
	jobsRepo := importjobs.NewRepository(db.DB)
	auditRepo := auditrepo.NewRepository(db.DB)
	auditService := audit.NewService(auditRepo)

	if _, err := usersRepo.EnsureDefaultUser(); err != nil {
		log.Fatalf("Failed to ensure default user: %v", err)
	}

	catalogClient := tmdb.NewClient(cfg.TMDB.Token)
	itemMatcher := matcher.New(catalogClient)
	conflictResolver := resolver.New(libraryRepo)
	orchestrator := importer.New(jobsRepo, itemMatcher, conflictResolver)
	reporter := progress.NewReporter(jobsRepo)

	var enqueuer http_controllers.TaskEnqueuer
	var queueHealth http_controllers.QueuePinger
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var cleanupScheduler *scheduler.CleanupScheduler
	if cfg.Tasks.Enabled {
		taskCfg := tasks.DefaultConfig()
		if cfg.Tasks.Workers > 0 {
			taskCfg.Workers = cfg.Tasks.Workers
		}
		if cfg.Tasks.ReleaseAfter > 0 {
			taskCfg.ReleaseAfter = cfg.Tasks.ReleaseAfter
		}
		if cfg.Tasks.CleanupInterval > 0 {
			taskCfg.CleanupInterval = cfg.Tasks.CleanupInterval
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewProcessImportJobQueue(orchestrator),
			tasks.NewCleanupImportJobsQueue(jobsRepo, auditRepo),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
		enqueuer = taskClient
		queueHealth = taskClient

		if cfg.Cleanup.Enabled {
			cleanupScheduler = scheduler.NewCleanupScheduler(taskClient, cfg.Cleanup.Schedule, cfg.Cleanup.RetentionDays)
			if err := cleanupScheduler.Start(); err != nil {
				log.Fatalf("Failed to start cleanup scheduler: %v", err)
			}
		}
	} else {
		log.Printf("WARNING: Task queue disabled. Uploads will be rejected because import jobs cannot be processed.")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Users:             usersRepo,
		ImportController:  http_controllers.NewImportController(orchestrator, reporter, enqueuer, auditService),
		LibraryController: http_controllers.NewLibraryController(libraryRepo),
		AuditController:   http_controllers.NewAuditController(auditService),
		HealthController:  http_controllers.NewHealthController(db, queueHealth, version),
	})

	onShutdown := func(ctx context.Context) {
		if cleanupScheduler != nil {
			cleanupScheduler.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
