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

	"github.com/classmind/classmind/app/alert"
	"github.com/classmind/classmind/app/api"
	"github.com/classmind/classmind/app/cfg"
	"github.com/classmind/classmind/app/classroom"
	"github.com/classmind/classmind/app/database"
	"github.com/classmind/classmind/app/reminders"
	"github.com/classmind/classmind/app/sync"
	"github.com/classmind/classmind/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was requested
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting ClassMind", "version", appCfg.Version, "timezone", appCfg.Timezone)

	if err := appCfg.Validate(); err != nil {
		slog.Error("Configuration invalid", "error", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser, appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	if dirty {
		slog.Error("Database schema is dirty, refusing to run", "version", version)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "version", version)

	ctx := context.Background()

	source, err := classroom.NewClient(ctx, appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.GoogleRefreshToken, appCfg.Location)
	if err != nil {
		slog.Error("Failed to initialize classroom client", "error", err)
		os.Exit(1)
	}

	sink, err := reminders.NewClient(ctx, appCfg.CalDAVURL, appCfg.CalDAVUsername, appCfg.CalDAVPassword)
	if err != nil {
		slog.Error("Failed to initialize reminder client", "error", err)
		os.Exit(1)
	}

	courseRepo := database.NewCourseRepository(db)
	assignmentRepo := database.NewAssignmentRepository(db)
	runRepo := database.NewRunRepository(db)

	if appCfg.Verify {
		// Database and CalDAV connectivity are proven by construction above;
		// a roster read covers the Classroom credentials
		courses, err := source.Courses(ctx)
		if err != nil {
			slog.Error("Verification failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Verification passed", "courses", len(courses))
		return
	}

	engine := sync.NewEngine(courseRepo, assignmentRepo, runRepo, source, sink)

	var alerter sync.Alerter
	mailer := alert.NewMailer()
	if mailer.Enabled() {
		alerter = mailer
	} else {
		slog.Warn("Failure alerts disabled (ALERT_EMAIL not set)")
	}
	monitor := sync.NewMonitor(runRepo, alerter)

	if !appCfg.Serve {
		runOnce(ctx, engine, monitor)
		return
	}

	serve(appCfg, engine, monitor, courseRepo, assignmentRepo, runRepo)
}

// runOnce executes a single pass and exits nonzero on failure so the
// invoking job (cron, CI runner) surfaces it.
func runOnce(ctx context.Context, engine *sync.Engine, monitor *sync.Monitor) {
	_, err := engine.Run(ctx)
	if err != nil {
		if rerr := monitor.RecordFailure(ctx, err); rerr != nil {
			slog.Error("Failed to record pass failure", "error", rerr)
		}
		os.Exit(1)
	}

	if rerr := monitor.RecordSuccess(ctx); rerr != nil {
		slog.Error("Failed to record pass success", "error", rerr)
		os.Exit(1)
	}
}

func serve(appCfg *cfg.Cfg, engine *sync.Engine, monitor *sync.Monitor,
	courseRepo database.CourseRepository, assignmentRepo database.AssignmentRepository,
	runRepo database.RunRepository) {
	scheduler := tasks.NewScheduler(engine, monitor)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(courseRepo, assignmentRepo, runRepo, scheduler)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Shutdown signal received", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
