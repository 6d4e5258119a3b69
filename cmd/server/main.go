package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"speakwell/internal/assessment"
	"speakwell/internal/config"
	"speakwell/internal/database"
	"speakwell/internal/dictionary"
	"speakwell/internal/handlers"
	"speakwell/internal/observe"
	"speakwell/internal/progress"
	"speakwell/internal/repository"
	"speakwell/internal/security"
	"speakwell/internal/service"
)

var version = "dev"

const (
	stepDatabase   = "Database connection"
	stepMigrations = "Running migrations"
	stepServices   = "Initializing services"
	stepSeed       = "Seeding word databases"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startup := handlers.NewStartup(stepDatabase, stepMigrations, stepServices, stepSeed)

	shutdownMetrics, err := observe.InitProvider(ctx, cfg.AppName, version)
	if err != nil {
		return fmt.Errorf("failed to init metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slog.Warn("metrics shutdown", "error", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// Initialize database with config (supports sqlite, postgres, mysql)
	startup.SetCurrentStep(stepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	slog.Info("database connection established", "type", cfg.DatabaseType)
	startup.CompleteStep(stepDatabase)

	startup.SetCurrentStep(stepMigrations)
	if err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	startup.CompleteStep(stepMigrations)

	startup.SetCurrentStep(stepServices)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	recordingRepo := repository.NewRecordingRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	wordRepo := repository.NewWordRepository(db)

	// Initialize services
	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		slog.Warn("email disabled", "error", err)
		emailService = nil
	}

	cache, closeCache, err := newDictionaryCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	tracker := progress.NewTracker()
	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.TokenDuration)
	authService := service.NewAuthService(userRepo, tokens, emailService)
	submissionService := service.NewSubmissionService(db, assessment.New(cfg),
		service.NewAudioStore(cfg.UploadDir, cfg.UploadMaxSize), tracker, metrics)
	studentService := service.NewStudentService(recordingRepo, progressRepo, assignmentRepo, tracker)
	teacherService := service.NewTeacherService(recordingRepo, userRepo, classRepo, emailService, metrics)
	assignmentService := service.NewAssignmentService(db, assignmentRepo, userRepo, wordRepo)
	wordService := service.NewWordService(dictionary.NewClient(cfg.DictionaryAPIURL, cache), wordRepo, metrics)
	startup.CompleteStep(stepServices)

	startup.SetCurrentStep(stepSeed)
	if n, err := service.NewWordSeeder(db).SeedFile(ctx, cfg.SeedFile); err != nil {
		slog.Warn("failed to seed word databases", "error", err)
	} else if n > 0 {
		slog.Info("seeded word databases", "created", n)
	}
	startup.CompleteStep(stepSeed)

	loginLimiter := security.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	defer loginLimiter.Close()

	// Setup routes
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, handlers.NewMiddleware(authService, loginLimiter), handlers.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Student:     handlers.NewStudentHandler(submissionService, studentService, cfg.UploadMaxSize),
		Teacher:     handlers.NewTeacherHandler(teacherService),
		Assignments: handlers.NewAssignmentHandler(assignmentService),
		Words:       handlers.NewWordHandler(wordService),
		Startup:     startup,
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := observe.Middleware(metrics)(handlers.CORS(cfg.CORSOrigins)(mux))

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	startup.MarkReady()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr, "assessment", assessmentMode(cfg))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// newDictionaryCache uses Redis when REDIS_URL is set and an in-process
// cache otherwise
func newDictionaryCache(ctx context.Context, cfg *config.Config) (dictionary.Cache, func(), error) {
	if cfg.RedisURL == "" {
		return dictionary.NewMemoryCache(cfg.DictionaryCacheTTL, cfg.DictionaryCacheMax), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, using in-memory dictionary cache", "error", err)
		client.Close()
		return dictionary.NewMemoryCache(cfg.DictionaryCacheTTL, cfg.DictionaryCacheMax), func() {}, nil
	}
	slog.Info("dictionary cache using redis", "addr", opts.Addr)
	return dictionary.NewRedisCache(client, cfg.DictionaryCacheTTL), func() { client.Close() }, nil
}

func assessmentMode(cfg *config.Config) string {
	if cfg.AssessmentConfigured() {
		return strings.ToLower("azure:" + cfg.AzureRegion)
	}
	return "mock"
}
