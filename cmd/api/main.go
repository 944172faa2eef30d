// Package main is the entry point for the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/takachain/takachain/internal/api"
	"github.com/takachain/takachain/internal/audit"
	"github.com/takachain/takachain/internal/auth"
	"github.com/takachain/takachain/internal/classify"
	"github.com/takachain/takachain/internal/config"
	"github.com/takachain/takachain/internal/db"
	"github.com/takachain/takachain/internal/health"
	"github.com/takachain/takachain/internal/image"
	"github.com/takachain/takachain/internal/jobs"
	"github.com/takachain/takachain/internal/ledger"
	"github.com/takachain/takachain/internal/middleware"
	"github.com/takachain/takachain/internal/tracing"
	"github.com/takachain/takachain/internal/upload"
	"github.com/takachain/takachain/internal/verify"
)

const serviceName = "takachain-api"

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Takachain API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	// Initialize logger
	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summary := []any{}
	for k, v := range cfg.LogSummary() {
		summary = append(summary, k, v)
	}
	logger.Info("configuration loaded", summary...)

	ctx := context.Background()

	// Database and ledger
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	store := ledger.NewPostgresStore(conn, logger)
	chain, err := ledger.New(ctx, store, image.Canonicalize, ledger.WithProject(cfg.ProjectName))
	if err != nil {
		logger.Error("failed to initialize ledger", "error", err)
		os.Exit(1)
	}

	// Verification pipeline and trash classifier
	verifier := verify.New()
	classifier := classify.NewHTTPClassifier(cfg.ClassifierURL, logger)

	// Object archive (optional; proofs are still chained without it)
	var archiver upload.Archiver
	if cfg.S3BucketName != "" {
		service, err := upload.NewService(upload.ServiceConfig{
			BucketName:      cfg.S3BucketName,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			MaxSizeMB:       cfg.MaxUploadSizeMB,
		})
		if err != nil {
			logger.Error("failed to initialize object storage", "error", err)
			os.Exit(1)
		}
		archiver = service
	} else {
		logger.Warn("object storage not configured, accepted proofs will not be archived")
	}

	currentSecret, previousSecret := cfg.GetJWTSecrets()
	jwtService := auth.NewJWTServiceWithRotation(currentSecret, previousSecret)
	if previousSecret != "" {
		logger.Info("jwt secret rotation in progress, accepting tokens signed with previous secret")
	}

	// Decision log: every terminal submission outcome, kept for moderation
	// review. Client IPs are coarsened once they age past retention.
	decisions := audit.NewPostgresRepository(conn)
	anonymizationJob := audit.NewAnonymizationJob(audit.AnonymizationJobConfig{
		Repository: decisions,
		Logger:     logger,
	})

	// Metrics
	metrics := middleware.NewMetrics()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}
	jobMetrics := jobs.NewMetrics()
	if err := jobMetrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register job metrics", "error", err)
		os.Exit(1)
	}

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			err := jobs.Track(context.Background(), jobMetrics, jobs.JobTypeIPAnonymization, func(ctx context.Context) error {
				_, err := anonymizationJob.Run(ctx)
				return err
			})
			if err != nil {
				logger.Error("decision log anonymization failed", "error", err)
			}
		}
	}()

	// Periodic integrity check of the whole chain. A digest mismatch here
	// means the store was modified outside Submit.
	go func() {
		ticker := time.NewTicker(6 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := jobs.Track(context.Background(), jobMetrics, jobs.JobTypeChainVerify, chain.Verify); err != nil {
				logger.Error("ledger chain verification failed", "error", err)
			}
		}
	}()

	// Rate limit store: Redis when configured, in-memory otherwise
	var rateLimitStore middleware.RateLimitStore
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient).
			WithMetrics(metrics).
			WithLogger(logger)
		logger.Info("rate limiting backed by redis", "addr", cfg.RedisAddr)
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				_ = jobs.Track(context.Background(), jobMetrics, jobs.JobTypeRateLimitSweep, func(ctx context.Context) error {
					memStore.Cleanup()
					return nil
				})
			}
		}()
		rateLimitStore = memStore
		logger.Info("rate limiting backed by in-memory store")
	}

	// Tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSampling,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Handlers
	healthConfig := api.HealthHandlersConfig{
		DBChecker:         health.NewDBChecker(conn),
		ClassifierChecker: health.NewClassifierChecker(cfg.ClassifierURL),
		MetricsEnabled:    true,
	}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	proofHandlers := api.NewProofHandlers(api.ProofHandlersConfig{
		Ledger:              chain,
		Verifier:            verifier,
		Classifier:          classifier,
		Archiver:            archiver,
		Sanitizer:           image.PrepareDisplay,
		Decisions:           decisions,
		ConfidenceThreshold: cfg.ClassifierThreshold,
		Metrics:             metrics,
	})

	ledgerHandlers := api.NewLedgerHandlers(chain)
	decisionHandlers := api.NewDecisionHandlers(decisions)

	// Submissions are authenticated, then rate limited per submitter.
	submitHandler := auth.RequireSubmitToken(jwtService)(
		middleware.RateLimiter(rateLimitStore, middleware.DefaultSubmitLimit(), middleware.SubmitterKeyFunc())(
			http.HandlerFunc(proofHandlers.SubmitProof),
		),
	)

	mux := newRouter(routerConfig{
		Health: healthHandlers,
		Ledger: ledgerHandlers,
		Proofs: submitHandler,
		// Decision log export is for operators, behind the same token auth.
		Decisions: auth.RequireSubmitToken(jwtService)(http.HandlerFunc(decisionHandlers.Export)),
		Metrics:   promhttp.Handler(),
	})

	// Middleware chain: RequestID -> Logging -> HTTPMetrics -> Tracing ->
	// CORS -> global rate limit -> routes
	var handler http.Handler = mux
	handler = middleware.RateLimiter(rateLimitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc())(handler)
	if cfg.CORSAllowedOrigins != "" {
		handler = middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: strings.Split(cfg.CORSAllowedOrigins, ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
			MaxAge:         300,
		})(handler)
	}
	if cfg.TracingEnabled {
		handler = middleware.Tracing(serviceName)(handler)
	}
	handler = middleware.HTTPMetrics(metrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)

	// pprof endpoints, development only
	if cfg.Env == "development" {
		handler = middleware.Profiling(middleware.ProfilingConfig{
			Enabled:     true,
			Environment: cfg.Env,
		})(handler)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "project", cfg.ProjectName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down tracer provider", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}

	logger.Info("server stopped")
}

// routerConfig collects the handlers the API router mounts. Proofs and
// Decisions arrive already wrapped with their auth and rate limit layers.
type routerConfig struct {
	Health    *api.HealthHandlers
	Ledger    *api.LedgerHandlers
	Proofs    http.Handler
	Decisions http.Handler
	Metrics   http.Handler
}

func newRouter(rc routerConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", rc.Health.Health)
	mux.HandleFunc("GET /ready", rc.Health.Ready)
	mux.Handle("GET /metrics", rc.Metrics)
	mux.HandleFunc("GET /projects/{name}/entries", rc.Ledger.ListEntries)
	mux.HandleFunc("GET /ledger/verify", rc.Ledger.VerifyChain)
	mux.Handle("POST /proofs", rc.Proofs)
	mux.Handle("GET /decisions/export", rc.Decisions)

	// Root endpoint: service info on exact root, structured 404 elsewhere
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"takachain-api","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})
	return mux
}
