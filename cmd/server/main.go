package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"popcheck/internal/audit"
	"popcheck/internal/geofence"
	"popcheck/internal/platform/config"
	"popcheck/internal/platform/httpserver"
	"popcheck/internal/platform/logger"
	platformmetrics "popcheck/internal/platform/metrics"
	platformredis "popcheck/internal/platform/redis"
	"popcheck/internal/ratelimit"
	"popcheck/internal/ratelimit/gate"
	ratelimitmetrics "popcheck/internal/ratelimit/metrics"
	ratelimitmw "popcheck/internal/ratelimit/middleware"
	rlmodels "popcheck/internal/ratelimit/models"
	rlmemory "popcheck/internal/ratelimit/store/memory"
	"popcheck/internal/ratelimit/store/redisstore"
	"popcheck/internal/receipt"
	"popcheck/internal/totp/replay"
	httptransport "popcheck/internal/transport/http"
	"popcheck/internal/verification"
	verificationmetrics "popcheck/internal/verification/metrics"
	"popcheck/pkg/platform/circuit"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(os.Getenv("POPCHECK_LOG_LEVEL"))

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable, continuing on in-memory stores", "error", err)
	}

	// Rate limiting: redis-backed when available, in-memory otherwise.
	var limiterStore ratelimit.Store = rlmemory.New()
	if redisClient != nil {
		limiterStore = redisstore.New(redisClient.Client)
	}
	rlMetrics := ratelimitmetrics.New()
	limiter, err := ratelimit.New(limiterStore,
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(rlMetrics),
	)
	if err != nil {
		log.Error("rate limiter init failed", "error", err)
		os.Exit(1)
	}
	rlMiddleware := ratelimitmw.New(limiter, log,
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled))

	// Replay guard: redis primary with in-memory failover when configured.
	var guard replay.Guard = replay.NewMemory()
	if redisClient != nil {
		guard = replay.NewFailover(
			replay.NewRedis(redisClient.Client),
			replay.NewMemory(),
			log,
		)
	}

	// Receipt OCR with its resilience stack.
	breakers := circuit.NewRegistry(
		circuit.WithFailureThreshold(cfg.Breaker.FailureThreshold),
		circuit.WithRecoveryTimeout(cfg.Breaker.RecoveryTimeout),
		circuit.WithRequestTimeout(cfg.Breaker.RequestTimeout),
	)
	vMetrics := verificationmetrics.New()
	ocrGate := gate.New(int64(cfg.OCR.MaxConcurrent), gate.WithMetrics(rlMetrics))
	receiptScorer := receipt.New(
		receipt.NewClient(cfg.OCR.BaseURL, cfg.OCR.Token),
		breakers.Get(receipt.BreakerName),
		receipt.WithGate(ocrGate),
		receipt.WithLogger(log),
		receipt.WithMetrics(vMetrics),
	)

	// Audit trail: fire-and-forget publisher drained by a background worker.
	auditPublisher := audit.NewPublisher(log)
	auditWorker := audit.NewWorker(audit.NewMemoryStore(), auditPublisher.Inbox(), log)
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	go func() { _ = auditWorker.Run(auditCtx) }()

	// Verification orchestrator.
	secrets := verification.NewDerivedSecrets([]byte(cfg.TOTP.MasterSecret))
	qrScorer := verification.NewQRScorer(secrets, guard,
		verification.WithQRLogger(log),
		verification.WithQRMetrics(vMetrics),
	)
	verifier := verification.New(geofence.New(), qrScorer, receiptScorer,
		verification.WithLogger(log),
		verification.WithMetrics(vMetrics),
		verification.WithAudit(auditPublisher),
	)

	var health httptransport.HealthChecker
	if redisClient != nil {
		health = redisClient
	}
	handler := httptransport.NewHandler(verifier, health, log)
	router := httptransport.NewRouter(handler, rlMiddleware, rlmodels.Preset(cfg.RateLimit.Preset), platformmetrics.NewHTTP())

	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting popcheck", "addr", cfg.Server.Addr, "redis", redisClient != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
