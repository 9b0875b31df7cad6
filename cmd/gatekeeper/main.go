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

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/gatekeeper/pkg/agents"
	"github.com/platinummonkey/gatekeeper/pkg/api"
	"github.com/platinummonkey/gatekeeper/pkg/auth"
	"github.com/platinummonkey/gatekeeper/pkg/config"
	"github.com/platinummonkey/gatekeeper/pkg/middleware"
	"github.com/platinummonkey/gatekeeper/pkg/observability"
	"github.com/platinummonkey/gatekeeper/pkg/orgs"
	"github.com/platinummonkey/gatekeeper/pkg/regcodes"
	"github.com/platinummonkey/gatekeeper/pkg/storage"
)

const (
	initialRetryDelay = 2 * time.Second
	maxRetryDelay     = time.Minute
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Gatekeeper exited with error")
	}
	log.Info("Gatekeeper stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	shutdown := observability.NewShutdownManager(log, cfg.Server.ShutdownTimeout)

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	if providers != nil {
		shutdown.RegisterShutdownFunc("otel", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, log)
		})
	}

	db, err := storage.OpenPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	shutdown.RegisterShutdownFunc("postgres", func(context.Context) error { return db.Close() })
	log.Info("Connected to PostgreSQL")

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = storage.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			if cfg.RateLimit.Enabled && cfg.RateLimit.Backend == config.RateLimitBackendRedis {
				return err
			}
			log.WithError(err).Warn("Redis unavailable, continuing without it")
			redisClient = nil
		} else {
			client := redisClient
			shutdown.RegisterShutdownFunc("redis", func(context.Context) error { return client.Close() })
			log.Info("Connected to Redis")
		}
	}

	metrics := observability.NewMetrics(nil)
	if err := metrics.RegisterDBStats(db); err != nil {
		log.WithError(err).Warn("Failed to register database pool metrics")
	}

	directory := orgs.NewPostgresService(db)

	extractorCfg := extractorConfig(cfg.Auth, directory)
	var readiness observability.ReadinessProbe
	if cfg.Auth.ProviderConfigured() {
		verifier := auth.NewTokenVerifier(auth.VerifierConfig{
			IssuerURL:    cfg.Auth.IssuerURL,
			DiscoveryURL: cfg.Auth.DiscoveryURL,
			Audience:     cfg.Auth.ExpectedAudience(),
			Leeway:       cfg.Auth.Leeway,
		}, log, auth.WithRecorder(metrics))

		initCtx, cancel := context.WithTimeout(ctx, cfg.Auth.InitTimeout)
		err := verifier.Initialize(initCtx)
		cancel()
		if err != nil {
			// Readiness stays false and requests fail with NOT_INITIALIZED
			// until a later Initialize succeeds
			log.WithError(err).Error("Identity provider discovery failed")
			go retryInitialize(ctx, verifier, log)
		}

		extractorCfg.Verifier = verifier
		readiness = verifier
	} else if cfg.Auth.DevMode {
		log.Warn("No identity provider configured, using the development identity fallback")
	} else {
		log.Warn("No identity provider configured, only gateway identity headers are accepted")
	}
	identity := auth.BuildIdentityExtractor(extractorCfg, log)
	log.WithField("strategies", identity.Strategies()).Info("Identity extraction configured")

	hasher := auth.NewCredentialHasher()
	codes := regcodes.NewManager(regcodes.NewPostgresStore(db), log, regcodes.WithRecorder(metrics))
	agentStore := agents.NewPostgresStore(db)

	gateOpts := []agents.GateOption{agents.WithGateRecorder(metrics)}
	if cfg.Auth.AgentTouchTimeout > 0 {
		gateOpts = append(gateOpts, agents.WithTouchTimeout(cfg.Auth.AgentTouchTimeout))
	}

	rateLimit, err := buildRateLimit(ctx, cfg.RateLimit, redisClient, log)
	if err != nil {
		return err
	}

	server := api.NewServer(api.Dependencies{
		Log:           log,
		Identity:      identity,
		Resolver:      orgs.NewResolver(directory, log),
		Organizations: directory,
		Codes:         codes,
		Gate:          agents.NewGate(agentStore, hasher, log, gateOpts...),
		Provisioner:   agents.NewProvisioner(db, codes, hasher, log),
		Agents:        agentStore,
		Health:        observability.NewHealthChecker(db, redisClient, readiness),
		Metrics:       metrics,
		RateLimit:     rateLimit,
		DevMode:       cfg.Auth.DevMode,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	shutdown.RegisterServer(httpServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", httpServer.Addr).Info("Starting gatekeeper API server")
		return listen(httpServer)
	})

	if cfg.Observability.MetricsEnabled {
		metricsRouter := mux.NewRouter()
		observability.RegisterMetricsEndpoint(metricsRouter, metrics)
		metricsServer := &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.MetricsPort,
			Handler: metricsRouter,
		}
		shutdown.RegisterServer(metricsServer)
		g.Go(func() error {
			log.WithField("addr", metricsServer.Addr).Info("Starting metrics server")
			return listen(metricsServer)
		})
	}

	g.Go(func() error {
		return shutdown.WaitForShutdown(gctx)
	})

	return g.Wait()
}

// extractorConfig maps auth settings onto the identity chain; the verifier
// is attached separately once discovery is wired.
func extractorConfig(cfg config.AuthConfig, directory auth.UserDirectory) auth.ExtractorConfig {
	return auth.ExtractorConfig{
		TrustGatewayHeaders: cfg.TrustGatewayHeaders,
		DevMode:             cfg.DevMode,
		Directory:           directory,
	}
}

func listen(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s failed: %w", server.Addr, err)
	}
	return nil
}

// buildRateLimit selects the limiter backend, or nil when disabled
func buildRateLimit(ctx context.Context, cfg config.RateLimitConfig, redisClient *redis.Client, log *logrus.Logger) (func(http.Handler) http.Handler, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	policy := middleware.RateLimitPolicy{
		Anonymous:      &middleware.RateLimitConfig{RequestsPerWindow: cfg.AnonymousLimit, WindowDuration: cfg.Window},
		User:           &middleware.RateLimitConfig{RequestsPerWindow: cfg.UserLimit, WindowDuration: cfg.Window},
		Agent:          &middleware.RateLimitConfig{RequestsPerWindow: cfg.AgentLimit, WindowDuration: cfg.Window},
		TrustedProxies: proxies,
	}

	if cfg.Backend == config.RateLimitBackendRedis && redisClient != nil {
		limiter := middleware.NewDistributedRateLimitMiddleware(redisClient, policy, log)
		limiter.SetFallbackEnabled(cfg.FallbackOnFailure)
		log.WithField("fallback", cfg.FallbackOnFailure).Info("Using distributed rate limiting")
		return limiter.Handler, nil
	}

	limiter := middleware.NewRateLimitMiddleware(policy)
	limiter.StartCleanup(ctx)
	log.Info("Using in-memory rate limiting")
	return limiter.Handler, nil
}

// retryInitialize keeps attempting discovery until it succeeds or ctx ends
func retryInitialize(ctx context.Context, verifier *auth.TokenVerifier, log *logrus.Logger) {
	backoff := initialRetryDelay
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if err := verifier.Initialize(ctx); err != nil {
			log.WithError(err).WithField("retry_in", backoff.String()).Warn("Identity provider discovery retry failed")
			backoff = min(backoff*2, maxRetryDelay)
			continue
		}
		return
	}
}
