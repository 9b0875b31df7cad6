// Package observability provides logging, Prometheus metrics, health checks,
// OpenTelemetry setup and graceful shutdown for gatekeeper.
//
// # Logging
//
//	log := observability.NewLogger("info", os.Stdout)
//	observability.FromContext(r.Context()).WithField("code_id", id).Info("Registration code revoked")
//
// FromContext prefers the entry installed by httputil.LoggingMiddleware and
// adds the authenticated user id and the active trace.
//
// # Metrics
//
// Metrics implements the outcome recorders of the auth, regcodes and agents
// packages, so a single instance is passed to all three:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	verifier := auth.NewTokenVerifier(cfg, log, auth.WithRecorder(metrics))
//
// # Health
//
//	checker := observability.NewHealthChecker(db, redisClient, verifier)
//	observability.RegisterHealthRoutes(router, checker)
//
// The database and the token verifier are required for readiness. Redis only
// backs distributed rate limiting and reports degraded.
package observability
