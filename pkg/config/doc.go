// Package config provides application configuration management from environment variables.
//
// # Overview
//
// LoadConfig reads every setting from GATEKEEPER_* variables, applies
// defaults and validates the result.
//
// Server settings:
//
//	GATEKEEPER_HOST="0.0.0.0"
//	GATEKEEPER_PORT="8080"
//	GATEKEEPER_METRICS_PORT="9090"
//	GATEKEEPER_READ_TIMEOUT="15s"
//	GATEKEEPER_MAX_BODY_BYTES="1048576"
//
// Storage settings:
//
//	GATEKEEPER_DATABASE_URL="postgres://gatekeeper@db/gatekeeper?sslmode=disable"
//	GATEKEEPER_REDIS_URL="redis://redis:6379/0"
//
// Identity settings:
//
//	GATEKEEPER_OIDC_ISSUER_URL="https://id.example.com/realms/ops"
//	GATEKEEPER_OIDC_AUDIENCE="gatekeeper"
//	GATEKEEPER_TRUST_GATEWAY_HEADERS="true"
//	GATEKEEPER_DEV_MODE="false"
//
// Without an issuer or discovery URL the service only starts in dev mode or
// behind a trusted gateway.
//
// Rate limiting:
//
//	GATEKEEPER_RATE_LIMIT_BACKEND="redis"  # memory or redis
//	GATEKEEPER_RATE_LIMIT_WINDOW="1m"
//	GATEKEEPER_RATE_LIMIT_USER="1000"
//
// # Related Packages
//
//   - pkg/storage: connection settings consumers
//   - pkg/observability: logging and OpenTelemetry settings consumers
package config
