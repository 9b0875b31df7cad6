// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, the
// uniform error envelope, parameter parsing and the request-scoped
// middleware every route shares.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, resource)
//
// Error responses render any error through the envelope:
//
//	{"error":{"code":"INSUFFICIENT_ROLE","message":"...","request_id":"...","timestamp":"..."}}
//
//	httputil.WriteAPIError(w, r, err)
//
// Errors that are not *errx.Error become INTERNAL with a generic message.
// The underlying cause is only exposed when DevModeMiddleware(true) is in
// the chain.
//
// # Request Parsing
//
//	var req IssueRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
//	id, ok := httputil.ParsePathStringOrError(w, r, "id")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.DevModeMiddleware(cfg.DevMode),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Authentication and authorization middleware
//   - pkg/errx: Error codes rendered by WriteAPIError
package httputil
