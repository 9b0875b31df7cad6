// Package errx defines the error taxonomy shared by the authentication,
// authorization and tenant-resolution layers.
//
// Every terminal failure carries a stable Code, a safe human message, a
// suggested HTTP status and optional Details. Wrapped causes are kept for
// logging but never rendered to callers unless development mode is on.
//
// Matching is by code:
//
//	if errors.Is(err, errx.ErrExpiredToken) { ... }
//	switch errx.CodeOf(err) { ... }
package errx
