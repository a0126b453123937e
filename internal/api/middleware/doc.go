// Package middleware provides the gin middleware stack of the sidebar API.
//
// Middleware stack includes:
//   - RequestID: X-Request-ID propagation (generated with uuid when absent)
//   - Logger: one zap line per request
//   - CORS: gin-contrib/cors, browser extension origins allowed
//   - RateLimit: Per-IP token bucket with idle client cleanup
//
// Example Usage:
//
//	router.Use(middleware.RequestID(), middleware.Logger(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
