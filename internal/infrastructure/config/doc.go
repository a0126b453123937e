// Package config provides 12-factor configuration for the FaultMaven sidebar.
//
// Configuration is loaded from environment variables with defaults suited to a
// local install next to a FaultMaven backend on 127.0.0.1:8000. CLI flags in
// cmd/server override the environment.
//
// Configuration Sections:
//   - Server: sidebar listen address (PORT, HOST)
//   - Backend: FaultMaven URL, timeout, retries, client-side rate limit
//   - Capture: page fetch timeout and size cap
//   - Formatter: whether rendered HTML is sanitized
//   - Logging: level and output format
//   - RateLimit: per-IP limit on the sidebar API
//   - CORS: allowed origins (comma separated)
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		cfg = config.Default()
//	}
package config
