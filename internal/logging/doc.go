// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output on stderr
//
// Every subsystem logs through a child logger carrying a "component" field,
// so sidebar, backend and capture lines can be told apart.
//
// Example Usage:
//
//	logger := logging.NewDefault().Component("backend")
//	logger.Info("query sent", zap.Int("length", len(q)))
//	logger.Error("backend unreachable", zap.Error(err))
package logging
