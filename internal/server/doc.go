// Package server wires the sidebar together and serves it over HTTP.
//
// This package orchestrates all components:
//   - Backend client (resty) and page fetcher
//   - Response formatter, sanitizing when configured
//   - Conversation controller with the WebSocket hub as its surface
//   - HTTP routing with Gin framework, gzip via klauspost/compress
//   - Middleware stack (recovery, request ID, logging, metrics, CORS, rate limiting)
//
// Routes:
//   - GET  /                      sidebar page
//   - GET  /health                backend reachability and session state
//   - GET  /metrics               Prometheus metrics
//   - GET  /stream                conversation event stream (WebSocket)
//   - POST /api/query             {"query": "..."}
//   - POST /api/data              {"source": "text|file|page", "text": "..."}
//   - POST /api/upload            multipart "file" -> {"name", "mime", "text"}
//   - POST /api/page              {"url": "..."} or {"url": "...", "html": "..."}
//   - POST /api/source            {"source": "..."}
//   - POST /api/conversation/new
//   - GET  /api/history
//   - POST /api/format            {"text": "..."} -> {"html": "..."}
//
// Errors are JSON {"error": "..."}: 400 for invalid input, 409 while another
// request is in flight, 502 when the backend or a fetched page fails.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg, logger)
//	go srv.Run()
//	defer srv.Close(ctx)
package server
