// Package main is the entry point for the FaultMaven sidebar server.
//
// The server renders the sidebar page, relays queries and data uploads to
// the FaultMaven backend, and pushes conversation updates to the page over
// a WebSocket stream.
//
//	Sidebar page ⇄ sidebar server ⇄ FaultMaven backend (/query, /data)
//
// Configuration:
//   - Environment variables (PORT, HOST, BACKEND_URL, FORMAT_SANITIZE, ...)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Against a local backend
//	./server -backend http://127.0.0.1:8000
//
//	# Development mode (console logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
