// Package backend is the HTTP client for the FaultMaven troubleshooting backend.
//
// Endpoints:
//   - POST /query {"query": "..."}  -> {"response": "...", "message": "..."}
//   - POST /data  {"text": "..."}   -> {"summary": "...", "message": "..."}
//
// The backend correlates requests through the X-Session-ID header: whatever it
// returns is stored and sent back on the next request until ResetSession.
//
// Built on resty (over a retryablehttp pooled transport), sonic for JSON and
// x/time/rate for an optional client-side request budget. Each request is sent
// once unless Config.RetryCount says otherwise.
//
// Queries and uploads pass through a circuit breaker. After repeated outages
// they fail with resilience.ErrCircuitOpen until a probe succeeds; 4xx answers
// never open it. Health always reaches the network.
package backend
