// Package utils provides input validation shared by the sidebar API and its clients.
//
// Validation:
//   - Query and data payloads: trimmed, non-empty, UTF-8, size-limited
//   - URLs: absolute http/https only
//
// Example Usage:
//
//	q, err := utils.ValidateQuery(req.Query)
//	if err := utils.ValidateURL(pageURL); err != nil { ... }
package utils
