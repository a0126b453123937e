package backend

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// SessionHeader carries the backend's session correlation token in both directions.
const SessionHeader = "X-Session-ID"

var (
	ErrUnexpectedResponse     = errors.New("unexpected response format")
	ErrUnexpectedDataResponse = errors.New("data upload failed: unexpected response format")
	ErrUnknownSource          = errors.New("unexpected data source")
)

// QueryResult is the backend's answer to POST /query.
type QueryResult struct {
	Response string `json:"response"`
	Message  string `json:"message,omitempty"`
}

// DataResult is the backend's answer to POST /data.
type DataResult struct {
	Summary string `json:"summary"`
	Message string `json:"message,omitempty"`
}

// DataSource names where submitted data came from.
type DataSource string

const (
	SourceText DataSource = "text"
	SourceFile DataSource = "file"
	SourcePage DataSource = "page"
)

// ParseDataSource validates a data source name.
func ParseDataSource(s string) (DataSource, error) {
	switch ds := DataSource(strings.ToLower(strings.TrimSpace(s))); ds {
	case SourceText, SourceFile, SourcePage:
		return ds, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// HTTPError is returned for non-2xx backend responses.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error! Status: %d - %s", e.StatusCode, e.Message)
}

// newHTTPError extracts a message from a JSON error body. FastAPI-style
// {"detail": "..."} bodies are accepted as well as {"message": "..."}.
func newHTTPError(status int, body []byte) *HTTPError {
	var payload struct {
		Message string      `json:"message"`
		Detail  interface{} `json:"detail"`
	}

	msg := "Unknown error"
	if err := sonic.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			msg = payload.Message
		} else if detail, ok := payload.Detail.(string); ok && detail != "" {
			msg = detail
		}
	}

	return &HTTPError{StatusCode: status, Message: msg}
}

// Config configures the backend client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RetryCount        int
	RequestsPerSecond float64 // <= 0 means unlimited
	UserAgent         string

	// Consecutive backend failures that open the circuit, and how long it stays open.
	// Zero values use the resilience defaults.
	BreakerFailures int
	BreakerCooldown time.Duration
}

// DefaultConfig matches the backend address the sidebar has always used.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://127.0.0.1:8000",
		Timeout:         30 * time.Second,
		UserAgent:       "FaultMaven-Sidebar/1.0",
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}
