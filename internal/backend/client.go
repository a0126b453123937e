package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/logging"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client talks to the FaultMaven backend and carries its session token between calls.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu        sync.RWMutex
	sessionID string
}

// NewClient creates a backend client. metrics may be nil.
func NewClient(cfg Config, logger *logging.Logger, metrics *monitoring.Metrics) *Client {
	// Pooled transport from the retryable client; retries themselves are resty's, off by default.
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	if cfg.UserAgent != "" {
		restyClient.SetHeader("User-Agent", cfg.UserAgent)
	}
	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	c := &Client{
		resty:   restyClient,
		limiter: limiter,
		logger:  logging.OrNop(logger).Component("backend"),
		metrics: metrics,
	}
	c.breaker = resilience.New(resilience.Settings{
		Failures:  cfg.BreakerFailures,
		Cooldown:  cfg.BreakerCooldown,
		IsFailure: isBackendFailure,
		OnStateChange: func(from, to resilience.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			c.metrics.SetBreakerState(int(to))
		},
	})
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.resty.BaseURL
}

// BreakerState reports whether backend calls are currently being short-circuited.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// SessionID returns the current session token, or "" before the backend has issued one.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// ResetSession forgets the session token; the next request starts a new backend session.
func (c *Client) ResetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID != "" {
		c.logger.Info("session reset", zap.String("session_id", c.sessionID))
	}
	c.sessionID = ""
}

// Query sends a troubleshooting question.
func (c *Client) Query(ctx context.Context, query string) (*QueryResult, error) {
	var out QueryResult
	if err := c.post(ctx, "/query", map[string]string{"query": query}, &out); err != nil {
		return nil, err
	}
	if out.Response == "" {
		return nil, ErrUnexpectedResponse
	}
	return &out, nil
}

// SubmitData uploads context (pasted text, file contents or page text) for the session.
func (c *Client) SubmitData(ctx context.Context, text string, source DataSource) (*DataResult, error) {
	var out DataResult
	if err := c.post(ctx, "/data", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	if out.Summary == "" {
		return nil, ErrUnexpectedDataResponse
	}

	c.logger.Debug("data submitted",
		zap.String("source", string(source)),
		zap.Int("bytes", len(text)),
	)
	return &out, nil
}

// Health checks that the backend answers HTTP at all.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.resty.R().SetContext(ctx).Get("/")
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	if resp.StatusCode() >= 500 {
		return &HTTPError{StatusCode: resp.StatusCode(), Message: "backend unhealthy"}
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	err := c.breaker.Do(func() error {
		return c.send(ctx, endpoint, body, out)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.metrics.RecordBackendCall(endpoint, "circuit_open", 0)
		c.logger.Warn("backend request short-circuited", zap.String("endpoint", endpoint))
	}
	return err
}

func (c *Client) send(ctx context.Context, endpoint string, body, out interface{}) error {
	timer := monitoring.NewTimer(c.metrics, endpoint)

	req := c.resty.R().SetContext(ctx).SetBody(body)
	if sid := c.SessionID(); sid != "" {
		req.SetHeader(SessionHeader, sid)
	}

	resp, err := req.Post(endpoint)
	if err != nil {
		duration := timer.Stop("transport_error")
		c.logger.Error("backend request failed",
			zap.String("endpoint", endpoint),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}

	// The backend may issue or rotate the session on any response, failed ones included.
	c.captureSession(resp.Header().Get(SessionHeader))

	if !resp.IsSuccess() {
		httpErr := newHTTPError(resp.StatusCode(), resp.Body())
		duration := timer.Stop("http_error")
		c.logger.Warn("backend returned error",
			zap.String("endpoint", endpoint),
			zap.Int("status", httpErr.StatusCode),
			zap.String("message", httpErr.Message),
			zap.Duration("duration", duration),
		)
		return httpErr
	}

	if err := sonic.Unmarshal(resp.Body(), out); err != nil {
		timer.Stop("decode_error")
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	duration := timer.Stop("success")
	c.logger.Debug("backend request completed",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", duration),
	)
	return nil
}

func (c *Client) captureSession(sid string) {
	if sid == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if sid != c.sessionID {
		c.logger.Info("session updated", zap.String("session_id", sid))
	}
	c.sessionID = sid
}

// isBackendFailure counts outages against the breaker. Rejected input (4xx) and
// callers giving up are not the backend's fault.
func isBackendFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if httpErr, ok := IsHTTPError(err); ok {
		return httpErr.StatusCode >= 500
	}
	return true
}

// IsHTTPError reports whether err is a backend HTTP error and returns it.
func IsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
