package capture

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/logging"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// FetcherConfig configures page fetching.
type FetcherConfig struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// DefaultFetcherConfig returns sensible page fetch limits.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:   15 * time.Second,
		MaxBytes:  utils.MaxHTMLSize,
		UserAgent: "FaultMaven-Sidebar/1.0",
	}
}

// Fetcher downloads pages for "Analyze Page".
type Fetcher struct {
	client   *resty.Client
	maxBytes int64
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewFetcher creates a page fetcher. logger and metrics may be nil.
func NewFetcher(cfg FetcherConfig, logger *logging.Logger, metrics *monitoring.Metrics) *Fetcher {
	defaults := DefaultFetcherConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaults.MaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}

	pooled := retryablehttp.NewClient()
	pooled.Logger = nil

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetTransport(pooled.HTTPClient.Transport)

	return &Fetcher{
		client:   client,
		maxBytes: cfg.MaxBytes,
		logger:   logging.OrNop(logger).Component("capture"),
		metrics:  metrics,
	}
}

// Fetch downloads pageURL and extracts its text.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*PageContent, error) {
	page, err := f.fetch(ctx, pageURL)
	if err != nil {
		f.metrics.RecordCapture("page", "error")
		f.logger.Warn("page capture failed", zap.String("url", pageURL), zap.Error(err))
		return nil, err
	}

	f.metrics.RecordCapture("page", "success")
	f.logger.Info("page captured",
		zap.String("url", pageURL),
		zap.String("title", page.Title),
		zap.Int("chars", len(page.Text)),
	)
	return page, nil
}

func (f *Fetcher) fetch(ctx context.Context, pageURL string) (*PageContent, error) {
	if err := utils.ValidateURL(pageURL); err != nil {
		return nil, err
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode())
	}

	// Honour a declared charset; FromHTML falls back to detection otherwise.
	var reader io.Reader = io.LimitReader(body, f.maxBytes+1)
	if contentType := resp.Header().Get("Content-Type"); contentType != "" {
		if decoded, err := charset.NewReader(reader, contentType); err == nil {
			reader = decoded
		}
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}
	if int64(len(raw)) > f.maxBytes {
		return nil, fmt.Errorf("page %s exceeds maximum %d bytes", pageURL, f.maxBytes)
	}

	if mtype := mimetype.Detect(raw); !mtype.Is("text/html") && !IsText(mtype) {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, mtype.String())
	}

	return FromHTML(pageURL, raw)
}
