package conversation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/backend"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/capture"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/logging"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/shared/id"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/utils"
	"go.uber.org/zap"
)

// Controller drives one sidebar conversation.
type Controller struct {
	backend   Backend
	formatter Formatter
	fetcher   PageFetcher
	surface   Surface
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	now       func() time.Time

	mu      sync.Mutex
	pending bool
	history []Item
	page    *capture.PageContent
	source  backend.DataSource
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics records formatter runs and conversation items.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// NewController creates a controller. fetcher, surface and logger may be nil.
func NewController(b Backend, f Formatter, fetcher PageFetcher, surface Surface, logger *logging.Logger, opts ...Option) *Controller {
	if surface == nil {
		surface = nopSurface{}
	}
	c := &Controller{
		backend:   b,
		formatter: f,
		fetcher:   fetcher,
		surface:   surface,
		logger:    logging.OrNop(logger).Component("conversation"),
		now:       time.Now,
		source:    backend.SourceText,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask sends a query and appends the formatted answer.
func (c *Controller) Ask(ctx context.Context, query string) (*Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		c.fail(MsgEmptyQuery)
		return nil, ErrEmptyQuery
	}
	if _, err := utils.ValidateQuery(query); err != nil {
		c.fail(err.Error())
		return nil, err
	}

	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	c.logger.Info("query sent", zap.Int("chars", len(query)))

	result, err := c.backend.Query(ctx, query)
	if err != nil {
		if errors.Is(err, backend.ErrUnexpectedResponse) {
			c.fail(MsgUnexpectedFormat)
		} else {
			c.fail(fmt.Sprintf(MsgRequestFailedFmt, err.Error()))
		}
		c.logger.Error("query failed", zap.Error(err))
		return nil, err
	}

	item := c.appendItem(Item{
		Kind:     KindResponse,
		Query:    query,
		Response: c.format(result.Response),
	})
	if result.Message != "" {
		c.appendItem(Item{Kind: KindInfo, Response: c.format(result.Message), IsError: true})
	}
	return &item, nil
}

// Submit uploads data from the given source. Page data comes from the last captured page.
func (c *Controller) Submit(ctx context.Context, source backend.DataSource, text string) (*Item, error) {
	var data string
	switch source {
	case backend.SourceText, backend.SourceFile:
		data = strings.TrimSpace(text)
	case backend.SourcePage:
		c.mu.Lock()
		page := c.page
		c.mu.Unlock()
		if page == nil {
			c.fail(MsgNoPageContent)
			return nil, ErrNoPageContent
		}
		data = page.Text
	default:
		c.fail(MsgUnknownSource)
		return nil, fmt.Errorf("%w: %q", backend.ErrUnknownSource, source)
	}

	if data == "" {
		c.fail(MsgEmptyData)
		return nil, ErrEmptyData
	}
	if _, err := utils.ValidateData(data); err != nil {
		c.fail(err.Error())
		return nil, err
	}

	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	result, err := c.backend.SubmitData(ctx, data, source)

	// The captured page is spent once submitted, whatever the outcome.
	c.mu.Lock()
	c.page = nil
	c.mu.Unlock()

	if err != nil {
		if errors.Is(err, backend.ErrUnexpectedDataResponse) {
			c.fail(MsgUploadBadFormat)
		} else {
			c.fail(fmt.Sprintf(MsgRequestFailedFmt, err.Error()))
		}
		c.logger.Error("data submission failed", zap.String("source", string(source)), zap.Error(err))
		return nil, err
	}

	item := c.appendItem(Item{
		Kind:     KindData,
		Response: html.EscapeString(MsgUploadPrefix + result.Summary),
	})
	if result.Message != "" {
		c.appendItem(Item{Kind: KindInfo, Response: c.format(result.Message), IsError: true})
	}
	return &item, nil
}

// AnalyzePage fetches pageURL and keeps its text for a later page submission.
func (c *Controller) AnalyzePage(ctx context.Context, pageURL string) (*capture.PageContent, error) {
	c.surface.SetStatus(Status{Kind: StatusLoading, Text: MsgAnalyzing})

	if c.fetcher == nil {
		c.surface.SetStatus(Status{Kind: StatusError, Text: "⚠️ " + MsgAnalyzeFailed})
		return nil, ErrNoFetcher
	}

	page, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		c.surface.SetStatus(Status{Kind: StatusError, Text: "⚠️ " + err.Error()})
		return nil, err
	}

	if err := c.UsePage(page); err != nil {
		return nil, err
	}
	return page, nil
}

// UsePage stores content captured elsewhere, such as HTML posted by the browser.
func (c *Controller) UsePage(page *capture.PageContent) error {
	if page == nil || strings.TrimSpace(page.Text) == "" {
		c.surface.SetStatus(Status{Kind: StatusError, Text: "⚠️ " + capture.ErrEmptyPage.Error()})
		return capture.ErrEmptyPage
	}

	c.mu.Lock()
	c.page = page
	c.mu.Unlock()

	c.surface.SetStatus(Status{Kind: StatusSuccess, Text: fmt.Sprintf("✅ Page selected (%s)", page.URL)})
	c.logger.Info("page selected", zap.String("url", page.URL), zap.Int("chars", len(page.Text)))
	return nil
}

// SelectSource switches the data source. Leaving "page" clears the status line.
func (c *Controller) SelectSource(source backend.DataSource) error {
	if _, err := backend.ParseDataSource(string(source)); err != nil {
		return err
	}

	c.mu.Lock()
	c.source = source
	c.mu.Unlock()

	if source != backend.SourcePage {
		c.surface.SetStatus(Status{Kind: StatusIdle})
	}
	return nil
}

// Source returns the selected data source.
func (c *Controller) Source() backend.DataSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// NewConversation drops the backend session, the history and any captured page.
func (c *Controller) NewConversation() {
	c.backend.ResetSession()

	c.mu.Lock()
	c.history = nil
	c.page = nil
	c.mu.Unlock()

	c.surface.Clear()
	c.logger.Info("new conversation")
}

// History returns a copy of the conversation so far.
func (c *Controller) History() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.history))
	copy(out, c.history)
	return out
}

// Page returns the captured page, or nil.
func (c *Controller) Page() *capture.PageContent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Pending reports whether a request is in flight.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// SessionID returns the backend session token.
func (c *Controller) SessionID() string {
	return c.backend.SessionID()
}

func (c *Controller) begin() error {
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.pending = true
	c.mu.Unlock()

	c.surface.SetLoading(true)
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()

	c.surface.SetLoading(false)
}

func (c *Controller) format(raw string) string {
	start := time.Now()
	out := c.formatter.Format(raw)
	c.metrics.RecordFormat(time.Since(start), len(raw))
	return out
}

// fail appends an error item. message is plain text.
func (c *Controller) fail(message string) {
	c.appendItem(Item{
		Kind:     KindError,
		Response: "⚠️ " + html.EscapeString(message),
		IsError:  true,
	})
}

func (c *Controller) appendItem(item Item) Item {
	item.ID = id.NewItemID().String()
	item.CreatedAt = c.now()

	c.mu.Lock()
	c.history = append(c.history, item)
	c.mu.Unlock()

	// Outside the lock: a slow surface must not hold up History or Pending.
	c.surface.Append(item)

	c.metrics.RecordItem(string(item.Kind))
	return item
}
