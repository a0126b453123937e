package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/backend"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/capture"
)

// User-facing messages.
const (
	MsgEmptyQuery       = "Please enter a query."
	MsgUnexpectedFormat = "Unexpected response format."
	MsgNoPageContent    = "No page content available. Please use 'Analyze Page' button."
	MsgEmptyData        = "Please provide data before submitting."
	MsgUnknownSource    = "Unexpected data source."
	MsgUploadBadFormat  = "Data upload failed. Unexpected response format."
	MsgAnalyzing        = "Analyzing page..."
	MsgAnalyzeFailed    = "Error analyzing page."
	MsgUploadPrefix     = "Data Upload Success: "
	MsgRequestFailedFmt = "Error processing request: %s. Please try again."
)

var (
	ErrEmptyQuery    = errors.New("empty query")
	ErrEmptyData     = errors.New("no data to submit")
	ErrNoPageContent = errors.New("no page content captured")
	ErrBusy          = errors.New("a request is already in progress")
	ErrNoFetcher     = errors.New("page fetching is not configured")
)

// ItemKind classifies conversation entries.
type ItemKind string

const (
	KindResponse ItemKind = "response" // answer to a query
	KindData     ItemKind = "data"     // upload acknowledgement
	KindInfo     ItemKind = "info"     // extra server message
	KindError    ItemKind = "error"
)

// Item is one conversation entry. Response is HTML.
type Item struct {
	ID        string    `json:"id"`
	Kind      ItemKind  `json:"kind"`
	Query     string    `json:"query,omitempty"`
	Response  string    `json:"response,omitempty"`
	IsError   bool      `json:"is_error"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusKind is the state of the capture status line.
type StatusKind string

const (
	StatusIdle    StatusKind = "idle"
	StatusLoading StatusKind = "loading"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status is the capture status line shown under the data source picker.
type Status struct {
	Kind StatusKind `json:"kind"`
	Text string     `json:"text,omitempty"`
}

// Surface displays conversation state.
type Surface interface {
	Append(item Item)
	Clear()
	SetLoading(loading bool)
	SetStatus(status Status)
}

// Backend is the subset of the backend client the controller needs.
type Backend interface {
	Query(ctx context.Context, query string) (*backend.QueryResult, error)
	SubmitData(ctx context.Context, text string, source backend.DataSource) (*backend.DataResult, error)
	ResetSession()
	SessionID() string
}

// PageFetcher captures a page by URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*capture.PageContent, error)
}

// Formatter renders backend text to HTML.
type Formatter interface {
	Format(raw string) string
}

type nopSurface struct{}

func (nopSurface) Append(Item)      {}
func (nopSurface) Clear()           {}
func (nopSurface) SetLoading(bool)  {}
func (nopSurface) SetStatus(Status) {}
