package formatter

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// LineBreak is the marker every newline is turned into. Later stages treat it as the line boundary.
const LineBreak = "<br>"

// Formatter renders backend responses, optionally sanitizing the result.
type Formatter struct {
	sanitizer *bluemonday.Policy
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithSanitizer runs the rendered HTML through the given policy.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(f *Formatter) {
		f.sanitizer = policy
	}
}

// WithDefaultSanitizer sanitizes with Policy().
func WithDefaultSanitizer() Option {
	return WithSanitizer(Policy())
}

// New creates a Formatter. Without options it behaves exactly like Format.
func New(opts ...Option) *Formatter {
	f := &Formatter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Sanitizing reports whether output is sanitized.
func (f *Formatter) Sanitizing() bool {
	return f.sanitizer != nil
}

// Format renders raw into HTML.
func (f *Formatter) Format(raw string) string {
	out := Format(raw)
	if f.sanitizer == nil || out == "" {
		return out
	}
	return f.sanitizer.Sanitize(out)
}

// Format renders raw into HTML without sanitizing. It never fails; empty input yields empty output.
func Format(raw string) string {
	if raw == "" {
		return ""
	}

	text := strings.ReplaceAll(raw, "\n", LineBreak)
	text = formatCodeBlocks(text)

	doc := splitLines(text)
	doc = formatLists(doc)
	doc = formatTables(doc)
	doc = highlightSections(doc)

	return doc.String()
}

// Policy returns a bluemonday policy that admits the markup Format emits and strips anything else,
// including scripts and event handlers smuggled in through backend text.
func Policy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("br", "div", "pre", "code", "ul", "ol", "li",
		"table", "thead", "tbody", "tr", "th", "td",
		"h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("class").Matching(classPattern).OnElements("div", "pre", "code",
		"h1", "h2", "h3", "h4", "h5", "h6")
	return p
}

var classPattern = regexp.MustCompile(`^(code-block|code-header|table-container|warning-block|error-block|solution-block|response-heading|language-[\w-]+)$`)
