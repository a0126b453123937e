// Package formatter converts raw FaultMaven backend responses into HTML fragments.
//
// The transform is a fixed pipeline; each stage consumes the output of the previous one:
//   - Line breaks: every newline becomes <br>
//   - Code blocks: ``` fences become a header plus a <pre><code> region
//   - Lists: "- " / "* " and "1. " lines become merged <ul>/<ol> lists
//   - Tables: pipe-delimited blocks with a separator row become <table>
//   - Highlights: Warning:/Error:/Solution: callouts and # headings
//
// Formatting is total: malformed structure (an unterminated fence, a one-row table)
// passes through as literal text. Text is interpolated without escaping unless the
// Formatter is built with a sanitizer.
//
// Example Usage:
//
//	html := formatter.Format("## Title\n- a\n- b")
//
//	f := formatter.New(formatter.WithDefaultSanitizer())
//	safe := f.Format(resp.Response)
package formatter
