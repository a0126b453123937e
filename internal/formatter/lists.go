package formatter

import (
	"regexp"
	"strings"
)

var (
	bulletRe   = regexp.MustCompile(`(?s)^[-*] (.+)$`)
	numberedRe = regexp.MustCompile(`(?s)^\d+\. (.+)$`)
)

// formatLists wraps bullet lines, then numbered lines. A line claimed by the
// bullet pass is a block by the time the numbered pass runs.
func formatLists(doc document) document {
	doc = wrapListRuns(doc, bulletRe, "ul")
	return wrapListRuns(doc, numberedRe, "ol")
}

// wrapListRuns merges each run of consecutive matching lines into a single list.
func wrapListRuns(doc document, re *regexp.Regexp, tag string) document {
	out := make(document, 0, len(doc))
	var items []string

	flush := func() {
		if len(items) == 0 {
			return
		}
		out = append(out, line{text: renderList(tag, items), block: true})
		items = nil
	}

	for _, l := range doc {
		if !l.block {
			if m := re.FindStringSubmatch(l.text); m != nil {
				items = append(items, m[1])
				continue
			}
		}
		flush()
		out = append(out, l)
	}
	flush()

	return out
}

func renderList(tag string, items []string) string {
	var sb strings.Builder
	sb.WriteString("<" + tag + ">")
	for _, item := range items {
		sb.WriteString("<li>")
		sb.WriteString(item)
		sb.WriteString("</li>")
	}
	sb.WriteString("</" + tag + ">")
	return sb.String()
}
