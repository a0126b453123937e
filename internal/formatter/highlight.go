package formatter

import (
	"regexp"
	"strconv"
	"strings"
)

type callout struct {
	label string
	class string
	icon  string
}

// Checked in order; the labels are mutually exclusive anyway.
var callouts = []callout{
	{label: "warning:", class: "warning-block", icon: "⚠️"},
	{label: "error:", class: "error-block", icon: "❌"},
	{label: "solution:", class: "solution-block", icon: "💡"},
}

var headingRe = regexp.MustCompile(`(?s)^(#{1,6}) (.+)$`)

func highlightSections(doc document) document {
	out := make(document, len(doc))
	for i, l := range doc {
		if l.block {
			out[i] = l
			continue
		}
		if html, ok := renderCallout(l.text); ok {
			out[i] = line{text: html, block: true}
			continue
		}
		if html, ok := renderHeading(l.text); ok {
			out[i] = line{text: html, block: true}
			continue
		}
		out[i] = l
	}
	return out
}

func renderCallout(text string) (string, bool) {
	for _, c := range callouts {
		if len(text) >= len(c.label) && strings.EqualFold(text[:len(c.label)], c.label) {
			return `<div class="` + c.class + `">` + c.icon + " " + text + "</div>", true
		}
	}
	return "", false
}

func renderHeading(text string) (string, bool) {
	m := headingRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	level := strconv.Itoa(len(m[1]))
	content := strings.TrimLeft(m[2], " \t")
	return `<h` + level + ` class="response-heading">` + content + `</h` + level + `>`, true
}
