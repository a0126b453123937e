package formatter

import (
	"regexp"
	"strings"
)

// Runs after newline normalization, so the language tag is terminated by <br>, not \n.
var codeBlockRe = regexp.MustCompile("```(?:([\\w-]+)" + LineBreak + ")?((?s:.*?))```")

func formatCodeBlocks(text string) string {
	matches := codeBlockRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		sb.WriteString(text[last:m[0]])

		var lang string
		if m[2] >= 0 {
			lang = text[m[2]:m[3]]
		}
		sb.WriteString(renderCodeBlock(lang, text[m[4]:m[5]]))
		last = m[1]
	}
	sb.WriteString(text[last:])
	return sb.String()
}

func renderCodeBlock(lang, code string) string {
	// Newlines come back inside <pre>; line-oriented stages never see them as line boundaries.
	code = strings.TrimSpace(strings.ReplaceAll(code, LineBreak, "\n"))

	header := lang
	if header == "" {
		header = "code"
	}

	var sb strings.Builder
	sb.WriteString(`<div class="code-block"><div class="code-header">`)
	sb.WriteString(header)
	sb.WriteString(`</div><pre`)
	if lang != "" {
		sb.WriteString(` class="language-`)
		sb.WriteString(lang)
		sb.WriteString(`"`)
	}
	sb.WriteString(`><code>`)
	sb.WriteString(code)
	sb.WriteString(`</code></pre></div>`)
	return sb.String()
}
