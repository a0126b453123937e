package formatter

import "strings"

// line is one <br>-delimited line, or a block a stage has already rendered.
// Rendered blocks are opaque to later stages.
type line struct {
	text  string
	block bool
}

type document []line

func splitLines(s string) document {
	parts := strings.Split(s, LineBreak)
	doc := make(document, len(parts))
	for i, p := range parts {
		doc[i] = line{text: p}
	}
	return doc
}

// String joins the document back into HTML. Blocks absorb the line breaks around them;
// adjacent plain lines keep theirs.
func (d document) String() string {
	var sb strings.Builder
	for i, l := range d {
		if i > 0 && !l.block && !d[i-1].block {
			sb.WriteString(LineBreak)
		}
		sb.WriteString(l.text)
	}
	return sb.String()
}
