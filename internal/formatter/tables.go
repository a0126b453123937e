package formatter

import (
	"regexp"
	"strings"
)

var tableSeparatorRe = regexp.MustCompile(`^[-:| ]+$`)

func isTableRow(l line) bool {
	if l.block {
		return false
	}
	t := strings.TrimSpace(l.text)
	return len(t) >= 2 && t[0] == '|' && t[len(t)-1] == '|'
}

// formatTables renders each run of pipe rows whose second row is a separator.
// Runs that don't qualify are retried one row later, so a stray pipe line
// above a real table doesn't hide it.
func formatTables(doc document) document {
	out := make(document, 0, len(doc))

	for i := 0; i < len(doc); {
		if !isTableRow(doc[i]) {
			out = append(out, doc[i])
			i++
			continue
		}

		j := i
		for j < len(doc) && isTableRow(doc[j]) {
			j++
		}

		run := doc[i:j]
		if len(run) < 2 || !tableSeparatorRe.MatchString(strings.TrimSpace(run[1].text)) {
			out = append(out, doc[i])
			i++
			continue
		}

		out = append(out, line{text: renderTable(run), block: true})
		i = j
	}

	return out
}

func renderTable(rows document) string {
	var sb strings.Builder
	sb.WriteString(`<div class="table-container"><table><thead><tr>`)
	for _, cell := range splitCells(rows[0].text) {
		sb.WriteString("<th>" + cell + "</th>")
	}
	sb.WriteString("</tr></thead><tbody>")

	// rows[1] is the separator.
	for _, row := range rows[2:] {
		sb.WriteString("<tr>")
		for _, cell := range splitCells(row.text) {
			sb.WriteString("<td>" + cell + "</td>")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</tbody></table></div>")
	return sb.String()
}

// splitCells splits a row on pipes and drops the empty cells produced by the outer pipes.
// Empty interior cells are kept.
func splitCells(row string) []string {
	parts := strings.Split(strings.TrimSpace(row), "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}

	if len(cells) > 0 && cells[0] == "" {
		cells = cells[1:]
	}
	if len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
