package report

import (
	"strings"
)

// placeholder is the cell used for sections with no applicable data.
// Sections always render their table, so document structure stays
// stable for downstream tooling that parses it.
const placeholder = "—"

// tableWriter renders one Markdown table with a fixed header
type tableWriter struct {
	sb      *strings.Builder
	columns int
	rows    int
}

func newTable(sb *strings.Builder, headers ...string) *tableWriter {
	t := &tableWriter{sb: sb, columns: len(headers)}
	t.writeRow(headers...)
	seps := make([]string, len(headers))
	for i := range seps {
		seps[i] = "---"
	}
	t.writeRow(seps...)
	return t
}

// Row writes one data row, escaping pipes in cells
func (t *tableWriter) Row(cells ...string) {
	t.rows++
	t.writeRow(cells...)
}

// Close writes a placeholder row when no data rows were written
func (t *tableWriter) Close() {
	if t.rows == 0 {
		cells := make([]string, t.columns)
		for i := range cells {
			cells[i] = placeholder
		}
		t.writeRow(cells...)
	}
	t.sb.WriteString("\n")
}

func (t *tableWriter) writeRow(cells ...string) {
	t.sb.WriteString("|")
	for _, c := range cells {
		t.sb.WriteString(" ")
		t.sb.WriteString(escapeCell(c))
		t.sb.WriteString(" |")
	}
	t.sb.WriteString("\n")
}

// escapeCell keeps cell text from breaking table structure
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	if s == "" {
		return placeholder
	}
	return s
}

// splitRow parses one Markdown table row back into its cells
func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "|") {
		return nil
	}
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")

	// Split on unescaped pipes
	var cells []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	return cells
}

// isSeparatorRow reports whether a parsed row is the |---|---| line
func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		trimmed := strings.Trim(c, ":- ")
		if trimmed != "" {
			return false
		}
	}
	return len(cells) > 0
}

// isPlaceholderRow reports whether every cell is the placeholder
func isPlaceholderRow(cells []string) bool {
	for _, c := range cells {
		if c != placeholder {
			return false
		}
	}
	return len(cells) > 0
}

// sectionTable extracts the data rows of the first table under the
// given section heading
func sectionTable(doc, heading string) [][]string {
	lines := strings.Split(doc, "\n")
	inSection := false
	inTable := false
	var rows [][]string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			if inTable {
				break
			}
			inSection = strings.TrimSpace(strings.TrimLeft(trimmed, "#")) == heading
			continue
		}
		if !inSection {
			continue
		}
		if strings.HasPrefix(trimmed, "|") {
			inTable = true
			cells := splitRow(trimmed)
			if cells == nil || isSeparatorRow(cells) || isPlaceholderRow(cells) {
				continue
			}
			rows = append(rows, cells)
		} else if inTable {
			break
		}
	}

	// Drop the header row
	if len(rows) > 0 {
		rows = rows[1:]
	}
	return rows
}
