package table

import (
	"fmt"
	"log/slog"
	"strings"
)

// Parse recovers a Table from raw model output. It never fails: when no
// usable table is present the result is an error row that carries the raw
// response for inspection.
//
// Lines containing a pipe are table lines. The final line of the response
// is also kept as a single-cell row when it has no pipes, directly follows
// a table line and holds at most a few words, since models sometimes drop
// the delimiters of a short trailing row. Longer trailing prose is ignored.
func Parse(raw string) (t *Table) {
	defer func() {
		if r := recover(); r != nil {
			t = degrade(StatusFailed, fmt.Sprintf("Failed to parse table: %v", r), raw)
		}
	}()

	lines := candidateLines(raw)
	if len(lines) < 2 {
		return degrade(StatusNoTable, MsgNoTable, raw)
	}

	header := splitCells(lines[0])
	if len(header) == 0 {
		return degrade(StatusNoTable, MsgNoTable, raw)
	}

	var rows [][]string
	for _, line := range lines[1:] {
		if isSeparator(line) {
			continue
		}
		cells := splitCells(line)
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, fitRow(cells, len(header)))
	}

	if len(rows) == 0 {
		return degrade(StatusNoRows, MsgNoRows, raw)
	}

	parsed, err := New(header, rows)
	if err != nil {
		return degrade(StatusFailed, fmt.Sprintf("Failed to parse table: %v", err), raw)
	}
	return parsed
}

func degrade(status Status, message, raw string) *Table {
	slog.Warn("table parse degraded", "status", status.String(), "raw_len", len(raw))
	return ErrorTable(status, message, raw)
}

// maxTrailingWords bounds a pipe-less final line accepted as a row.
const maxTrailingWords = 4

func candidateLines(raw string) []string {
	lines := strings.Split(raw, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	last := len(lines) - 1
	for last >= 0 && lines[last] == "" {
		last--
	}

	var out []string
	inTable := false
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "```"):
			inTable = false
		case strings.Contains(line, "|"):
			out = append(out, line)
			inTable = true
		case line == "":
			inTable = false
		case inTable && i == last && len(strings.Fields(line)) <= maxTrailingWords:
			out = append(out, line)
		default:
			inTable = false
		}
	}
	return out
}

// isSeparator matches the markdown header/body divider. Any line holding
// "---" is treated as one, wherever it appears.
func isSeparator(line string) bool {
	return strings.Contains(line, "---")
}

// splitCells splits on unescaped pipes and trims each cell. Empty cells
// produced by a leading or trailing delimiter are dropped; a line with no
// content at all yields nil.
func splitCells(line string) []string {
	var cells []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) && line[i+1] == '|' {
			cur.WriteByte('|')
			i++
			continue
		}
		if c == '|' {
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	cells = append(cells, strings.TrimSpace(cur.String()))

	if cells[0] == "" {
		cells = cells[1:]
	}
	if len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	for _, c := range cells {
		if c != "" {
			return cells
		}
	}
	return nil
}

// fitRow truncates overlong rows and right-pads short ones to width.
func fitRow(cells []string, width int) []string {
	switch {
	case len(cells) > width:
		return cells[:width:width]
	case len(cells) < width:
		padded := make([]string, width)
		copy(padded, cells)
		return padded
	default:
		return cells
	}
}
