// Package table holds the tabular result of an LLM analysis and the parser
// that recovers it from free-form model output.
package table

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/duynguyendang/gapagent/pkg/common/errors"
)

// Status records how a Table was produced.
type Status int

const (
	StatusOK Status = iota
	// StatusNoTable means fewer than two table lines were found.
	StatusNoTable
	// StatusNoRows means a header was found but no data row survived.
	StatusNoRows
	// StatusFailed means parsing aborted unexpectedly.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoTable:
		return "no_table"
	case StatusNoRows:
		return "no_rows"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Error row layout and messages.
const (
	ErrorColumn       = "Error"
	RawResponseColumn = "Raw Response"

	MsgNoTable = "Could not find a valid table in the response."
	MsgNoRows  = "Table found but no data parsed."
)

// Table is an ordered header plus rows of string cells. Every row has
// exactly len(Columns) cells and column names are unique.
type Table struct {
	Columns []string
	Rows    [][]string
	Status  Status
}

// New builds a Table, making column names unique. Each row must match the
// header width.
func New(columns []string, rows [][]string) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: table has no columns", apperrors.ErrInvalidInput)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", apperrors.ErrInvalidInput, i, len(row), len(columns))
		}
	}
	return &Table{
		Columns: uniqueColumns(columns),
		Rows:    rows,
		Status:  StatusOK,
	}, nil
}

// ErrorTable builds the single-row diagnostic table used in place of a
// failed parse. The raw model output is kept verbatim.
func ErrorTable(status Status, message, raw string) *Table {
	return &Table{
		Columns: []string{ErrorColumn, RawResponseColumn},
		Rows:    [][]string{{message, raw}},
		Status:  status,
	}
}

// Degraded reports whether t is an error row rather than parsed data.
func (t *Table) Degraded() bool {
	return t.Status != StatusOK
}

// Message returns the diagnostic carried by an error row, or "".
func (t *Table) Message() string {
	if !t.Degraded() || len(t.Rows) == 0 {
		return ""
	}
	return t.Rows[0][0]
}

// ColumnIndex returns the position of name in the header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell looks up a value by row index and column name.
func (t *Table) Cell(row int, column string) (string, bool) {
	col := t.ColumnIndex(column)
	if col < 0 || row < 0 || row >= len(t.Rows) {
		return "", false
	}
	return t.Rows[row][col], true
}

// Records returns each row as a column-name keyed map.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Columns))
		for i, c := range t.Columns {
			rec[c] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

// Markdown renders t as a pipe table. Pipes inside cells are escaped and
// line breaks are flattened to spaces.
func (t *Table) Markdown() string {
	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for _, c := range cells {
			sb.WriteString(" ")
			sb.WriteString(markdownCell(c))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(t.Columns)
	sb.WriteString("|")
	for range t.Columns {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, row := range t.Rows {
		writeRow(row)
	}
	return sb.String()
}

type tableJSON struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Status  string     `json:"status"`
	Message string     `json:"message,omitempty"`
}

// MarshalJSON keeps column order, which a map-per-row encoding would lose.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := t.Rows
	if rows == nil {
		rows = [][]string{}
	}
	return json.Marshal(tableJSON{
		Columns: t.Columns,
		Rows:    rows,
		Status:  t.Status.String(),
		Message: t.Message(),
	})
}

var markdownReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

func markdownCell(s string) string {
	return markdownReplacer.Replace(strings.TrimSpace(s))
}

// uniqueColumns suffixes repeated names ("Notes", "Notes (2)") and names
// blank headers by position.
func uniqueColumns(columns []string) []string {
	out := make([]string, len(columns))
	used := make(map[string]bool, len(columns))
	for i, c := range columns {
		name := strings.TrimSpace(c)
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		candidate := name
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s (%d)", name, n)
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}
