package table

import (
	"strings"

	"github.com/agext/levenshtein"
)

// GapSchema is the column layout requested for research gap tables.
var GapSchema = []string{
	"Reference",
	"Year",
	"Study Aim / Topic",
	"Method / Approach",
	"Data / Tools",
	"Key Findings",
	"Relevance to Project",
	"Gaps / Notes",
	"Research Gap / Limitations",
}

// MaxHeaderDistance bounds how far a model-written header may drift from a
// schema column and still be renamed to it.
const MaxHeaderDistance = 3

// Canonicalize returns a copy of t whose headers are renamed to the closest
// schema column when they differ only by spacing, case, or a small typo.
// Headers with no close match are kept. Degraded tables are returned as-is.
func Canonicalize(t *Table, schema []string) *Table {
	if t == nil || t.Degraded() {
		return t
	}

	columns := make([]string, len(t.Columns))
	copy(columns, t.Columns)

	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		taken[c] = true
	}

	for i, c := range columns {
		best, ok := closestColumn(c, schema)
		if !ok || best == c || taken[best] {
			continue
		}
		delete(taken, c)
		taken[best] = true
		columns[i] = best
	}

	return &Table{Columns: columns, Rows: t.Rows, Status: t.Status}
}

func closestColumn(name string, schema []string) (string, bool) {
	key := headerKey(name)
	bestDist := MaxHeaderDistance + 1
	best := ""
	for _, s := range schema {
		d := levenshtein.Distance(key, headerKey(s), nil)
		// short headers only match exactly
		if d > 0 && len(key) < 6 {
			continue
		}
		if d < bestDist {
			bestDist = d
			best = s
		}
	}
	return best, best != ""
}

func headerKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
