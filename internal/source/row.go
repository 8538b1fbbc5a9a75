package source

import (
	"strconv"
	"strings"

	"github.com/aarondl/null/v8"
)

// Row is one data row. Line is the 1-based line (or sheet row) number in
// the original file, for operator-facing errors.
type Row struct {
	Line   int
	index  map[string]int
	fields []string
}

func newRow(line int, index map[string]int, fields []string) Row {
	return Row{Line: line, index: index, fields: fields}
}

// Get returns the cleaned value of column name, or "" when the column is
// absent or the row is short.
func (r Row) Get(name string) string {
	i, ok := r.index[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return CleanCell(r.fields[i])
}

// Str treats "" and the literal "null" as absent.
func (r Row) Str(name string) null.String {
	v := r.Get(name)
	if v == "" || v == "null" {
		return null.String{}
	}
	return null.StringFrom(v)
}

// Bool is true only for a case-insensitive "TRUE".
func (r Row) Bool(name string) bool {
	return strings.EqualFold(r.Get(name), "true")
}

// Float parses a decimal value. ok is false for absent or malformed input.
func (r Row) Float(name string) (float64, bool) {
	v := r.Str(name)
	if !v.Valid {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.String, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int parses an integer value; malformed input is absent.
func (r Row) Int(name string) null.Int {
	v := r.Str(name)
	if !v.Valid {
		return null.Int{}
	}
	n, err := strconv.Atoi(v.String)
	if err != nil {
		return null.Int{}
	}
	return null.IntFrom(n)
}

// CleanCell trims whitespace and strips spreadsheet formula wrappers
// (="00123") and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(strings.Trim(s, `"`))
}

func isEmptyRow(fields []string) bool {
	for _, v := range fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}
