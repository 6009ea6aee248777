package tabular

import (
	"math"
)

// Table is the in-memory tabular dataset: column-major storage with
// NaN (numeric) or "" (label) marking missing cells. Row order is
// preserved but carries no meaning for modeling.
type Table struct {
	Numeric map[string][]float64
	Labels  map[string][]string
	// Levels holds the finite label set for columns coerced to a
	// categorical type, in first-observed order.
	Levels map[string][]string

	n int
}

// NewTable creates an empty table with n rows
func NewTable(n int) *Table {
	return &Table{
		Numeric: make(map[string][]float64),
		Labels:  make(map[string][]string),
		Levels:  make(map[string][]string),
		n:       n,
	}
}

// Len returns the row count
func (t *Table) Len() int {
	return t.n
}

// HasColumn reports whether the column exists in either store
func (t *Table) HasColumn(name string) bool {
	if _, ok := t.Numeric[name]; ok {
		return true
	}
	_, ok := t.Labels[name]
	return ok
}

// IsMissing reports whether the cell at row i of the named column is
// missing. Unknown columns count as missing.
func (t *Table) IsMissing(name string, i int) bool {
	if col, ok := t.Numeric[name]; ok {
		return math.IsNaN(col[i])
	}
	if col, ok := t.Labels[name]; ok {
		return col[i] == ""
	}
	return true
}

// SetNumeric installs a numeric column, replacing any existing one
func (t *Table) SetNumeric(name string, values []float64) {
	t.Numeric[name] = values
}

// SetLabels installs a label column, replacing any existing one
func (t *Table) SetLabels(name string, values []string) {
	t.Labels[name] = values
}

// Coerce records the finite level set of a label column, making it a
// categorical column. Levels keep first-observed order; missing cells
// do not contribute a level.
func (t *Table) Coerce(name string) {
	col, ok := t.Labels[name]
	if !ok {
		return
	}
	seen := make(map[string]struct{})
	var levels []string
	for _, v := range col {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			levels = append(levels, v)
		}
	}
	t.Levels[name] = levels
}

// Clone deep-copies the table
func (t *Table) Clone() *Table {
	out := NewTable(t.n)
	for name, col := range t.Numeric {
		cp := make([]float64, len(col))
		copy(cp, col)
		out.Numeric[name] = cp
	}
	for name, col := range t.Labels {
		cp := make([]string, len(col))
		copy(cp, col)
		out.Labels[name] = cp
	}
	for name, lv := range t.Levels {
		cp := make([]string, len(lv))
		copy(cp, lv)
		out.Levels[name] = cp
	}
	return out
}

// Filter returns a new table containing only rows where keep[i] is true.
// Level sets of coerced columns are recomputed from the surviving rows.
func (t *Table) Filter(keep []bool) *Table {
	kept := 0
	for _, k := range keep {
		if k {
			kept++
		}
	}
	out := NewTable(kept)
	for name, col := range t.Numeric {
		dst := make([]float64, 0, kept)
		for i, k := range keep {
			if k {
				dst = append(dst, col[i])
			}
		}
		out.Numeric[name] = dst
	}
	for name, col := range t.Labels {
		dst := make([]string, 0, kept)
		for i, k := range keep {
			if k {
				dst = append(dst, col[i])
			}
		}
		out.Labels[name] = dst
	}
	for name := range t.Levels {
		out.Coerce(name)
	}
	return out
}
