package record

import (
	"fmt"
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/helper"
)

// Row holds the values of one record in column order.
// Values are nil (absent), string or int64.
type Row []interface{}

// Table is an in-memory record set with a fixed, ordered list of columns.
// Tables are passed between stages explicitly; nothing keeps a reference to them once a stage returns.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
	index   map[string]int
}

// NewTable creates an empty table with the given columns.
func NewTable(name string, columns ...string) *Table {
	t := &Table{Name: name, Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn returns true if the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of the named column or an error if it does not exist.
func (t *Table) ColumnIndex(name string) (int, error) {
	idx, ok := t.index[name]
	if !ok {
		return -1, fmt.Errorf("column %q does not exist in table %q", name, t.Name)
	}
	return idx, nil
}

func (t *Table) mustColumnIndex(name string) int {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		panic(err)
	}
	return idx
}

// Append adds a row. The number of values must match the number of columns.
func (t *Table) Append(values ...interface{}) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("table %q expects %v values but got %v", t.Name, len(t.Columns), len(values))
	}
	t.Rows = append(t.Rows, Row(append([]interface{}(nil), values...)))
	return nil
}

// Get returns the value of column in row i. It panics if the column does not exist.
func (t *Table) Get(i int, column string) interface{} {
	return t.Rows[i][t.mustColumnIndex(column)]
}

// GetString returns the value of column in row i as a string, with "" for absent values.
func (t *Table) GetString(i int, column string) string {
	return helper.GetStringFromInterface(t.Get(i, column), true)
}

// Set updates the value of column in row i. It panics if the column does not exist.
func (t *Table) Set(i int, column string, value interface{}) {
	t.Rows[i][t.mustColumnIndex(column)] = value
}

// AddColumn appends a new column with the same value on every row.
func (t *Table) AddColumn(name string, value interface{}) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists in table %q", name, t.Name)
	}
	t.Columns = append(t.Columns, name)
	t.reindex()
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], value)
	}
	return nil
}

// DropColumns removes the named columns in place. Unknown names are ignored.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[int]bool)
	for _, n := range names {
		if idx, ok := t.index[n]; ok {
			drop[idx] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	keep := make([]int, 0, len(t.Columns)-len(drop))
	cols := make([]string, 0, len(t.Columns)-len(drop))
	for i, c := range t.Columns {
		if !drop[i] {
			keep = append(keep, i)
			cols = append(cols, c)
		}
	}
	for r, row := range t.Rows {
		newRow := make(Row, len(keep))
		for j, idx := range keep {
			newRow[j] = row[idx]
		}
		t.Rows[r] = newRow
	}
	t.Columns = cols
	t.reindex()
}

// Copy returns a deep copy of the table under a new name.
func (t *Table) Copy(name string) *Table {
	c := NewTable(name, t.Columns...)
	c.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		c.Rows[i] = append(Row(nil), row...)
	}
	return c
}

// RowKey returns the normalised string form of row i used for structural equality.
// Absent values render as empty strings.
func (t *Table) RowKey(i int) string {
	var sb strings.Builder
	for j, v := range t.Rows[i] {
		if j > 0 {
			sb.WriteString("\x1f")
		}
		sb.WriteString(helper.GetStringFromInterface(v, true))
	}
	return sb.String()
}

// Dedup removes rows that are equal across all columns, keeping the first occurrence.
// It returns the number of rows removed.
func (t *Table) Dedup() int {
	seen := make(map[string]struct{}, len(t.Rows))
	out := t.Rows[:0]
	for i := range t.Rows {
		k := t.RowKey(i)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t.Rows[i])
	}
	removed := len(t.Rows) - len(out)
	for i := len(out); i < len(t.Rows); i++ {
		t.Rows[i] = nil
	}
	t.Rows = out
	return removed
}

// Filter keeps only the rows for which keep returns true and returns the number removed.
func (t *Table) Filter(keep func(i int) bool) int {
	out := make([]Row, 0, len(t.Rows))
	for i := range t.Rows {
		if keep(i) {
			out = append(out, t.Rows[i])
		}
	}
	removed := len(t.Rows) - len(out)
	t.Rows = out
	return removed
}

// StringRows returns every row rendered as strings, with "" for absent values.
func (t *Table) StringRows() [][]string {
	retval := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		s := make([]string, len(row))
		for j, v := range row {
			s[j] = helper.GetStringFromInterface(v, true)
		}
		retval[i] = s
	}
	return retval
}
