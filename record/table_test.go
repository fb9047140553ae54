package record

import (
	"reflect"
	"testing"
)

func newOwners(t *testing.T) *Table {
	tbl := NewTable("owners", "title_number", "given_name", "pid")
	for _, r := range [][]interface{}{
		{"CA1", "ANN", int64(1)},
		{"CA1", "BOB", int64(1)},
		{"CA1", "ANN", int64(1)},
		{"CA2", nil, int64(2)},
		{"CA2", "", int64(2)},
		{"CA2", nil, int64(2)},
	} {
		if err := tbl.Append(r...); err != nil {
			t.Fatal(err)
		}
	}
	return tbl
}

func TestTable_Append(t *testing.T) {
	tbl := NewTable("x", "a", "b")
	if err := tbl.Append("1"); err == nil {
		t.Fatal("expected error appending a short row")
	}
}

func TestTable_Dedup(t *testing.T) {
	tbl := newOwners(t)
	removed := tbl.Dedup()
	if removed != 3 {
		t.Fatalf("expected 3 duplicates removed; got %v", removed)
	}
	// An absent value and an empty string compare equal; the first occurrence is kept.
	expected := []Row{
		{"CA1", "ANN", int64(1)},
		{"CA1", "BOB", int64(1)},
		{"CA2", nil, int64(2)},
	}
	if !reflect.DeepEqual(tbl.Rows, expected) {
		t.Fatalf("unexpected rows after dedup: %v", tbl.Rows)
	}
	// A second pass is a fixed point.
	if removed = tbl.Dedup(); removed != 0 {
		t.Fatalf("expected dedup to be idempotent; removed %v", removed)
	}
	if !reflect.DeepEqual(tbl.Rows, expected) {
		t.Fatalf("rows changed on second dedup: %v", tbl.Rows)
	}
}

func TestTable_RowKeyAbsentEqualsEmpty(t *testing.T) {
	tbl := NewTable("x", "a", "b")
	_ = tbl.Append("CA1", nil)
	_ = tbl.Append("CA1", "")
	_ = tbl.Append("CA1", "X")
	if tbl.RowKey(0) != tbl.RowKey(1) {
		t.Fatalf("expected nil and empty string to share a key: %q vs %q", tbl.RowKey(0), tbl.RowKey(1))
	}
	if tbl.RowKey(0) == tbl.RowKey(2) {
		t.Fatal("expected different values to produce different keys")
	}
}

func TestTable_DropColumns(t *testing.T) {
	tbl := newOwners(t)
	tbl.DropColumns("given_name", "no_such_column")
	if !reflect.DeepEqual(tbl.Columns, []string{"title_number", "pid"}) {
		t.Fatalf("unexpected columns %v", tbl.Columns)
	}
	if tbl.Get(0, "pid") != int64(1) {
		t.Fatalf("unexpected value %v", tbl.Get(0, "pid"))
	}
	if tbl.HasColumn("given_name") {
		t.Fatal("expected given_name to be dropped")
	}
	// Dropping a column can create new duplicates.
	if removed := tbl.Dedup(); removed != 4 {
		t.Fatalf("expected 4 rows removed; got %v", removed)
	}
}

func TestTable_AddColumnAndCopy(t *testing.T) {
	tbl := newOwners(t)
	c := tbl.Copy("owners_raw")
	if err := c.AddColumn("etl_job_id", int64(7)); err != nil {
		t.Fatal(err)
	}
	if err := c.AddColumn("etl_job_id", int64(7)); err == nil {
		t.Fatal("expected error adding a duplicate column")
	}
	if c.Get(5, "etl_job_id") != int64(7) {
		t.Fatal("expected job id on every row")
	}
	if tbl.HasColumn("etl_job_id") || len(tbl.Rows[0]) != 3 {
		t.Fatal("copy shares state with the original")
	}
	c.Set(0, "given_name", "ZED")
	if tbl.GetString(0, "given_name") != "ANN" {
		t.Fatal("copy shares rows with the original")
	}
}

func TestTable_Filter(t *testing.T) {
	tbl := newOwners(t)
	removed := tbl.Filter(func(i int) bool { return tbl.GetString(i, "title_number") == "CA2" })
	if removed != 3 || tbl.Len() != 3 {
		t.Fatalf("unexpected filter result: removed %v, len %v", removed, tbl.Len())
	}
	if _, err := tbl.ColumnIndex("missing"); err == nil {
		t.Fatal("expected error for a missing column")
	}
	if got := tbl.StringRows()[0]; !reflect.DeepEqual(got, []string{"CA2", "", "2"}) {
		t.Fatalf("unexpected string row %v", got)
	}
}
