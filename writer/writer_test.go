package writer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/record"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

var (
	reInsert = regexp.MustCompile(`^insert into "[^"]+"\."([^"]+)" \(([^)]*)\) values .* on conflict \(([^)]*)\) do nothing$`)
	reCount  = regexp.MustCompile(`^select count\(\*\) from "[^"]+"\."([^"]+)"$`)
)

// fakeStore behaves like tables with a unique index on the conflict columns.
type fakeStore struct {
	mu       sync.Mutex
	tables   map[string]map[string]bool
	failAt   int // fail the nth insert statement when > 0.
	inserts  int
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tables: make(map[string]map[string]bool)}
}

func (f *fakeStore) connection() *shared.MockConnection {
	db := shared.NewMockConnection()
	db.ExecFunc = f.exec
	db.QueryFunc = f.query
	return db
}

func (f *fakeStore) exec(query string, args []interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := reInsert.FindStringSubmatch(query)
	if m == nil {
		return 0, fmt.Errorf("unexpected statement %q", query)
	}
	f.inserts++
	if f.failAt > 0 && f.inserts == f.failAt {
		return 0, f.failWith
	}
	cols := strings.Split(m[2], ",")
	keys := strings.Split(m[3], ",")
	keyIdx := make([]int, 0, len(keys))
	for i, c := range cols {
		for _, k := range keys {
			if c == k {
				keyIdx = append(keyIdx, i)
			}
		}
	}
	if f.tables[m[1]] == nil {
		f.tables[m[1]] = make(map[string]bool)
	}
	var n int64
	for start := 0; start < len(args); start += len(cols) {
		var sb strings.Builder
		for _, i := range keyIdx {
			sb.WriteString(fmt.Sprintf("%v|", args[start+i]))
		}
		if !f.tables[m[1]][sb.String()] {
			f.tables[m[1]][sb.String()] = true
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) query(query string, args []interface{}) (shared.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := reCount.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("unexpected query %q", query)
	}
	return shared.NewMockRows([]string{"count"}, []interface{}{int64(len(f.tables[m[1]]))}), nil
}

func rawTitles(n int, jobID int64) *record.Table {
	t := record.NewTable(constants.TableTitleRaw, "title_number", "land_title_district", constants.ColumnEtlJobID)
	for i := 0; i < n; i++ {
		_ = t.Append(fmt.Sprintf("CA%v", i), "VA", jobID)
	}
	return t
}

func TestLoadIsIdempotent(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	for _, n := range []int{0, 1, 7, 10} {
		store := newFakeStore()
		db := store.connection()
		l := NewLoader(log, db, "pin", 3)
		tbl := rawTitles(n, 1)
		res, err := l.Load(context.Background(), tbl, RawKeyColumns(tbl))
		if err != nil {
			t.Fatal(err)
		}
		if res.Inserted != int64(n) {
			t.Fatalf("n = %v: expected %v inserted on first load; got %v", n, n, res.Inserted)
		}
		// A rerun from a later job must not add rows: the job id is not part of the key.
		res, err = l.Load(context.Background(), rawTitles(n, 2), RawKeyColumns(tbl))
		if err != nil {
			t.Fatal(err)
		}
		if res.Inserted != 0 || res.Skipped() != int64(n) {
			t.Fatalf("n = %v: expected 0 inserted on second load; got %+v", n, res)
		}
	}
}

func TestLoadBatches(t *testing.T) {
	log := logrus.New()
	store := newFakeStore()
	db := store.connection()
	tbl := rawTitles(7, 1)
	if _, err := NewLoader(log, db, "pin", 3).Load(context.Background(), tbl, RawKeyColumns(tbl)); err != nil {
		t.Fatal(err)
	}
	var inserts []shared.MockStatement
	for _, s := range db.GetStatements() {
		if strings.HasPrefix(s.Query, "insert") {
			inserts = append(inserts, s)
		}
	}
	if len(inserts) != 3 {
		t.Fatalf("expected 3 batches; got %v", len(inserts))
	}
	if len(inserts[0].Args) != 9 || len(inserts[2].Args) != 3 {
		t.Fatalf("unexpected batch sizes %v and %v", len(inserts[0].Args), len(inserts[2].Args))
	}
	// Rows keep their original order across batches.
	if inserts[1].Args[0] != "CA3" || inserts[2].Args[0] != "CA6" {
		t.Fatalf("unexpected batch order: %v, %v", inserts[1].Args, inserts[2].Args)
	}
	expected := `insert into "pin"."title_raw" ("title_number","land_title_district","etl_job_id") values ($1,$2,$3) on conflict ("title_number","land_title_district") do nothing`
	if inserts[2].Query != expected {
		t.Fatalf("expected %q; got %q", expected, inserts[2].Query)
	}
}

func TestLoadStopsAtFailedBatch(t *testing.T) {
	log := logrus.New()
	store := newFakeStore()
	store.failAt = 2
	store.failWith = &pgconn.PgError{Code: "23502", Message: "null value in column", TableName: "title_raw"}
	db := store.connection()
	tbl := rawTitles(7, 1)
	_, err := NewLoader(log, db, "pin", 3).Load(context.Background(), tbl, RawKeyColumns(tbl))
	if err == nil || !strings.Contains(err.Error(), "batch 2") {
		t.Fatalf("expected batch 2 to fail; got %v", err)
	}
	// The first batch stays committed and the third is never sent.
	if got := len(store.tables["title_raw"]); got != 3 {
		t.Fatalf("expected 3 committed rows; got %v", got)
	}
	if store.inserts != 2 {
		t.Fatalf("expected 2 insert attempts; got %v", store.inserts)
	}
}

func TestLoadUnknownKeyColumn(t *testing.T) {
	log := logrus.New()
	tbl := rawTitles(1, 1)
	if _, err := NewLoader(log, newFakeStore().connection(), "pin", 0).Load(context.Background(), tbl, []string{"pid"}); err == nil {
		t.Fatal("expected an error for a key column that is not in the table")
	}
}

func TestNewLoaderDefaults(t *testing.T) {
	l := NewLoader(logrus.New(), shared.NewMockConnection(), "", -1)
	if l.BatchSize != constants.LoaderBatchSizeDefault {
		t.Fatalf("expected default batch size; got %v", l.BatchSize)
	}
}
