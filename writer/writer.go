// Package writer loads record sets into PostgreSQL in batches that skip rows already present.
package writer

import (
	"context"
	"errors"
	"fmt"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/record"
	om "github.com/cevaris/ordered_map"
	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
)

// Result reports the outcome of loading one table.
type Result struct {
	Table    string
	Rows     int   // rows offered.
	Inserted int64 // rows actually added, measured by counting the table before and after.
}

// Skipped returns the number of rows that were already present.
func (r Result) Skipped() int64 {
	return int64(r.Rows) - r.Inserted
}

// Loader inserts tables into a schema.
type Loader struct {
	Log       logger.Logger
	DB        shared.Connector
	Schema    string
	BatchSize int
}

// NewLoader returns a Loader with the default batch size if batchSize is not positive.
func NewLoader(log logger.Logger, db shared.Connector, schema string, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = constants.LoaderBatchSizeDefault
	}
	return &Loader{Log: log, DB: db, Schema: schema, BatchSize: batchSize}
}

// RawKeyColumns returns every column except the job id tag, which is the conflict target for raw snapshots.
func RawKeyColumns(t *record.Table) []string {
	keys := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c != constants.ColumnEtlJobID {
			keys = append(keys, c)
		}
	}
	return keys
}

// Load inserts every row of t into the table of the same name.
// Rows that conflict on keyColumns are skipped. Each batch commits on its own; the first failing batch
// stops the load and earlier batches stay committed.
func (l *Loader) Load(ctx context.Context, t *record.Table, keyColumns []string) (Result, error) {
	res := Result{Table: t.Name, Rows: t.Len()}
	st := rdbms.NewSchemaTable(l.Schema, t.Name)
	// Split the columns into the conflict target and the rest.
	keys := om.NewOrderedMap()
	for _, k := range keyColumns {
		if !t.HasColumn(k) {
			return res, fmt.Errorf("key column %q is not in table %q", k, t.Name)
		}
		keys.Set(k, k)
	}
	others := om.NewOrderedMap()
	for _, c := range t.Columns {
		if _, isKey := keys.Get(c); !isKey {
			others.Set(c, c)
		}
	}
	g, err := l.DB.GetDmlGenerator().NewInsertGenerator(&shared.SqlStatementGeneratorConfig{
		Log:             l.Log,
		OutputSchema:    l.Schema,
		OutputTable:     t.Name,
		TargetKeyCols:   keys,
		TargetOtherCols: others,
	})
	if err != nil {
		return res, err
	}
	batch := g.(shared.SqlStmtTxtBatcher)
	// Map the generator's column order onto the table.
	cols := batch.GetColumns()
	idx := make([]int, len(cols))
	for i, c := range cols {
		if idx[i], err = t.ColumnIndex(c); err != nil {
			return res, err
		}
	}
	batchSize := l.BatchSize
	if max := shared.MaxBindParameters / len(cols); batchSize > max {
		l.Log.Warn("batch size ", batchSize, " exceeds the bind parameter limit for ", len(cols), " columns; using ", max)
		batchSize = max
	}

	before, err := rdbms.CountRows(ctx, l.DB, st)
	if err != nil {
		return res, pkgerrors.Wrapf(err, "error counting rows in %v before load", st.String())
	}
	l.Log.Info("loading ", t.Len(), " rows into ", st.String(), " (", before, " rows before load)")
	values := make([]interface{}, len(cols))
	for start, n := 0, 1; start < t.Len(); start, n = start+batchSize, n+1 {
		end := start + batchSize
		if end > t.Len() {
			end = t.Len()
		}
		batch.InitBatch(batchSize)
		for _, row := range t.Rows[start:end] {
			for i, j := range idx {
				values[i] = row[j]
			}
			if _, err = batch.AddValuesToBatch(values); err != nil {
				return res, err
			}
		}
		if _, err = l.DB.ExecContext(ctx, batch.GetStatement(), batch.GetValues()...); err != nil {
			logPgError(l.Log, err)
			return res, pkgerrors.Wrapf(err, "error inserting batch %v (rows %v to %v) into %v", n, start+1, end, st.String())
		}
		l.Log.Debug("inserted batch ", n, " into ", st.String())
	}
	after, err := rdbms.CountRows(ctx, l.DB, st)
	if err != nil {
		return res, pkgerrors.Wrapf(err, "error counting rows in %v after load", st.String())
	}
	res.Inserted = after - before
	l.Log.Info("loaded ", st.String(), ": rows = ", res.Rows, "; inserted = ", res.Inserted, "; already present = ", res.Skipped())
	return res, nil
}

// logPgError logs the server's detail for a failed statement.
func logPgError(log logger.Logger, err error) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return
	}
	log.Error("postgres error ", pgErr.Code, " on table ", pgErr.TableName, " constraint ", pgErr.ConstraintName, ": ", pgErr.Message, " ", pgErr.Detail)
}
