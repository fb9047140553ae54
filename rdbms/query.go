package rdbms

import (
	"context"
	"fmt"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
)

// SqlQuery runs sqltext and sends the column names, then every row, to the handler i.
func SqlQuery(ctx context.Context, log logger.Logger, db shared.Connector, sqltext string, i shared.SqlResultHandler, args ...interface{}) error {
	rows, err := db.QueryContext(ctx, sqltext, args...)
	if err != nil {
		return fmt.Errorf("error during database query using SQL: '%v': %w", sqltext, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("error fetching columns: %w", err)
	}
	log.Debug("query columns = ", cols)
	// Scan the values dynamically.
	lenCols := len(cols)
	scanPtrs := make([]interface{}, lenCols)
	scanVals := make([]interface{}, lenCols)
	for idx := 0; idx < lenCols; idx++ { // for each column...
		scanPtrs[idx] = &scanVals[idx] // save the value.
	}
	// Build and send the header.
	header := make([]interface{}, lenCols)
	for idx := range cols {
		header[idx] = cols[idx]
	}
	if err = i.HandleHeader(header); err != nil {
		return err
	}
	// Send the rows via callback interface.
	for rows.Next() {
		if err = ctx.Err(); err != nil { // quit if asked to...
			return err
		}
		if err = rows.Scan(scanPtrs...); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		// Make a new row.
		row := make([]interface{}, lenCols)
		copy(row, scanVals)
		if err = i.HandleRow(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// QueryInt64 runs a query that returns a single integer, e.g. a count or a generated key.
func QueryInt64(ctx context.Context, db shared.Connector, sqltext string, args ...interface{}) (int64, error) {
	rows, err := db.QueryContext(ctx, sqltext, args...)
	if err != nil {
		return 0, fmt.Errorf("error during database query using SQL: '%v': %w", sqltext, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("no rows returned by SQL: '%v'", sqltext)
	}
	var n int64
	if err = rows.Scan(&n); err != nil {
		return 0, fmt.Errorf("error scanning integer result: %w", err)
	}
	return n, rows.Err()
}

// CountRows returns the number of rows in the table.
func CountRows(ctx context.Context, db shared.Connector, st SchemaTable) (int64, error) {
	return QueryInt64(ctx, db, fmt.Sprintf("select count(*) from %v", st.Sanitize()))
}

// sliceResultHandler collects query results in memory.
type sliceResultHandler struct {
	header []interface{}
	rows   [][]interface{}
}

func (s *sliceResultHandler) HandleHeader(i []interface{}) error {
	s.header = i
	return nil
}

func (s *sliceResultHandler) HandleRow(i []interface{}) error {
	s.rows = append(s.rows, i)
	return nil
}

// QueryAll runs sqltext and returns every row.
func QueryAll(ctx context.Context, log logger.Logger, db shared.Connector, sqltext string, args ...interface{}) ([][]interface{}, error) {
	h := &sliceResultHandler{}
	if err := SqlQuery(ctx, log, db, sqltext, h, args...); err != nil {
		return nil, err
	}
	return h.rows, nil
}
