package shared

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
)

// MockStatement is one call recorded by MockConnection.
type MockStatement struct {
	Query string
	Args  []interface{}
}

// MockConnection implements Connector without a database.
// ExecFunc and QueryFunc script the responses; every call is appended to Statements.
type MockConnection struct {
	ExecFunc   func(query string, args []interface{}) (int64, error)
	QueryFunc  func(query string, args []interface{}) (Rows, error)
	Statements []MockStatement
	Closed     bool
	mu         sync.Mutex
}

// NewMockConnection returns a MockConnection that accepts every statement and returns no rows.
func NewMockConnection() *MockConnection {
	return &MockConnection{}
}

func (c *MockConnection) record(query string, args []interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statements = append(c.Statements, MockStatement{Query: query, Args: append([]interface{}(nil), args...)})
}

func (c *MockConnection) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.record(query, args)
	if c.ExecFunc == nil {
		return MockResult(0), nil
	}
	n, err := c.ExecFunc(query, args)
	if err != nil {
		return nil, err
	}
	return MockResult(n), nil
}

func (c *MockConnection) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.record(query, args)
	if c.QueryFunc == nil {
		return NewMockRows(nil), nil
	}
	return c.QueryFunc(query, args)
}

func (c *MockConnection) Close() {
	c.Closed = true
}

func (c *MockConnection) GetType() string {
	return constants.ConnectionTypeMock
}

func (c *MockConnection) GetDmlGenerator() DmlGenerator {
	return &DmlGeneratorTxtBatch{}
}

// GetStatements returns a copy of the statement log.
func (c *MockConnection) GetStatements() []MockStatement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MockStatement(nil), c.Statements...)
}

// MockResult reports a fixed number of affected rows.
type MockResult int64

func (r MockResult) LastInsertId() (int64, error) {
	return 0, nil
}

func (r MockResult) RowsAffected() (int64, error) {
	return int64(r), nil
}

// MockRows is an in-memory implementation of Rows.
type MockRows struct {
	Cols []string
	Data [][]interface{}
	pos  int
}

// NewMockRows returns rows that yield each of data in turn.
func NewMockRows(cols []string, data ...[]interface{}) *MockRows {
	return &MockRows{Cols: cols, Data: data}
}

func (r *MockRows) Next() bool {
	if r.pos >= len(r.Data) {
		return false
	}
	r.pos++
	return true
}

func (r *MockRows) Columns() ([]string, error) {
	return r.Cols, nil
}

func (r *MockRows) Err() error {
	return nil
}

func (r *MockRows) Close() error {
	return nil
}

// Scan copies the current row into dest using the simple conversions the pipeline relies on.
func (r *MockRows) Scan(dest ...interface{}) error {
	if r.pos == 0 || r.pos > len(r.Data) {
		return io.EOF
	}
	row := r.Data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %v destination arguments in Scan, not %v", len(row), len(dest))
	}
	for i, v := range row {
		if err := assign(dest[i], v); err != nil {
			return fmt.Errorf("column %v: %w", i, err)
		}
	}
	return nil
}

func assign(dest interface{}, v interface{}) error {
	switch d := dest.(type) {
	case *interface{}:
		*d = v
		return nil
	case *string:
		if v == nil {
			return fmt.Errorf("cannot scan NULL into *string")
		}
		*d = fmt.Sprint(v)
		return nil
	case *sql.NullString:
		if v == nil {
			*d = sql.NullString{}
		} else {
			*d = sql.NullString{String: fmt.Sprint(v), Valid: true}
		}
		return nil
	case *int64:
		switch n := v.(type) {
		case int64:
			*d = n
		case int:
			*d = int64(n)
		case int32:
			*d = int64(n)
		default:
			return fmt.Errorf("cannot scan %T into *int64", v)
		}
		return nil
	case *int:
		switch n := v.(type) {
		case int64:
			*d = int(n)
		case int:
			*d = n
		default:
			return fmt.Errorf("cannot scan %T into *int", v)
		}
		return nil
	case *time.Time:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("cannot scan %T into *time.Time", v)
		}
		*d = t
		return nil
	}
	// Fall back to reflection for matching types.
	dv := reflect.ValueOf(dest)
	if dv.Kind() == reflect.Ptr && v != nil && reflect.TypeOf(v).AssignableTo(dv.Elem().Type()) {
		dv.Elem().Set(reflect.ValueOf(v))
		return nil
	}
	return fmt.Errorf("unsupported Scan destination %T for value %T", dest, v)
}
