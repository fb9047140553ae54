// Package ledger records each run in the etl_log table and gates re-processing of a folder.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
	"github.com/pkg/errors"
)

// Status is the state of a job.
type Status string

const (
	StatusNone       Status = ""
	StatusInProgress Status = "In Progress"
	StatusSuccess    Status = "Success"
	StatusFailure    Status = "Failure"
	StatusCancelled  Status = "Cancelled"
)

// IsTerminal reports whether a job in this state is finished.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailure || s == StatusCancelled
}

// ErrTerminalState is returned when a finished job is asked to change state.
var ErrTerminalState = errors.New("job is already in a terminal state")

// Ledger tracks the job row of the current run.
type Ledger struct {
	Log    logger.Logger
	DB     shared.Connector
	Schema string
	JobID  int64
	Status Status
	table  rdbms.SchemaTable
}

// New returns a ledger for the etl_log table in schema.
func New(log logger.Logger, db shared.Connector, schema string) *Ledger {
	return &Ledger{Log: log, DB: db, Schema: schema, table: rdbms.NewSchemaTable(schema, constants.TableEtlLog)}
}

// Started reports whether Start obtained a job id.
func (l *Ledger) Started() bool {
	return l.JobID > 0
}

// Start inserts an In Progress row and saves its job id.
func (l *Ledger) Start(ctx context.Context) error {
	if l.Started() {
		return fmt.Errorf("job %v has already started", l.JobID)
	}
	q := fmt.Sprintf("insert into %v (status) values ($1) returning job_id", l.table.Sanitize())
	id, err := rdbms.QueryInt64(ctx, l.DB, q, string(StatusInProgress))
	if err != nil {
		return errors.Wrap(err, "error starting job")
	}
	l.JobID = id
	l.Status = StatusInProgress
	l.Log.Info("started job ", id)
	return nil
}

// PriorStatus returns Success if any earlier job of the folder succeeded,
// otherwise the status of the most recent earlier job of the folder,
// otherwise StatusNone.
func (l *Ledger) PriorStatus(ctx context.Context, folder string) (Status, error) {
	q := fmt.Sprintf(`select status from %v where folder = $1 and job_id <> $2 order by (status = $3) desc, updated_at desc, job_id desc limit 1`, l.table.Sanitize())
	rows, err := rdbms.QueryAll(ctx, l.Log, l.DB, q, folder, l.JobID, string(StatusSuccess))
	if err != nil {
		return StatusNone, errors.Wrapf(err, "error reading prior status of folder %q", folder)
	}
	if len(rows) == 0 || rows[0][0] == nil {
		return StatusNone, nil
	}
	switch v := rows[0][0].(type) {
	case string:
		return Status(v), nil
	case []byte:
		return Status(v), nil
	default:
		return Status(fmt.Sprint(v)), nil
	}
}

// SetFolder records the folder the job is processing.
func (l *Ledger) SetFolder(ctx context.Context, folder string) error {
	if l.Status.IsTerminal() {
		return ErrTerminalState
	}
	q := fmt.Sprintf("update %v set folder = $1, updated_at = now() where job_id = $2", l.table.Sanitize())
	if _, err := l.DB.ExecContext(ctx, q, folder, l.JobID); err != nil {
		return errors.Wrapf(err, "error saving folder of job %v", l.JobID)
	}
	return nil
}

// Complete marks the job successful.
func (l *Ledger) Complete(ctx context.Context) error {
	return l.transition(ctx, StatusSuccess)
}

// Cancel marks the job cancelled.
func (l *Ledger) Cancel(ctx context.Context) error {
	return l.transition(ctx, StatusCancelled)
}

// Fail deletes every raw row tagged with the job id and marks the job failed.
// Without a job id a bare Failure row is inserted so the run still leaves a trace.
func (l *Ledger) Fail(ctx context.Context) error {
	if l.Status.IsTerminal() {
		return ErrTerminalState
	}
	if !l.Started() {
		q := fmt.Sprintf("insert into %v (status) values ($1)", l.table.Sanitize())
		if _, err := l.DB.ExecContext(ctx, q, string(StatusFailure)); err != nil {
			return errors.Wrap(err, "error recording failed job")
		}
		l.Status = StatusFailure
		return nil
	}
	var msgs []string
	for _, t := range constants.RawTables {
		st := rdbms.NewSchemaTable(l.Schema, t)
		res, err := l.DB.ExecContext(ctx, fmt.Sprintf("delete from %v where %v = $1", st.Sanitize(), shared.QuoteColumns([]string{constants.ColumnEtlJobID})[0]), l.JobID)
		if err != nil {
			l.Log.Error("error deleting rows of job ", l.JobID, " from ", st.String(), ": ", err)
			msgs = append(msgs, fmt.Sprintf("%v: %v", st.String(), err))
			continue
		}
		if n, err := res.RowsAffected(); err == nil {
			l.Log.Info("deleted ", n, " rows of job ", l.JobID, " from ", st.String())
		}
	}
	if err := l.transition(ctx, StatusFailure); err != nil {
		return err
	}
	if len(msgs) > 0 {
		return fmt.Errorf("error removing raw rows of failed job %v: %v", l.JobID, strings.Join(msgs, "; "))
	}
	return nil
}

func (l *Ledger) transition(ctx context.Context, to Status) error {
	if l.Status.IsTerminal() {
		return ErrTerminalState
	}
	if !l.Started() {
		return fmt.Errorf("job has not started")
	}
	q := fmt.Sprintf("update %v set status = $1, updated_at = now() where job_id = $2", l.table.Sanitize())
	if _, err := l.DB.ExecContext(ctx, q, string(to), l.JobID); err != nil {
		return errors.Wrapf(err, "error setting status of job %v to %v", l.JobID, to)
	}
	l.Log.Info("job ", l.JobID, " status = ", string(to))
	l.Status = to
	return nil
}
