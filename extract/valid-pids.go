package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// ValidPidSet is the allow-list of parcel identifiers the downstream system knows about.
type ValidPidSet map[int64]struct{}

// NewValidPidSet builds a set from pids.
func NewValidPidSet(pids ...int64) ValidPidSet {
	s := make(ValidPidSet, len(pids))
	for _, p := range pids {
		s[p] = struct{}{}
	}
	return s
}

func (s ValidPidSet) Contains(pid int64) bool {
	_, ok := s[pid]
	return ok
}

// LoadValidPids reads every PID from column of table st.
func LoadValidPids(ctx context.Context, log logger.Logger, db shared.Connector, st rdbms.SchemaTable, column string) (ValidPidSet, error) {
	q := fmt.Sprintf("select %v from %v", pgx.Identifier{column}.Sanitize(), st.Sanitize())
	rows, err := rdbms.QueryAll(ctx, log, db, q)
	if err != nil {
		return nil, errors.Wrap(err, "error loading valid PIDs")
	}
	retval := make(ValidPidSet, len(rows))
	for _, r := range rows {
		pid, err := toPid(r[0])
		if err != nil {
			return nil, errors.Wrapf(err, "error reading valid PID from %v", st.String())
		}
		retval[pid] = struct{}{}
	}
	log.Info("loaded ", len(retval), " valid PIDs from ", st.String())
	return retval, nil
}

func toPid(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("PID %v is not an integer", n)
		}
		return int64(n), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported PID type %T", v)
	}
}
