// Package expire expires the PINs of titles the registry has cancelled.
package expire

import (
	"context"
	"fmt"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/extract"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
	"github.com/pkg/errors"
)

// Expirer expires one PIN.
type Expirer interface {
	Expire(ctx context.Context, livePinID string) error
}

// Failure records a PIN that could not be expired.
type Failure struct {
	LivePinID string
	Err       error
}

// Result summarises a reconciliation.
type Result struct {
	CancelledTitles int
	Pins            int
	Expired         int
	Failures        []Failure
}

// String is used in the run notification.
func (r Result) String() string {
	return fmt.Sprintf("cancelled titles = %v; PINs found = %v; expired = %v; failed = %v",
		r.CancelledTitles, r.Pins, r.Expired, len(r.Failures))
}

// Reconciler looks up the PINs of cancelled titles and expires each of them.
type Reconciler struct {
	Log     logger.Logger
	DB      shared.Connector
	Schema  string
	Strict  bool // also require title_status = 'C' on the stored PIN.
	Expirer Expirer
}

// Run expires every PIN belonging to a title in cancelled.
// An empty set returns straight away without touching the database or the expirer.
// A failed expiration is collected and the remaining PINs are still processed.
func (r *Reconciler) Run(ctx context.Context, cancelled []extract.TitleKey) (Result, error) {
	res := Result{CancelledTitles: len(cancelled)}
	if len(cancelled) == 0 {
		r.Log.Info("no cancelled titles; nothing to expire")
		return res, nil
	}
	ids, err := r.livePinIDs(ctx, cancelled)
	if err != nil {
		return res, err
	}
	res.Pins = len(ids)
	r.Log.Info("found ", len(ids), " PINs for ", len(cancelled), " cancelled titles")
	for _, id := range ids {
		if err = ctx.Err(); err != nil {
			return res, err
		}
		if err = r.Expirer.Expire(ctx, id); err != nil {
			r.Log.Error("error expiring PIN ", id, ": ", err)
			res.Failures = append(res.Failures, Failure{LivePinID: id, Err: err})
			continue
		}
		res.Expired++
		r.Log.Debug("expired PIN ", id)
	}
	r.Log.Info("expiration complete: ", res.String())
	return res, nil
}

func (r *Reconciler) livePinIDs(ctx context.Context, cancelled []extract.TitleKey) ([]string, error) {
	numbers := make([]string, len(cancelled))
	districts := make([]string, len(cancelled))
	for i, k := range cancelled {
		numbers[i] = k.TitleNumber
		districts[i] = k.District
	}
	st := rdbms.NewSchemaTable(r.Schema, constants.TableActivePin)
	q := fmt.Sprintf(`select live_pin_id::text from %v where (title_number, land_title_district) in (select * from unnest($1::text[], $2::text[]))`, st.Sanitize())
	args := []interface{}{numbers, districts}
	if r.Strict {
		q += " and title_status = $3"
		args = append(args, constants.TitleStatusCancelled)
	}
	rows, err := rdbms.QueryAll(ctx, r.Log, r.DB, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error looking up PINs of cancelled titles")
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		switch v := row[0].(type) {
		case string:
			ids = append(ids, v)
		case []byte:
			ids = append(ids, string(v))
		case nil:
		default:
			ids = append(ids, fmt.Sprint(v))
		}
	}
	return ids, nil
}
