package expire

import (
	"context"
	"fmt"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
	"github.com/pkg/errors"
)

// DirectExpirer deletes the PIN from the target database and records the reason on its latest audit row.
// The two statements commit separately.
type DirectExpirer struct {
	DB     shared.Connector
	Schema string
	Reason string
}

func (d *DirectExpirer) Expire(ctx context.Context, livePinID string) error {
	pins := rdbms.NewSchemaTable(d.Schema, constants.TableActivePin)
	audit := rdbms.NewSchemaTable(d.Schema, constants.TableActivePinAudit)
	if _, err := d.DB.ExecContext(ctx, fmt.Sprintf("delete from %v where live_pin_id = $1", pins.Sanitize()), livePinID); err != nil {
		return errors.Wrapf(err, "error deleting PIN %v", livePinID)
	}
	// Timestamps can tie so log_id breaks the tie.
	q := fmt.Sprintf(`update %[1]v set expiration_reason = $2 where log_id = (select log_id from %[1]v where live_pin_id = $1 order by log_created_at desc, log_id desc limit 1)`, audit.Sanitize())
	if _, err := d.DB.ExecContext(ctx, q, livePinID, d.Reason); err != nil {
		return errors.Wrapf(err, "error updating audit log for PIN %v", livePinID)
	}
	return nil
}
