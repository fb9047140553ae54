package rdbms

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
	_ "github.com/jackc/pgx/v5/stdlib" // registers driver "pgx"
)

// driverName is the database/sql driver registered by pgx/v5/stdlib.
const driverName = "pgx"

// supportedDsnConnectionTypes is a map where keys are the supported dburl driver names.
// dburl maps the postgres://, postgresql:// and pgsql:// schemes to driver postgres.
var supportedDsnConnectionTypes = map[string]struct{}{
	constants.ConnectionTypePostgres: {},
}

// isSupportedConnection returns true if it can look up the supplied connection type t in map of supported
// connections supportedDsnConnectionTypes.
func isSupportedConnection(connectionType string) bool {
	_, ok := supportedDsnConnectionTypes[connectionType]
	return ok
}

// OpenDbConnection opens a database connection using the supplied DSN details.
// The connection is pinged before it is returned.
func OpenDbConnection(ctx context.Context, log logger.Logger, d *shared.DsnConnectionDetails) (shared.Connector, error) {
	log.Info("Opening database connection: ", d)
	u, err := d.Parse()
	if err != nil { // if the DSN could not be parsed...
		return nil, fmt.Errorf("error parsing DSN %q: %w", d, err)
	}
	if !isSupportedConnection(u.Driver) {
		return nil, fmt.Errorf("unsupported database type, %q", u.OriginalScheme)
	}
	// Create the new Connector.
	conn := &shared.HpConnection{
		Dml:    &shared.DmlGeneratorTxtBatch{},
		DbType: u.Driver,
	}
	// Open the connection.
	conn.DbSql, err = sql.Open(driverName, u.DSN)
	if err != nil {
		return nil, err
	}
	// Test the connection.
	if err = conn.DbSql.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to %v: %w", d, err)
	}
	log.Info("Successful connection to: ", d)
	return conn, nil
}
