package shared

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// FixSqlStatementGeneratorConfig checks the mandatory fields of cfg.
func FixSqlStatementGeneratorConfig(cfg *SqlStatementGeneratorConfig) error {
	if cfg.OutputTable == "" {
		return errors.New("missing output table name")
	}
	if cfg.TargetKeyCols == nil && cfg.TargetOtherCols == nil {
		return errors.New("missing target columns")
	}
	if cfg.OutputSchema == "" && cfg.Log != nil {
		cfg.Log.Debug("No output schema supplied; using the search path.")
	}
	return nil
}

// QuoteTable returns the sanitized, optionally schema-qualified, table identifier.
func QuoteTable(schema, table string) string {
	if schema == "" {
		return pgx.Identifier{table}.Sanitize()
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

// QuoteColumns returns each column name as a sanitized identifier.
func QuoteColumns(cols []string) []string {
	retval := make([]string, len(cols))
	for i, c := range cols {
		retval[i] = pgx.Identifier{c}.Sanitize()
	}
	return retval
}
