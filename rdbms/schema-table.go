package rdbms

import (
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
)

// SchemaTable holds a table name of the form [<schema>.]<table> as supplied on the command line.
// Double quotes around either part are removed; identifiers are always quoted again when SQL is built.
type SchemaTable struct {
	SchemaTable string `errorTxt:"[<schema>.]<table>" mandatory:"yes"`
}

func NewSchemaTable(schema string, table string) SchemaTable {
	if schema == "" {
		return SchemaTable{table}
	} else {
		return SchemaTable{schema + "." + table}
	}
}

func (st *SchemaTable) split() (schema string, table string) {
	s := st.SchemaTable
	// Look for the separator outside of quotes so "random.table" stays one table name.
	inQuote := false
	for i, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '.' && !inQuote:
			return strings.Trim(s[:i], `"`), strings.Trim(s[i+1:], `"`)
		}
	}
	return "", strings.Trim(s, `"`)
}

func (st *SchemaTable) GetTable() string {
	_, t := st.split()
	return t
}

func (st *SchemaTable) GetSchema() string {
	s, _ := st.split()
	return s
}

// WithDefaultSchema returns a copy of st that uses schema when no schema was given.
func (st SchemaTable) WithDefaultSchema(schema string) SchemaTable {
	if st.GetSchema() != "" {
		return st
	}
	return NewSchemaTable(schema, st.GetTable())
}

// Sanitize returns the quoted identifier for use in SQL text.
func (st *SchemaTable) Sanitize() string {
	s, t := st.split()
	return shared.QuoteTable(s, t)
}

func (st *SchemaTable) String() string {
	return st.SchemaTable
}
