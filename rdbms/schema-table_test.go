package rdbms

import (
	"testing"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
)

func TestSchemaTable(t *testing.T) {
	log := logger.NewLogger("pinetl", "info", true)
	cases := []struct {
		input     string
		schema    string
		table     string
		sanitized string
	}{
		{"schema.table", "schema", "table", `"schema"."table"`},
		{`schema."table"`, "schema", "table", `"schema"."table"`},
		{`"random.table"`, "", "random.table", `"random.table"`},
		{"valid_pid", "", "valid_pid", `"valid_pid"`},
	}
	for _, c := range cases {
		log.Info("Testing SchemaTable: ", c.input)
		st := SchemaTable{SchemaTable: c.input}
		if got := st.GetSchema(); got != c.schema {
			t.Fatalf("expected schema = %q; got %q", c.schema, got)
		}
		if got := st.GetTable(); got != c.table {
			t.Fatalf("expected table = %q; got %q", c.table, got)
		}
		if got := st.Sanitize(); got != c.sanitized {
			t.Fatalf("expected %q; got %q", c.sanitized, got)
		}
		if got := st.String(); got != c.input {
			t.Fatalf("expected %q; got %q", c.input, got)
		}
	}
	st := SchemaTable{SchemaTable: "valid_pid"}
	if got := st.WithDefaultSchema("pin"); got.String() != "pin.valid_pid" {
		t.Fatalf("unexpected default schema result %q", got.String())
	}
	st = SchemaTable{SchemaTable: "ref.valid_pid"}
	if got := st.WithDefaultSchema("pin"); got.String() != "ref.valid_pid" {
		t.Fatalf("unexpected default schema result %q", got.String())
	}
}
