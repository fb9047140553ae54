package clean

import (
	"context"
	"errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/record"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const ruleDoc = `{
  "column_rules": {
    "last_name_1": {
      "to_uppercase": true,
      "trim_after_comma": true,
      "shout_loudly": true
    },
    "given_name": {
      "remove_characters": ["*", "?"],
      "replace_exact_values": {"UNKNOWN": ["?", "N.A."], "JOHN": "JON"}
    },
    "occupation": {
      "switch_column_value": {"from_column": "occupation", "to_column": "incorporation_number", "datatype": "int"}
    },
    "country": {
      "switch_column_value": {"from_column": "country", "to_column": "province_abbreviation", "region_map": {"BC": "CANADA", "WA": "USA"}},
      "to_uppercase": false
    }
  }
}`

func newLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	return log
}

func TestParse(t *testing.T) {
	rs, err := Parse(newLog(), []byte(ruleDoc))
	if err != nil {
		t.Fatal(err)
	}
	var cols []string
	for _, c := range rs.Columns {
		cols = append(cols, c.Column)
	}
	if !reflect.DeepEqual(cols, []string{"last_name_1", "given_name", "occupation", "country"}) {
		t.Fatalf("expected document order; got %v", cols)
	}
	// Rules are in application order, not document order.
	if !reflect.DeepEqual(rs.Columns[0].Rules, []Rule{TrimAfterComma{}, ToUppercase{}}) {
		t.Fatalf("unexpected rules %#v", rs.Columns[0].Rules)
	}
	expected := ReplaceExactValues{Replacements: []Replacement{{New: "UNKNOWN", Old: []string{"?", "N.A."}}, {New: "JOHN", Old: []string{"JON"}}}}
	if !reflect.DeepEqual(rs.Columns[1].Rules[0], expected) {
		t.Fatalf("unexpected replace rule %#v", rs.Columns[1].Rules[0])
	}
	if _, ok := rs.Columns[1].Rules[1].(RemoveCharacters); !ok {
		t.Fatalf("expected remove_characters second; got %#v", rs.Columns[1].Rules)
	}
	// An explicit false disables the flag.
	if len(rs.Columns[3].Rules) != 1 {
		t.Fatalf("expected only the switch rule for country; got %#v", rs.Columns[3].Rules)
	}
	sw := rs.Columns[3].Rules[0].(SwitchColumnValue)
	if !reflect.DeepEqual(sw.RegionMap, []RegionMapping{{"BC", "CANADA"}, {"WA", "USA"}}) {
		t.Fatalf("unexpected region map %v", sw.RegionMap)
	}
}

func TestParseErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"not json":            `{"column_rules": `,
		"no column rules":     `{"rules": {}}`,
		"rules not an object": `{"column_rules": ["a"]}`,
		"column not object":   `{"column_rules": {"city": "upper"}}`,
		"bad replace":         `{"column_rules": {"city": {"replace_exact_values": {"A": 1}}}}`,
		"switch no target":    `{"column_rules": {"city": {"switch_column_value": {"from_column": "city"}}}}`,
		"switch bad datatype": `{"column_rules": {"city": {"switch_column_value": {"from_column": "city", "to_column": "country", "datatype": "float"}}}}`,
		"switch both":         `{"column_rules": {"city": {"switch_column_value": {"from_column": "city", "to_column": "country", "datatype": "int", "region_map": {"A": "B"}}}}}`,
	} {
		if _, err := Parse(newLog(), []byte(doc)); err == nil {
			t.Fatalf("%v: expected a parse error", name)
		}
	}
}

func newActivePin(rows ...[]interface{}) *record.Table {
	t := record.NewTable("active_pin", "given_name", "last_name_1", "occupation", "incorporation_number", "country", "province_abbreviation")
	for _, r := range rows {
		_ = t.Append(r...)
	}
	return t
}

func TestApply(t *testing.T) {
	rs, err := Parse(newLog(), []byte(ruleDoc))
	if err != nil {
		t.Fatal(err)
	}
	tbl := newActivePin(
		[]interface{}{"JON", "Foo, Bar", "12345", nil, "BC", nil},
		[]interface{}{"?", "smith", "FARMER", nil, "CANADA", "BC"},
		[]interface{}{"***", nil, nil, nil, "WA", nil},
		[]interface{}{"* ?", "o'neil", "BC1234", nil, "bc", nil},
	)
	if err = Apply(newLog(), rs, tbl); err != nil {
		t.Fatal(err)
	}
	expected := []record.Row{
		{"JOHN", "FOO", "12345", "12345", "CANADA", "BC"},
		{"UNKNOWN", "SMITH", "FARMER", nil, "CANADA", "BC"},
		{nil, nil, nil, nil, "USA", "WA"},
		{" ", "O'NEIL", "BC1234", nil, "bc", nil},
	}
	for i := range expected {
		if !reflect.DeepEqual(tbl.Rows[i], expected[i]) {
			t.Fatalf("row %v: expected %v; got %v", i, expected[i], tbl.Rows[i])
		}
	}
}

func TestApplyTrimBeforeUppercase(t *testing.T) {
	rs := &RuleSet{Columns: []ColumnRules{{Column: "last_name_1", Rules: []Rule{TrimAfterComma{}, ToUppercase{}}}}}
	tbl := newActivePin([]interface{}{nil, "Foo, Bar", nil, nil, nil, nil})
	if err := Apply(newLog(), rs, tbl); err != nil {
		t.Fatal(err)
	}
	if got := tbl.Get(0, "last_name_1"); got != "FOO" {
		t.Fatalf("expected FOO; got %v", got)
	}
}

func TestApplyTrimLeavesAbsentValue(t *testing.T) {
	rs := &RuleSet{Columns: []ColumnRules{{Column: "last_name_1", Rules: []Rule{TrimAfterComma{}}}}}
	tbl := newActivePin(
		[]interface{}{"JON", ",Smith", nil, nil, "CA", nil},
		[]interface{}{"JON", nil, nil, nil, "CA", nil},
	)
	if err := Apply(newLog(), rs, tbl); err != nil {
		t.Fatal(err)
	}
	if got := tbl.Get(0, "last_name_1"); got != nil {
		t.Fatalf("expected an absent value; got %q", got)
	}
	if removed := tbl.Dedup(); removed != 1 {
		t.Fatalf("expected the cleaned row to collapse into its duplicate; removed %v", removed)
	}
}

func TestApplyUnknownColumn(t *testing.T) {
	rs := &RuleSet{Columns: []ColumnRules{
		{Column: "given_name", Rules: []Rule{ToUppercase{}}},
		{Column: "nickname", Rules: []Rule{ToUppercase{}}},
	}}
	tbl := newActivePin([]interface{}{"ann", nil, nil, nil, nil, nil})
	if err := Apply(newLog(), rs, tbl); err == nil {
		t.Fatal("expected an error for an unknown column")
	}
	if tbl.Get(0, "given_name") != "ann" {
		t.Fatal("expected no rules to be applied when a column is unknown")
	}
	rs = &RuleSet{Columns: []ColumnRules{{Column: "occupation", Rules: []Rule{SwitchColumnValue{FromColumn: "occupation", ToColumn: "corp", Datatype: "int"}}}}}
	if err := Apply(newLog(), rs, tbl); err == nil {
		t.Fatal("expected an error for an unknown switch target column")
	}
}

func TestHttpFetcher(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/rules.json", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(ruleDoc))
	}).Methods(http.MethodGet)
	r.HandleFunc("/broken.json", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"column_rules": {`))
	}).Methods(http.MethodGet)
	srv := httptest.NewServer(r)
	defer srv.Close()

	rs, err := NewHttpFetcher(newLog(), srv.URL+"/rules.json", srv.Client()).Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.Columns) != 4 {
		t.Fatalf("expected 4 columns; got %v", len(rs.Columns))
	}
	for _, path := range []string{"/missing.json", "/broken.json"} {
		_, err = NewHttpFetcher(newLog(), srv.URL+path, srv.Client()).Fetch(context.Background())
		var rde *RuleDocumentError
		if !errors.As(err, &rde) {
			t.Fatalf("%v: expected RuleDocumentError; got %v", path, err)
		}
	}
	_, err = NewHttpFetcher(newLog(), "http://127.0.0.1:1/rules.json", nil).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected an error for an unreachable server")
	}
}

func TestFileFetcher(t *testing.T) {
	f, err := ioutil.TempFile("", "rules-*.json")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	_, _ = f.WriteString(ruleDoc)
	_ = f.Close()
	rs, err := NewHttpFetcher(newLog(), "file://"+f.Name(), nil).Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rs.Columns[0].Column != "last_name_1" {
		t.Fatalf("unexpected first column %v", rs.Columns[0].Column)
	}
}
