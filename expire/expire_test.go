package expire

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/extract"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	return log
}

type recordingExpirer struct {
	mu   sync.Mutex
	ids  []string
	fail map[string]bool
}

func (r *recordingExpirer) Expire(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	if r.fail[id] {
		return fmt.Errorf("boom %v", id)
	}
	return nil
}

func TestRunEmptySetIsNoop(t *testing.T) {
	db := shared.NewMockConnection()
	exp := &recordingExpirer{}
	r := &Reconciler{Log: testLogger(), DB: db, Schema: "pin", Expirer: exp}
	res, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(db.GetStatements()) != 0 {
		t.Fatalf("expected no statements, got %v", db.GetStatements())
	}
	if len(exp.ids) != 0 || res.Expired != 0 || res.Pins != 0 {
		t.Fatalf("expected no expirations, got %v %+v", exp.ids, res)
	}
}

func TestRunCollectsFailures(t *testing.T) {
	db := shared.NewMockConnection()
	db.QueryFunc = func(query string, args []interface{}) (shared.Rows, error) {
		return shared.NewMockRows([]string{"live_pin_id"}, []interface{}{"a"}, []interface{}{[]byte("b")}, []interface{}{"c"}), nil
	}
	exp := &recordingExpirer{fail: map[string]bool{"b": true}}
	r := &Reconciler{Log: testLogger(), DB: db, Schema: "pin", Expirer: exp}
	cancelled := []extract.TitleKey{{TitleNumber: "T1", District: "VA"}, {TitleNumber: "T2", District: "KA"}}
	res, err := r.Run(context.Background(), cancelled)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(exp.ids, ",") != "a,b,c" {
		t.Fatalf("unexpected expiration order %v", exp.ids)
	}
	if res.CancelledTitles != 2 || res.Pins != 3 || res.Expired != 2 || len(res.Failures) != 1 || res.Failures[0].LivePinID != "b" {
		t.Fatalf("unexpected result %+v", res)
	}
	stmts := db.GetStatements()
	if len(stmts) != 1 {
		t.Fatalf("expected 1 query, got %v", len(stmts))
	}
	expected := `select live_pin_id::text from "pin"."active_pin" where (title_number, land_title_district) in (select * from unnest($1::text[], $2::text[]))`
	if stmts[0].Query != expected {
		t.Fatalf("expected %q, got %q", expected, stmts[0].Query)
	}
	if got := stmts[0].Args[0].([]string); strings.Join(got, ",") != "T1,T2" {
		t.Fatalf("unexpected title numbers %v", got)
	}
	if got := stmts[0].Args[1].([]string); strings.Join(got, ",") != "VA,KA" {
		t.Fatalf("unexpected districts %v", got)
	}
}

func TestRunStrict(t *testing.T) {
	db := shared.NewMockConnection()
	r := &Reconciler{Log: testLogger(), DB: db, Schema: "pin", Strict: true, Expirer: &recordingExpirer{}}
	if _, err := r.Run(context.Background(), []extract.TitleKey{{TitleNumber: "T1", District: "VA"}}); err != nil {
		t.Fatal(err)
	}
	s := db.GetStatements()[0]
	if !strings.HasSuffix(s.Query, " and title_status = $3") || len(s.Args) != 3 || s.Args[2] != "C" {
		t.Fatalf("expected strict status filter, got %q %v", s.Query, s.Args)
	}
}

func TestRunQueryErrorIsFatal(t *testing.T) {
	db := shared.NewMockConnection()
	db.QueryFunc = func(query string, args []interface{}) (shared.Rows, error) {
		return nil, fmt.Errorf("connection reset")
	}
	exp := &recordingExpirer{}
	r := &Reconciler{Log: testLogger(), DB: db, Schema: "pin", Expirer: exp}
	if _, err := r.Run(context.Background(), []extract.TitleKey{{TitleNumber: "T1", District: "VA"}}); err == nil {
		t.Fatal("expected error")
	}
	if len(exp.ids) != 0 {
		t.Fatal("expected no expirations")
	}
}

func TestAPIClient(t *testing.T) {
	var got []expireRequest
	var keys []string
	r := mux.NewRouter()
	r.HandleFunc("/api/pins/expire", func(w http.ResponseWriter, req *http.Request) {
		b, _ := ioutil.ReadAll(req.Body)
		var body expireRequest
		if err := json.Unmarshal(b, &body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		got = append(got, body)
		keys = append(keys, req.Header.Get(HeaderApiKey))
		if body.LivePinID == "bad" {
			http.Error(w, "unknown pin", http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := NewAPIClient(testLogger(), srv.URL+"/api/pins/expire", "secret", "CO", srv.Client(), 5)
	if err := c.Expire(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	err := c.Expire(context.Background(), "bad")
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Fatalf("expected 422 error, got %v", err)
	}
	if len(got) != 2 || got[0].LivePinID != "p1" || got[0].ExpirationReason != "CO" {
		t.Fatalf("unexpected requests %+v", got)
	}
	if keys[0] != "secret" {
		t.Fatalf("expected api key header, got %q", keys[0])
	}
}

func TestAPIClientBreakerOpens(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewAPIClient(testLogger(), srv.URL, "k", "CO", srv.Client(), 2)
	for i := 0; i < 4; i++ {
		_ = c.Expire(context.Background(), fmt.Sprint(i))
	}
	if calls != 2 {
		t.Fatalf("expected the breaker to stop calls after 2 failures, got %v calls", calls)
	}
	if err := c.Expire(context.Background(), "x"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestDirectExpirer(t *testing.T) {
	db := shared.NewMockConnection()
	d := &DirectExpirer{DB: db, Schema: "pin", Reason: "CO"}
	if err := d.Expire(context.Background(), "abc"); err != nil {
		t.Fatal(err)
	}
	s := db.GetStatements()
	if len(s) != 2 {
		t.Fatalf("expected 2 statements, got %v", len(s))
	}
	if s[0].Query != `delete from "pin"."active_pin" where live_pin_id = $1` || s[0].Args[0] != "abc" {
		t.Fatalf("unexpected delete %q", s[0].Query)
	}
	expected := `update "pin"."active_pin_audit_log" set expiration_reason = $2 where log_id = (select log_id from "pin"."active_pin_audit_log" where live_pin_id = $1 order by log_created_at desc, log_id desc limit 1)`
	if s[1].Query != expected || s[1].Args[1] != "CO" {
		t.Fatalf("unexpected update %q %v", s[1].Query, s[1].Args)
	}
}

func TestDirectExpirerDeleteError(t *testing.T) {
	db := shared.NewMockConnection()
	db.ExecFunc = func(query string, args []interface{}) (int64, error) {
		return 0, fmt.Errorf("denied")
	}
	d := &DirectExpirer{DB: db, Schema: "pin", Reason: "CO"}
	if err := d.Expire(context.Background(), "abc"); err == nil {
		t.Fatal("expected error")
	}
	if len(db.GetStatements()) != 1 {
		t.Fatal("expected the audit update to be skipped")
	}
}
