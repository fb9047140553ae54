package ledger_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/ledger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("Ledger", func() {
	var (
		db  *shared.MockConnection
		l   *ledger.Ledger
		ctx context.Context
	)
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)

	BeforeEach(func() {
		ctx = context.Background()
		db = shared.NewMockConnection()
		db.QueryFunc = func(query string, args []interface{}) (shared.Rows, error) {
			if strings.Contains(query, "returning job_id") {
				return shared.NewMockRows([]string{"job_id"}, []interface{}{int64(42)}), nil
			}
			return shared.NewMockRows([]string{"status"}), nil
		}
		l = ledger.New(log, db, "pin")
	})

	It("Should start a job in progress", func() {
		Expect(l.Start(ctx)).To(Succeed())
		Expect(l.JobID).To(Equal(int64(42)))
		Expect(l.Status).To(Equal(ledger.StatusInProgress))
		s := db.GetStatements()[0]
		Expect(s.Query).To(Equal(`insert into "pin"."etl_log" (status) values ($1) returning job_id`))
		Expect(s.Args).To(Equal([]interface{}{"In Progress"}))
	})

	It("Should report no prior status for a new folder", func() {
		Expect(l.Start(ctx)).To(Succeed())
		st, err := l.PriorStatus(ctx, "20240417")
		Expect(err).ToNot(HaveOccurred())
		Expect(st).To(Equal(ledger.StatusNone))
	})

	It("Should report a prior success", func() {
		db.QueryFunc = func(query string, args []interface{}) (shared.Rows, error) {
			if strings.Contains(query, "returning job_id") {
				return shared.NewMockRows([]string{"job_id"}, []interface{}{int64(7)}), nil
			}
			Expect(query).To(ContainSubstring("order by (status = $3) desc"))
			Expect(args).To(Equal([]interface{}{"20240417", int64(7), "Success"}))
			return shared.NewMockRows([]string{"status"}, []interface{}{"Success"}), nil
		}
		Expect(l.Start(ctx)).To(Succeed())
		st, err := l.PriorStatus(ctx, "20240417")
		Expect(err).ToNot(HaveOccurred())
		Expect(st).To(Equal(ledger.StatusSuccess))
	})

	It("Should complete and then refuse to leave the terminal state", func() {
		Expect(l.Start(ctx)).To(Succeed())
		Expect(l.SetFolder(ctx, "20240417")).To(Succeed())
		Expect(l.Complete(ctx)).To(Succeed())
		Expect(l.Status).To(Equal(ledger.StatusSuccess))
		Expect(l.Fail(ctx)).To(MatchError(ledger.ErrTerminalState))
		Expect(l.Cancel(ctx)).To(MatchError(ledger.ErrTerminalState))
		Expect(l.SetFolder(ctx, "other")).To(MatchError(ledger.ErrTerminalState))
		Expect(l.Status).To(Equal(ledger.StatusSuccess))
	})

	It("Should cancel a job", func() {
		Expect(l.Start(ctx)).To(Succeed())
		Expect(l.Cancel(ctx)).To(Succeed())
		s := db.GetStatements()
		last := s[len(s)-1]
		Expect(last.Query).To(Equal(`update "pin"."etl_log" set status = $1, updated_at = now() where job_id = $2`))
		Expect(last.Args).To(Equal([]interface{}{"Cancelled", int64(42)}))
	})

	It("Should delete job rows from every raw table on failure", func() {
		Expect(l.Start(ctx)).To(Succeed())
		Expect(l.Fail(ctx)).To(Succeed())
		var deletes []string
		for _, s := range db.GetStatements() {
			if strings.HasPrefix(s.Query, "delete") {
				deletes = append(deletes, s.Query)
				Expect(s.Args).To(Equal([]interface{}{int64(42)}))
			}
		}
		Expect(deletes).To(Equal([]string{
			`delete from "pin"."title_raw" where "etl_job_id" = $1`,
			`delete from "pin"."parcel_raw" where "etl_job_id" = $1`,
			`delete from "pin"."titleparcel_raw" where "etl_job_id" = $1`,
			`delete from "pin"."titleowner_raw" where "etl_job_id" = $1`,
		}))
		Expect(l.Status).To(Equal(ledger.StatusFailure))
	})

	It("Should still mark the job failed when a delete fails", func() {
		db.ExecFunc = func(query string, args []interface{}) (int64, error) {
			if strings.Contains(query, "parcel_raw") {
				return 0, fmt.Errorf("lock timeout")
			}
			return 1, nil
		}
		Expect(l.Start(ctx)).To(Succeed())
		err := l.Fail(ctx)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("lock timeout"))
		Expect(l.Status).To(Equal(ledger.StatusFailure))
	})

	It("Should insert a bare failure row without a job id", func() {
		Expect(l.Fail(ctx)).To(Succeed())
		s := db.GetStatements()
		Expect(s).To(HaveLen(1))
		Expect(s[0].Query).To(Equal(`insert into "pin"."etl_log" (status) values ($1)`))
		Expect(s[0].Args).To(Equal([]interface{}{"Failure"}))
	})
})
