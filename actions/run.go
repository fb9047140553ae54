package actions

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/clean"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/expire"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/extract"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/file"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/ledger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/notify"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/record"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/resolve"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/stats"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/writer"
)

// Pipeline runs one job. Every collaborator is supplied by the caller.
type Pipeline struct {
	Log      logger.Logger
	Cfg      *RunConfig
	DB       shared.Connector
	Source   FolderFetcher
	Rules    RuleFetcher
	Expirer  Expirer
	Notifier Notifier
	Archiver Archiver // optional
	RunID    string
	LogFile  string // attached to the notification when set
	Now      func() time.Time
}

// Outcome describes a finished run.
type Outcome struct {
	Status       ledger.Status
	JobID        int64
	Folder       string
	StartTime    time.Time
	Loads        []writer.Result
	Expiration   expire.Result
	Files        []string // extract files and snapshots written by the run
	Err          error
	NotifyErr    error
	ArchivedKeys []string
	Stages       []stats.Stats
}

// Message renders the outcome for the notification.
func (o *Outcome) Message() string {
	var sb strings.Builder
	switch o.Status {
	case ledger.StatusCancelled:
		sb.WriteString(fmt.Sprintf("Folder %v has already been processed; nothing was loaded.", o.Folder))
	case ledger.StatusSuccess:
		sb.WriteString(fmt.Sprintf("Folder %v processed successfully.", o.Folder))
	default:
		sb.WriteString(fmt.Sprintf("Run failed: %v", o.Err))
	}
	for _, l := range o.Loads {
		sb.WriteString(fmt.Sprintf("\n%v: rows = %v; inserted = %v; already present = %v", l.Table, l.Rows, l.Inserted, l.Skipped()))
	}
	if o.Status == ledger.StatusSuccess {
		sb.WriteString("\n" + o.Expiration.String())
		for _, f := range o.Expiration.Failures {
			sb.WriteString(fmt.Sprintf("\nfailed to expire PIN %v: %v", f.LivePinID, f.Err))
		}
	}
	return sb.String()
}

// Run executes the stages in order, records the result in the ledger and sends exactly one notification.
// A returned error means the run failed. A cancelled run returns no error.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	if p.Now == nil {
		p.Now = time.Now
	}
	o := &Outcome{StartTime: p.Now()}
	led := ledger.New(p.Log, p.DB, p.Cfg.TargetSchema)
	sm := stats.NewStatsManager(p.Log, nil)
	err := p.run(ctx, led, sm, o)
	o.Stages = sm.GetStats()
	switch {
	case errors.Is(err, ErrFolderAlreadyProcessed):
		o.Status = ledger.StatusCancelled
		o.Err = err
		if cerr := led.Cancel(ctx); cerr != nil {
			p.Log.Error("error cancelling job: ", cerr)
		}
		err = nil
	case err != nil:
		o.Status = ledger.StatusFailure
		o.Err = err
		p.Log.Error(err)
		if ferr := led.Fail(context.Background()); ferr != nil { // roll back even if ctx was cancelled.
			p.Log.Error("error recording failed job: ", ferr)
		}
	default:
		if err = led.Complete(ctx); err != nil {
			err = stageError(StageLedger, err)
			o.Status = ledger.StatusFailure
			o.Err = err
			p.Log.Error(err)
			if ferr := led.Fail(context.Background()); ferr != nil {
				p.Log.Error("error recording failed job: ", ferr)
			}
		} else {
			o.Status = ledger.StatusSuccess
		}
	}
	o.JobID = led.JobID
	p.Log.Info("run finished: status = ", string(o.Status))
	p.archive(ctx, o)
	p.notify(o)
	return o, err
}

func (p *Pipeline) run(ctx context.Context, led *ledger.Ledger, sm *stats.StatsManager, o *Outcome) error {
	if err := led.Start(ctx); err != nil {
		return stageError(StageLedger, err)
	}
	folder, dir, err := p.Source.Fetch(ctx)
	if err != nil {
		return stageError(StageTransport, err)
	}
	o.Folder = folder
	p.Log.Info("processing folder ", folder, " in ", dir)
	prior, err := led.PriorStatus(ctx, folder)
	if err != nil {
		return stageError(StageLedger, err)
	}
	if prior == ledger.StatusSuccess {
		p.Log.Warn("folder ", folder, " was processed by an earlier job; cancelling")
		return ErrFolderAlreadyProcessed
	}
	if err = led.SetFolder(ctx, folder); err != nil {
		return stageError(StageLedger, err)
	}
	if files, err := extract.FindFiles(dir); err == nil {
		for _, k := range extract.AllKinds {
			o.Files = append(o.Files, files[k])
		}
	}
	loader := writer.NewLoader(p.Log, p.DB, p.Cfg.TargetSchema, p.Cfg.BatchSize)

	// Extract.
	w := sm.Start(StageExtract)
	validTable := rdbms.NewSchemaTable("", p.Cfg.ValidPidTable).WithDefaultSchema(p.Cfg.TargetSchema)
	valid, err := extract.LoadValidPids(ctx, p.Log, p.DB, validTable, p.Cfg.ValidPidColumn)
	if err != nil {
		return stageError(StageExtract, err)
	}
	e, err := extract.Load(p.Log, dir, valid)
	if err != nil {
		return stageError(StageExtract, err)
	}
	w.Stop(len(valid))
	w = sm.Start(StageLoad + " raw")
	rawRows := 0
	for _, t := range e.RawTables(led.JobID) {
		if err = p.snapshot(t, t.Name+constants.FileExtension, o); err != nil {
			return stageError(StageExtract, err)
		}
		res, err := loader.Load(ctx, t, writer.RawKeyColumns(t))
		if err != nil {
			return stageError(StageLoad, err)
		}
		o.Loads = append(o.Loads, res)
		rawRows += res.Rows
	}
	w.Stop(rawRows)

	// Resolve.
	w = sm.Start(StageResolve)
	pins := resolve.Resolve(p.Log, e)
	if err = p.snapshot(pins, constants.FileActivePinIntact, o); err != nil {
		return stageError(StageResolve, err)
	}

	w.Stop(pins.Len())

	// Clean.
	w = sm.Start(StageClean)
	rules, err := p.Rules.Fetch(ctx)
	if err != nil {
		return stageError(StageClean, err)
	}
	if err = clean.Apply(p.Log, rules, pins); err != nil {
		return stageError(StageClean, err)
	}
	pins.DropColumns(resolve.ScratchColumns...)
	if n := pins.Dedup(); n > 0 {
		p.Log.Info("removed ", n, " duplicate rows created by cleaning")
	}
	if err = p.snapshot(pins, constants.FileActivePin, o); err != nil {
		return stageError(StageClean, err)
	}

	w.Stop(pins.Len())

	// Load.
	w = sm.Start(StageLoad)
	res, err := loader.Load(ctx, pins, resolve.KeyColumns)
	if err != nil {
		return stageError(StageLoad, err)
	}
	o.Loads = append(o.Loads, res)
	w.Stop(res.Rows)

	// Expire.
	w = sm.Start(StageExpire)
	r := &expire.Reconciler{Log: p.Log, DB: p.DB, Schema: p.Cfg.TargetSchema, Strict: p.Cfg.StrictStatus, Expirer: p.Expirer}
	if o.Expiration, err = r.Run(ctx, e.CancelledTitles()); err != nil {
		return stageError(StageExpire, err)
	}
	w.Stop(o.Expiration.Pins)
	return nil
}

func (p *Pipeline) snapshot(t *record.Table, name string, o *Outcome) error {
	f, err := file.WriteTable(p.Log, p.Cfg.ProcessedDataDir, name, t, p.Cfg.SnapshotGzip)
	if err != nil {
		return err
	}
	o.Files = append(o.Files, f)
	return nil
}

// archive copies the run's files and log. Failures are logged only.
func (p *Pipeline) archive(ctx context.Context, o *Outcome) {
	if p.Archiver == nil || o.Folder == "" {
		return
	}
	files := append([]string(nil), o.Files...)
	if p.LogFile != "" {
		files = append(files, p.LogFile)
	}
	manifest := map[string]interface{}{
		"jobId":     o.JobID,
		"folder":    o.Folder,
		"status":    string(o.Status),
		"startTime": o.StartTime.Format(time.RFC3339),
		"loads":     o.Loads,
		"expired":   o.Expiration.Expired,
		"failed":    len(o.Expiration.Failures),
		"stages":    o.Stages,
	}
	keys, err := p.Archiver.Archive(ctx, o.Folder, p.RunID, files, manifest)
	if err != nil {
		p.Log.Error("error archiving run files (the run outcome is unchanged): ", err)
	}
	o.ArchivedKeys = keys
}

// notify sends the single outcome notification. Failures are logged only.
func (p *Pipeline) notify(o *Outcome) {
	m := notify.Message{StartTime: o.StartTime, Status: string(o.Status), Text: o.Message()}
	if p.LogFile != "" {
		m.Attachment = filepath.Clean(p.LogFile)
	}
	// Use a fresh context so the notification is sent even after an interrupt.
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if o.NotifyErr = p.Notifier.Notify(ctx, m); o.NotifyErr != nil {
		p.Log.Error("error sending notification: ", o.NotifyErr)
	}
}
