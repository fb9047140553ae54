package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/actions"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/aws/s3"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/clean"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/config"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/expire"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/ledger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/notify"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/transport"
	"github.com/spf13/cobra"
)

const (
	expireBreakerMaxFailures = 5
	sftpDialTimeout          = 30 * time.Second
)

var runCfg = actions.RunConfig{}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the latest land title extract",
	Long: `Fetch the latest extract folder, load the raw tables, build and clean the Active PIN records,
load them into active_pin and expire the PINs of cancelled titles.

The outcome is recorded in etl_log and sent by email when GC Notify is configured.
A folder that already has a successful run is skipped and the run is recorded as cancelled.
The command exits non-zero when the run fails.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfigFile()
		if err != nil {
			return err
		}
		return applyFlagDefaults(cmd.Flags(), c)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		runCfg.StackDumpOnPanic = stackDumpOnPanic
		return runPipeline(ctx, &runCfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd, &runCfg)
}

func addRunFlags(c *cobra.Command, cfg *actions.RunConfig) {
	switches.addFlag(c, &cfg.InputDir, "input-dir", "")
	switches.addFlag(c, &cfg.SftpHost, "sftp-host", "")
	switches.addFlag(c, &cfg.SftpPort, "sftp-port", "22")
	switches.addFlag(c, &cfg.SftpUser, "sftp-user", "")
	switches.addFlag(c, &cfg.SftpPassword, "sftp-password", "")
	switches.addFlag(c, &cfg.SftpKnownHosts, "sftp-known-hosts", "~/.ssh/known_hosts")
	switches.addFlag(c, &cfg.SftpRemotePath, "sftp-remote-path", "/")
	switches.addFlag(c, &cfg.LocalPath, "local-path", "./data/raw")
	switches.addFlag(c, &cfg.Target.Dsn, "target-dsn", "")
	switches.addFlag(c, &cfg.TargetSchema, "target-schema", constants.DefaultSchema)
	switches.addFlag(c, &cfg.BatchSize, "batch-size", fmt.Sprintf("%v", constants.LoaderBatchSizeDefault))
	switches.addFlag(c, &cfg.ValidPidTable, "valid-pid-table", constants.TableValidPid)
	switches.addFlag(c, &cfg.ValidPidColumn, "valid-pid-column", constants.ColumnValidPid)
	switches.addFlag(c, &cfg.ProcessedDataDir, "processed-data-dir", "./data/processed")
	switches.addFlag(c, &cfg.SnapshotGzip, "snapshot-gzip", "false")
	switches.addFlag(c, &cfg.RulesURL, "rules-url", "")
	switches.addFlag(c, &cfg.ExpireMode, "expire-mode", actions.ExpireModeAPI)
	switches.addFlag(c, &cfg.ExpireAPIURL, "expire-api-url", "")
	switches.addFlag(c, &cfg.ExpireAPIKey, "expire-api-key", "")
	switches.addFlag(c, &cfg.ExpirationReason, "expiration-reason", constants.ExpirationReasonOwner)
	switches.addFlag(c, &cfg.StrictStatus, "strict-status", "false")
	switches.addFlag(c, &cfg.NotifyBaseURL, "notify-base-url", "")
	switches.addFlag(c, &cfg.NotifyAPIKey, "notify-api-key", "")
	switches.addFlag(c, &cfg.NotifyEmail, "notify-email", "")
	switches.addFlag(c, &cfg.NotifyTemplateID, "notify-template-id", "")
	switches.addFlag(c, &cfg.ArchiveS3URL, "archive-s3-url", "")
	switches.addFlag(c, &cfg.ArchiveS3Region, "archive-s3-region", "")
	switches.addFlag(c, &cfg.LogFolder, "log-folder", "./logs")
	switches.addFlag(c, &cfg.LogLevel, "log-level", "info")
}

// runPipeline wires the run's dependencies from cfg and processes one extract folder.
func runPipeline(ctx context.Context, cfg *actions.RunConfig) error {
	start := time.Now()
	if err := cfg.Validate(); err != nil {
		notifyStartupFailure(cfg, start, err)
		return err
	}
	knownHosts, err := config.ExpandPath(cfg.SftpKnownHosts)
	if err != nil {
		notifyStartupFailure(cfg, start, err)
		return err
	}
	cfg.SftpKnownHosts = knownHosts
	cfg.Target.Schema = cfg.TargetSchema
	log, err := logger.NewRunLogger(constants.AppName, cfg.LogLevel, cfg.StackDumpOnPanic, cfg.LogFolder, start)
	if err != nil {
		notifyStartupFailure(cfg, start, err)
		return err
	}
	defer func() {
		_ = log.Close()
	}()
	notifier := newNotifier(log, cfg)
	db, err := rdbms.OpenDbConnection(ctx, log, &cfg.Target)
	if err != nil { // there is no ledger to write to, so report the failure directly.
		err = &actions.StageError{Stage: actions.StageLedger, Err: err}
		log.Error(err)
		nctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if nerr := notifier.Notify(nctx, notify.Message{
			StartTime:  start,
			Status:     string(ledger.StatusFailure),
			Text:       fmt.Sprintf("The ETL run failed before it could be recorded: %v", err),
			Attachment: log.FilePath,
		}); nerr != nil {
			log.Error("error sending notification: ", nerr)
		}
		return err
	}
	defer db.Close()
	p := &actions.Pipeline{
		Log:      log,
		Cfg:      cfg,
		DB:       db,
		Source:   newSource(log, cfg),
		Rules:    clean.NewHttpFetcher(log, cfg.RulesURL, nil),
		Expirer:  newExpirer(log, cfg, db),
		Notifier: notifier,
		RunID:    log.RunID,
		LogFile:  log.FilePath,
		Now:      func() time.Time { return start },
	}
	if cfg.ArchiveS3URL != "" {
		if p.Archiver, err = newArchiver(log, cfg); err != nil { // archiving never changes the outcome.
			log.Error("archive disabled: ", err)
		}
	}
	_, err = p.Run(ctx)
	return err
}

// notifyStartupFailure reports a run that stopped before its run log existed.
// Nothing is sent unless every GC Notify setting is present.
func notifyStartupFailure(cfg *actions.RunConfig, start time.Time, cause error) {
	if cfg.NotifyBaseURL == "" || cfg.NotifyAPIKey == "" || cfg.NotifyEmail == "" || cfg.NotifyTemplateID == "" {
		return
	}
	log := logger.NewLogger(constants.AppName, "info", cfg.StackDumpOnPanic)
	n := notify.NewGCNotify(log, cfg.NotifyBaseURL, cfg.NotifyAPIKey, cfg.NotifyEmail, cfg.NotifyTemplateID, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := n.Notify(ctx, notify.Message{
		StartTime: start,
		Status:    string(ledger.StatusFailure),
		Text:      fmt.Sprintf("The ETL run failed before it started: %v", cause),
	}); err != nil {
		log.Error("error sending notification: ", err)
	}
}

func newSource(log logger.Logger, cfg *actions.RunConfig) actions.FolderFetcher {
	if cfg.InputDir != "" {
		return &transport.LocalFetcher{Dir: cfg.InputDir}
	}
	return &transport.SftpFetcher{Log: log, Cfg: transport.SftpConfig{
		Host:           cfg.SftpHost,
		Port:           cfg.SftpPort,
		User:           cfg.SftpUser,
		Password:       cfg.SftpPassword,
		KnownHostsFile: cfg.SftpKnownHosts,
		RemotePath:     cfg.SftpRemotePath,
		LocalPath:      cfg.LocalPath,
		Timeout:        sftpDialTimeout,
	}}
}

func newExpirer(log logger.Logger, cfg *actions.RunConfig, db shared.Connector) actions.Expirer {
	if cfg.ExpireMode == actions.ExpireModeDirect {
		return &expire.DirectExpirer{DB: db, Schema: cfg.TargetSchema, Reason: cfg.ExpirationReason}
	}
	return expire.NewAPIClient(log, cfg.ExpireAPIURL, cfg.ExpireAPIKey, cfg.ExpirationReason, nil, expireBreakerMaxFailures)
}

func newNotifier(log logger.Logger, cfg *actions.RunConfig) actions.Notifier {
	if cfg.NotifyBaseURL == "" {
		return &notify.LogNotifier{Log: log}
	}
	return notify.NewGCNotify(log, cfg.NotifyBaseURL, cfg.NotifyAPIKey, cfg.NotifyEmail, cfg.NotifyTemplateID, nil)
}

func newArchiver(log logger.Logger, cfg *actions.RunConfig) (actions.Archiver, error) {
	bucket, err := s3.ParseDSN(cfg.ArchiveS3URL, cfg.ArchiveS3Region)
	if err != nil {
		return nil, err
	}
	client, err := s3.NewBasicClient(bucket.Name, bucket.Region, bucket.Prefix)
	if err != nil {
		return nil, err
	}
	return &s3.Archiver{Log: log, Client: client}, nil
}
