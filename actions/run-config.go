package actions

import (
	"github.com/bcgov/bc-emli-pin-mgmt-etl/helper"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/rdbms/shared"
)

// Expiration back ends.
const (
	ExpireModeAPI    = "api"
	ExpireModeDirect = "direct"
)

// RunConfig holds every setting of the run command.
type RunConfig struct {
	// Source
	InputDir       string `errorTxt:"input-dir"`
	SftpHost       string `errorTxt:"sftp-host" validate:"required_without=InputDir"`
	SftpPort       int    `errorTxt:"sftp-port" validate:"min=1,max=65535"`
	SftpUser       string `errorTxt:"sftp-user" validate:"required_without=InputDir"`
	SftpPassword   string `errorTxt:"sftp-password"`
	SftpKnownHosts string `errorTxt:"sftp-known-hosts" validate:"required_without=InputDir"`
	SftpRemotePath string `errorTxt:"sftp-remote-path" validate:"required_without=InputDir"`
	LocalPath      string `errorTxt:"local-path" validate:"required_without=InputDir"`
	// Target
	Target           shared.DsnConnectionDetails
	TargetSchema     string `errorTxt:"target-schema" validate:"required"`
	BatchSize        int    `errorTxt:"batch-size" validate:"min=1"`
	ValidPidTable    string `errorTxt:"valid-pid-table" validate:"required"`
	ValidPidColumn   string `errorTxt:"valid-pid-column" validate:"required"`
	ProcessedDataDir string `errorTxt:"processed-data-dir" validate:"required"`
	SnapshotGzip     bool   `errorTxt:"snapshot-gzip"`
	// Cleaning
	RulesURL string `errorTxt:"rules-url" validate:"required"`
	// Expiration
	ExpireMode       string `errorTxt:"expire-mode" validate:"oneof=api direct"`
	ExpireAPIURL     string `errorTxt:"expire-api-url" validate:"required_if=ExpireMode api"`
	ExpireAPIKey     string `errorTxt:"expire-api-key" validate:"required_if=ExpireMode api"`
	ExpirationReason string `errorTxt:"expiration-reason" validate:"required"`
	StrictStatus     bool   `errorTxt:"strict-status"`
	// Notification
	NotifyBaseURL    string `errorTxt:"notify-base-url"`
	NotifyAPIKey     string `errorTxt:"notify-api-key" validate:"required_with=NotifyBaseURL"`
	NotifyEmail      string `errorTxt:"notify-email" validate:"required_with=NotifyBaseURL"`
	NotifyTemplateID string `errorTxt:"notify-template-id" validate:"required_with=NotifyBaseURL"`
	// Archive
	ArchiveS3URL    string `errorTxt:"archive-s3-url"`
	ArchiveS3Region string `errorTxt:"archive-s3-region" validate:"required_with=ArchiveS3URL"`
	// General
	LogFolder        string `errorTxt:"log-folder" validate:"required"`
	LogLevel         string `errorTxt:"log-level" validate:"oneof=trace debug info warn warning error"`
	StackDumpOnPanic bool
}

// Validate checks the configuration before any I/O happens.
func (c *RunConfig) Validate() error {
	return helper.ValidateStruct(c)
}
