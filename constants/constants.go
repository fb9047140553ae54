package constants

// General

const (
	AppName                    = "pinetl"
	EnvVarPrefix               = "PINETL" // prefixed for environment variables that back CLI flags
	ConfigDir                  = ".pinetl"
	ConfigFileName             = "config.yaml"
	TimeFormatYearSeconds      = "20060102T150405" // used for human readable file names
	TimeFormatYearSecondsRegex = "^[0-9]{8}T[0-9]{6}$"
	TimeFormatYearSecondsTZ    = "20060102T150405-0700"
	TimeFormatNotification     = "2006-01-02 15:04:05 MST"
	LoaderBatchSizeDefault     = 1000
	ConnectionTypePostgres     = "postgres"
	ConnectionTypeMock         = "mockPostgres"
	DefaultSchema              = "public"
)

// Registry codes.

const (
	TitleStatusCancelled  = "C"
	ParcelStatusInactive  = "I"
	PidWidth              = 9
	PidSeparator          = "|"
	ExpirationReasonOwner = "CO" // change of ownership
)

// Target tables and columns.

const (
	TableEtlLog         = "etl_log"
	TableTitleRaw       = "title_raw"
	TableParcelRaw      = "parcel_raw"
	TableTitleParcelRaw = "titleparcel_raw"
	TableTitleOwnerRaw  = "titleowner_raw"
	TableActivePin      = "active_pin"
	TableActivePinAudit = "active_pin_audit_log"
	TableValidPid       = "valid_pid"
	ColumnValidPid      = "pid"
	ColumnEtlJobID      = "etl_job_id"
	ColumnLivePinID     = "live_pin_id"
)

// RawTables lists every table that carries an etl_job_id tag and must be cleaned up after a failed run.
var RawTables = []string{TableTitleRaw, TableParcelRaw, TableTitleParcelRaw, TableTitleOwnerRaw}

// Local snapshot files written to the processed data directory.

const (
	FileActivePinIntact = "active_pin_intact.csv"
	FileActivePin       = "active_pin.csv"
	FileExtension       = ".csv"
)
