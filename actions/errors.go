package actions

import (
	"errors"
	"fmt"
)

// Stage names used in StageError.
const (
	StageLedger    = "ledger"
	StageTransport = "transport"
	StageExtract   = "extract"
	StageResolve   = "resolve"
	StageClean     = "clean"
	StageLoad      = "load"
	StageExpire    = "expire"
)

// ErrFolderAlreadyProcessed is the reason a run is cancelled.
var ErrFolderAlreadyProcessed = errors.New("folder has already been processed")

// StageError wraps the error that stopped a run with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
