//go:generate mockgen -package mocks -destination mocks/interface.go -source=interface.go
package actions

import (
	"context"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/clean"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/notify"
)

// FolderFetcher makes the latest extract folder available locally.
type FolderFetcher interface {
	Fetch(ctx context.Context) (folder string, localDir string, err error)
}

// RuleFetcher returns the cleaning rules for this run.
type RuleFetcher interface {
	Fetch(ctx context.Context) (*clean.RuleSet, error)
}

// Expirer expires one PIN.
type Expirer interface {
	Expire(ctx context.Context, livePinID string) error
}

// Notifier sends the outcome of the run.
type Notifier interface {
	Notify(ctx context.Context, m notify.Message) error
}

// Archiver copies the run's files to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, folder string, runID string, files []string, manifest interface{}) ([]string, error)
}
