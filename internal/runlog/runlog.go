// Package runlog records sync runs and the pushes that failed during them.
// Failures are kept for operator review and are never retried automatically.
package runlog

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Summary holds the unit counts of a finished run.
type Summary struct {
	Units     int `json:"units"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Run is one row of the run log.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	Kind        string     `json:"kind" yaml:"kind"`
	Status      Status     `json:"status" yaml:"status"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Summary     Summary    `json:"summary" yaml:"summary"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// FailureRecord is a push rejected by the remote store or never delivered.
type FailureRecord struct {
	ID        int64     `json:"id" yaml:"id"`
	RunID     string    `json:"run_id" yaml:"run_id"`
	Kind      string    `json:"kind" yaml:"kind"`
	AGS       string    `json:"ags" yaml:"ags"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	Date      string    `json:"date,omitempty" yaml:"date,omitempty"`
	Error     string    `json:"error" yaml:"error"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Store persists runs and their failures.
type Store interface {
	Start(ctx context.Context, kind string) (string, error)
	Complete(ctx context.Context, runID string, summary Summary) error
	Fail(ctx context.Context, runID string, msg string) error
	RecordFailure(ctx context.Context, runID string, f FailureRecord) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListFailures(ctx context.Context, runID string) ([]FailureRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

const defaultListLimit = 50

// Open connects to the run log selected by driver and applies migrations.
// The "none" driver returns a store that discards everything.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverNone:
		return Nop{}, nil
	case DriverSQLite:
		st, err = NewSQLite(dsn)
	case DriverPostgres:
		st, err = NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("runlog: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// Nop is a Store that records nothing.
type Nop struct{}

func (Nop) Start(context.Context, string) (string, error) { return "", nil }
func (Nop) Complete(context.Context, string, Summary) error { return nil }
func (Nop) Fail(context.Context, string, string) error { return nil }
func (Nop) RecordFailure(context.Context, string, FailureRecord) error { return nil }
func (Nop) ListRuns(context.Context, int) ([]Run, error) { return nil, nil }
func (Nop) ListFailures(context.Context, string) ([]FailureRecord, error) { return nil, nil }
func (Nop) Migrate(context.Context) error { return nil }
func (Nop) Close() error { return nil }

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
