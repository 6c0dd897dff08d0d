package syncer

import (
	"fmt"

	"github.com/sells-group/regionsync/internal/runlog"
)

// Kind names the payload type of a push.
type Kind string

const (
	KindRegion       Kind = "region"
	KindCases        Kind = "cases"
	KindDistribution Kind = "distribution"
	// KindHistory marks a region whose series could not be reconstructed.
	KindHistory Kind = "history"
)

// Failure is one unit of work the remote store rejected or never received.
type Failure struct {
	Kind Kind
	AGS  string
	Name string
	Date string
	Err  error
}

func (f Failure) Error() string {
	target := f.AGS
	if f.Name != "" {
		target = fmt.Sprintf("%s (%s)", f.Name, f.AGS)
	}
	if f.Date != "" {
		target += " " + f.Date
	}
	return fmt.Sprintf("push %s %s: %v", f.Kind, target, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

func (f Failure) record() runlog.FailureRecord {
	rec := runlog.FailureRecord{
		Kind: string(f.Kind),
		AGS:  f.AGS,
		Name: f.Name,
		Date: f.Date,
	}
	if f.Err != nil {
		rec.Error = f.Err.Error()
	}
	return rec
}

// Result summarizes a sync run. Partial success is the normal outcome.
type Result struct {
	RunID     string
	Units     int
	Succeeded int
	Skipped   int
	Failures  []Failure
}

// Failed returns the number of failed units.
func (r *Result) Failed() int {
	return len(r.Failures)
}

// Summary converts the result to its run log form.
func (r *Result) Summary() runlog.Summary {
	return runlog.Summary{
		Units:     r.Units,
		Succeeded: r.Succeeded,
		Failed:    r.Failed(),
		Skipped:   r.Skipped,
	}
}
