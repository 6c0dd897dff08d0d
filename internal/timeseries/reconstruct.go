// Package timeseries rebuilds cumulative per-day series from raw delta
// reports and merges them with the series already held by the remote store.
package timeseries

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regionsync/internal/model"
)

// Delta is the summed new cases and deaths of one calendar day.
type Delta struct {
	Date   string
	Cases  int64
	Deaths int64
}

// DailyDeltas collapses reports to one delta per UTC day, discarding the
// age-group and gender buckets. The result is sorted by date ascending.
func DailyDeltas(reports []model.Report) []Delta {
	byDay := make(map[string]*Delta)
	for _, r := range reports {
		day := r.Day()
		d, ok := byDay[day]
		if !ok {
			d = &Delta{Date: day}
			byDay[day] = d
		}
		d.Cases += r.CasesNew
		d.Deaths += r.DeathsNew
	}

	out := make([]Delta, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	// YYYY-MM-DD sorts chronologically as a string.
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Accumulate prefix-sums sorted deltas into a cumulative series.
func Accumulate(deltas []Delta) []model.DayRecord {
	out := make([]model.DayRecord, 0, len(deltas))
	var cases, deaths int64
	for _, d := range deltas {
		cases += d.Cases
		deaths += d.Deaths
		out = append(out, model.DayRecord{
			Date:          d.Date,
			InfectedTotal: cases,
			DeathsTotal:   deaths,
		})
	}
	return out
}

// ExcludeToday drops the entry for the calendar day of now (UTC); same-day
// counts may still be revised upstream.
func ExcludeToday(series []model.DayRecord, now time.Time) []model.DayRecord {
	today := now.UTC().Format(model.DateLayout)
	out := make([]model.DayRecord, 0, len(series))
	for _, rec := range series {
		if rec.Date == today {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// WithIncidence sets InfectedPer100k from the region population. Records
// keep their value when the population is unknown.
func WithIncidence(rec model.DayRecord, population int64) model.DayRecord {
	if population > 0 && rec.InfectedTotal > 0 {
		rec.InfectedPer100k = float64(rec.InfectedTotal) * 100000 / float64(population)
	}
	return rec
}

// Finalize zeroes rate fields that have no cumulative total to divide by so
// they are omitted from the wire payload.
func Finalize(rec model.DayRecord) model.DayRecord {
	if rec.InfectedTotal <= 0 {
		rec.DeathRate = 0
		rec.InfectedPer100k = 0
	}
	return rec
}

// Baseline reads the series currently persisted for a region.
type Baseline interface {
	ListCaseDays(ctx context.Context, ags string) ([]model.DayRecord, error)
}

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithLogger sets the reconstructor's logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconstructor) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock sets the clock deciding which day is "today".
func WithClock(now func() time.Time) Option {
	return func(r *Reconstructor) {
		if now != nil {
			r.now = now
		}
	}
}

// Reconstructor turns delta reports into a publishable cumulative series.
type Reconstructor struct {
	baseline Baseline
	log      *zap.Logger
	now      func() time.Time
}

// NewReconstructor creates a Reconstructor. A nil baseline skips the remote
// merge.
func NewReconstructor(baseline Baseline, opts ...Option) *Reconstructor {
	r := &Reconstructor{
		baseline: baseline,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Series reconstructs the cumulative series of one region. It returns the
// merged series and the remote baseline it was merged with.
func (r *Reconstructor) Series(ctx context.Context, ags string, reports []model.Report, population int64) ([]model.DayRecord, []model.DayRecord, error) {
	if len(reports) == 0 {
		r.log.Warn("no reports for region, series is empty",
			zap.String("ags", ags),
		)
	}

	series := Accumulate(DailyDeltas(reports))
	series = ExcludeToday(series, r.now())
	for i := range series {
		series[i] = WithIncidence(series[i], population)
	}

	var remote []model.DayRecord
	if r.baseline != nil {
		var err error
		remote, err = r.baseline.ListCaseDays(ctx, ags)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "timeseries: baseline for %s", ags)
		}
		series = MergeRemote(series, remote)
	}

	for i := range series {
		series[i] = Finalize(series[i])
	}

	r.log.Debug("series reconstructed",
		zap.String("ags", ags),
		zap.Int("reports", len(reports)),
		zap.Int("days", len(series)),
		zap.Int("remote_days", len(remote)),
	)
	return series, remote, nil
}
