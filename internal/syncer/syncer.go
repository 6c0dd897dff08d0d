// Package syncer pushes reconciled regions and reconstructed series to the
// remote case store. Pushes run strictly one after another; a failed push is
// logged and recorded, and the run moves on to the next unit.
package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/regionsync/internal/model"
	"github.com/sells-group/regionsync/internal/runlog"
	"github.com/sells-group/regionsync/internal/timeseries"
	"github.com/sells-group/regionsync/pkg/casesapi"
)

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the syncer's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the clock used for last_updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRunLog records runs and failures in st.
func WithRunLog(st runlog.Store) Option {
	return func(s *Syncer) {
		if st != nil {
			s.runs = st
		}
	}
}

// WithSkipUnchanged skips history days the remote store already holds
// with identical values.
func WithSkipUnchanged(skip bool) Option {
	return func(s *Syncer) {
		s.skipUnchanged = skip
	}
}

// Syncer pushes payloads to a casesapi.Client.
type Syncer struct {
	client        casesapi.Client
	log           *zap.Logger
	now           func() time.Time
	runs          runlog.Store
	skipUnchanged bool
}

// New creates a Syncer.
func New(client casesapi.Client, opts ...Option) *Syncer {
	s := &Syncer{
		client: client,
		log:    zap.NewNop(),
		now:    time.Now,
		runs:   runlog.Nop{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// run tracks one sync run: its result and run log bookkeeping.
type run struct {
	s      *Syncer
	kind   string
	log    *zap.Logger
	result *Result
}

func (s *Syncer) begin(ctx context.Context, kind string) *run {
	r := &run{
		s:      s,
		kind:   kind,
		log:    s.log.With(zap.String("run", kind)),
		result: &Result{},
	}
	id, err := s.runs.Start(ctx, kind)
	if err != nil {
		r.log.Warn("run log unavailable", zap.Error(err))
	}
	r.result.RunID = id
	if id != "" {
		r.log = r.log.With(zap.String("run_id", id))
	}
	r.log.Info("sync started")
	return r
}

func (r *run) ok() {
	r.result.Units++
	r.result.Succeeded++
}

func (r *run) skip() {
	r.result.Units++
	r.result.Skipped++
}

func (r *run) fail(ctx context.Context, f Failure) {
	r.result.Units++
	r.result.Failures = append(r.result.Failures, f)
	r.log.Error("push failed",
		zap.String("kind", string(f.Kind)),
		zap.String("ags", f.AGS),
		zap.String("name", f.Name),
		zap.String("date", f.Date),
		zap.Error(f.Err),
	)
	if r.result.RunID == "" {
		return
	}
	if err := r.s.runs.RecordFailure(ctx, r.result.RunID, f.record()); err != nil {
		r.log.Warn("failed to record push failure", zap.Error(err))
	}
}

// finish closes the run. A cancelled context marks the run failed and is
// returned to the caller.
func (r *run) finish(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		r.log.Warn("sync cancelled", zap.Error(err))
		if r.result.RunID != "" {
			if logErr := r.s.runs.Fail(context.WithoutCancel(ctx), r.result.RunID, err.Error()); logErr != nil {
				r.log.Warn("failed to record run failure", zap.Error(logErr))
			}
		}
		return r.result, err
	}

	if r.result.RunID != "" {
		if err := r.s.runs.Complete(ctx, r.result.RunID, r.result.Summary()); err != nil {
			r.log.Warn("failed to record run completion", zap.Error(err))
		}
	}
	r.log.Info("sync complete",
		zap.Int("units", r.result.Units),
		zap.Int("succeeded", r.result.Succeeded),
		zap.Int("failed", r.result.Failed()),
		zap.Int("skipped", r.result.Skipped),
	)
	return r.result, nil
}

// PushRegions creates every region on the remote store.
func (s *Syncer) PushRegions(ctx context.Context, entities []model.UnifiedEntity) (*Result, error) {
	r := s.begin(ctx, string(KindRegion))
	for _, e := range entities {
		if ctx.Err() != nil {
			break
		}
		s.pushRegion(ctx, r, e)
	}
	return r.finish(ctx)
}

// PushCases sends the current case totals of every region as one case day.
func (s *Syncer) PushCases(ctx context.Context, entities []model.UnifiedEntity) (*Result, error) {
	r := s.begin(ctx, string(KindCases))
	for _, e := range entities {
		if ctx.Err() != nil {
			break
		}
		s.pushCases(ctx, r, e)
	}
	return r.finish(ctx)
}

// PushDistribution sends every age/gender bucket of every region.
func (s *Syncer) PushDistribution(ctx context.Context, entities []model.UnifiedEntity) (*Result, error) {
	r := s.begin(ctx, string(KindDistribution))
	for _, e := range entities {
		if ctx.Err() != nil {
			break
		}
		s.pushDistribution(ctx, r, e)
	}
	return r.finish(ctx)
}

// Run pushes region, case day and distribution for each entity in turn.
func (s *Syncer) Run(ctx context.Context, entities []model.UnifiedEntity) (*Result, error) {
	r := s.begin(ctx, "all")
	for _, e := range entities {
		if ctx.Err() != nil {
			break
		}
		s.pushRegion(ctx, r, e)
		s.pushCases(ctx, r, e)
		s.pushDistribution(ctx, r, e)
	}
	return r.finish(ctx)
}

func (s *Syncer) pushRegion(ctx context.Context, r *run, e model.UnifiedEntity) {
	if err := s.client.CreateRegion(ctx, casesapi.NewRegionPayload(e.Region)); err != nil {
		r.fail(ctx, Failure{Kind: KindRegion, AGS: e.Region.AGS, Name: e.Region.DisplayName(), Err: err})
		return
	}
	r.ok()
	r.log.Debug("region pushed", zap.String("ags", e.Region.AGS))
}

func (s *Syncer) pushCases(ctx context.Context, r *run, e model.UnifiedEntity) {
	day := timeseries.Finalize(CaseDay(e))
	payload := casesapi.CaseDayPayload{DayRecord: day, LastUpdated: s.now().UTC()}
	if err := s.client.UpsertCaseDay(ctx, e.Region.AGS, payload); err != nil {
		r.fail(ctx, Failure{Kind: KindCases, AGS: e.Region.AGS, Name: e.Region.DisplayName(), Date: day.Date, Err: err})
		return
	}
	r.ok()
}

func (s *Syncer) pushDistribution(ctx context.Context, r *run, e model.UnifiedEntity) {
	date := dayOf(e)
	for _, entry := range e.Distribution {
		if ctx.Err() != nil {
			return
		}
		payload := casesapi.NewDistributionPayload(entry, date, s.now())
		if err := s.client.UpsertDistribution(ctx, e.Region.AGS, payload); err != nil {
			r.fail(ctx, Failure{Kind: KindDistribution, AGS: e.Region.AGS, Name: e.Region.DisplayName(), Date: date, Err: err})
			continue
		}
		r.ok()
	}
}

// CaseDay maps an entity's current totals to the case day of its
// generation date.
func CaseDay(e model.UnifiedEntity) model.DayRecord {
	return model.DayRecord{
		Date:            dayOf(e),
		InfectedTotal:   e.Data.InfectedTotal,
		DeathsTotal:     e.Data.DeathsTotal,
		IntensiveTotal:  e.Data.IntensiveTotal,
		ImmuneTotal:     e.Data.ImmuneTotal,
		QuarantineTotal: e.Data.QuarantineTotal,
		InfectedPer100k: e.Data.InfectedPer100k,
		DeathRate:       e.Data.DeathRate,
	}
}

func dayOf(e model.UnifiedEntity) string {
	return e.Meta.LastUpdated.UTC().Format(model.DateLayout)
}
