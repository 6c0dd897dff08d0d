package syncer

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/regionsync/internal/model"
	"github.com/sells-group/regionsync/internal/timeseries"
	"github.com/sells-group/regionsync/pkg/casesapi"
)

// SeriesFunc produces the reconstructed series of a region together with
// the remote baseline it was merged with.
type SeriesFunc func(ctx context.Context, region model.Region) (series, remote []model.DayRecord, err error)

// PushHistory reconstructs and pushes the cumulative series of each region.
// A region whose series cannot be built is recorded as a failure and the run
// continues with the next region.
func (s *Syncer) PushHistory(ctx context.Context, regions []model.Region, seriesFn SeriesFunc) (*Result, error) {
	r := s.begin(ctx, string(KindHistory))
	for _, region := range regions {
		if ctx.Err() != nil {
			break
		}

		series, remote, err := seriesFn(ctx, region)
		if err != nil {
			r.fail(ctx, Failure{Kind: KindHistory, AGS: region.AGS, Name: region.DisplayName(), Err: err})
			continue
		}
		s.pushSeries(ctx, r, region, series, remote)
	}
	return r.finish(ctx)
}

func (s *Syncer) pushSeries(ctx context.Context, r *run, region model.Region, series, remote []model.DayRecord) {
	pending := series
	if s.skipUnchanged {
		pending = timeseries.Diff(series, remote)
		for range len(series) - len(pending) {
			r.skip()
		}
	}

	for _, day := range pending {
		if ctx.Err() != nil {
			return
		}
		payload := casesapi.CaseDayPayload{DayRecord: day, LastUpdated: s.now().UTC()}
		if err := s.client.UpsertCaseDay(ctx, region.AGS, payload); err != nil {
			r.fail(ctx, Failure{Kind: KindCases, AGS: region.AGS, Name: region.DisplayName(), Date: day.Date, Err: err})
			continue
		}
		r.ok()
	}

	r.log.Debug("series pushed",
		zap.String("ags", region.AGS),
		zap.Int("days", len(series)),
		zap.Int("pending", len(pending)),
	)
}
