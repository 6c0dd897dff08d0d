package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regionsync/internal/model"
	"github.com/sells-group/regionsync/internal/runlog"
	"github.com/sells-group/regionsync/pkg/casesapi"
)

var fixedNow = time.Date(2020, 4, 20, 8, 0, 0, 0, time.UTC)

type call struct {
	op  string
	ags string
	day string
}

// fakeClient records calls and fails the ones listed in failOn.
type fakeClient struct {
	calls  []call
	cases  []casesapi.CaseDayPayload
	dists  []casesapi.DistributionPayload
	failOn map[call]bool
	cancel context.CancelFunc
}

func (f *fakeClient) result(c call) error {
	f.calls = append(f.calls, c)
	if f.cancel != nil && len(f.calls) == 1 {
		f.cancel()
	}
	if f.failOn[c] {
		return &casesapi.APIError{StatusCode: 500, Status: "500 Internal Server Error", Body: "boom"}
	}
	return nil
}

func (f *fakeClient) CreateRegion(_ context.Context, r casesapi.RegionPayload) error {
	return f.result(call{op: "region", ags: r.AGS})
}

func (f *fakeClient) UpsertCaseDay(_ context.Context, ags string, d casesapi.CaseDayPayload) error {
	f.cases = append(f.cases, d)
	return f.result(call{op: "cases", ags: ags, day: d.Date})
}

func (f *fakeClient) UpsertDistribution(_ context.Context, ags string, d casesapi.DistributionPayload) error {
	f.dists = append(f.dists, d)
	return f.result(call{op: "distribution", ags: ags, day: d.Date})
}

func (f *fakeClient) ListCaseDays(context.Context, string) ([]model.DayRecord, error) {
	return nil, nil
}

func entity(ags, name string, cases int64, dist ...model.DistributionEntry) model.UnifiedEntity {
	return model.UnifiedEntity{
		Meta:         model.Meta{LastUpdated: fixedNow},
		Region:       model.Region{AGS: ags, Name: name},
		Data:         model.CaseMetrics{InfectedTotal: cases},
		Distribution: dist,
	}
}

func newTestSyncer(client casesapi.Client, opts ...Option) *Syncer {
	return New(client, append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func TestPushRegions_ContinuesPastFailures(t *testing.T) {
	client := &fakeClient{failOn: map[call]bool{{op: "region", ags: "05370"}: true}}
	s := newTestSyncer(client)

	res, err := s.PushRegions(context.Background(), []model.UnifiedEntity{
		entity("01001", "SK Flensburg", 1),
		entity("05370", "LK Heinsberg", 2),
		entity("09181", "LK Landsberg", 3),
	})
	require.NoError(t, err)

	assert.Len(t, client.calls, 3)
	assert.Equal(t, 3, res.Units)
	assert.Equal(t, 2, res.Succeeded)
	require.Len(t, res.Failures, 1)
	f := res.Failures[0]
	assert.Equal(t, KindRegion, f.Kind)
	assert.Equal(t, "05370", f.AGS)
	assert.Equal(t, "LK Heinsberg", f.Name)

	var apiErr *casesapi.APIError
	require.ErrorAs(t, f, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Contains(t, f.Error(), "push region LK Heinsberg (05370)")
}

func TestPushCases_Payload(t *testing.T) {
	client := &fakeClient{}
	s := newTestSyncer(client)

	e := entity("05370", "LK Heinsberg", 0)
	e.Data.DeathRate = 3.2
	e.Data.IntensiveTotal = 4

	_, err := s.PushCases(context.Background(), []model.UnifiedEntity{e, entity("01001", "", 10)})
	require.NoError(t, err)
	require.Len(t, client.cases, 2)

	first := client.cases[0]
	assert.Equal(t, "2020-04-20", first.Date)
	assert.Zero(t, first.DeathRate, "rates need an infected total")
	assert.Equal(t, int64(4), first.IntensiveTotal)
	assert.Equal(t, fixedNow, first.LastUpdated)
	assert.Equal(t, int64(10), client.cases[1].InfectedTotal)
}

func TestPushDistribution_EachBucket(t *testing.T) {
	client := &fakeClient{}
	s := newTestSyncer(client)

	e := entity("05370", "LK Heinsberg", 5,
		model.DistributionEntry{Gender: "M", AgeGroup: "A15-A34", InfectedTotal: 3},
		model.DistributionEntry{InfectedTotal: 2},
	)
	res, err := s.PushDistribution(context.Background(), []model.UnifiedEntity{e, entity("01001", "", 1)})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Units)
	require.Len(t, client.dists, 2)
	assert.Equal(t, casesapi.UnknownBucket, client.dists[1].Gender)
	assert.Equal(t, "2020-04-20", client.dists[0].Date)
}

func TestRun_OrderPerEntity(t *testing.T) {
	client := &fakeClient{failOn: map[call]bool{{op: "cases", ags: "01001", day: "2020-04-20"}: true}}
	s := newTestSyncer(client)

	res, err := s.Run(context.Background(), []model.UnifiedEntity{
		entity("01001", "SK Flensburg", 1, model.DistributionEntry{Gender: "W", AgeGroup: "A80+"}),
		entity("05370", "LK Heinsberg", 2),
	})
	require.NoError(t, err)

	assert.Equal(t, []call{
		{op: "region", ags: "01001"},
		{op: "cases", ags: "01001", day: "2020-04-20"},
		{op: "distribution", ags: "01001", day: "2020-04-20"},
		{op: "region", ags: "05370"},
		{op: "cases", ags: "05370", day: "2020-04-20"},
	}, client.calls)
	assert.Equal(t, 5, res.Units)
	assert.Equal(t, 4, res.Succeeded)
	assert.Equal(t, 1, res.Failed())
}

func TestRun_CancelStopsBetweenUnits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{cancel: cancel}
	s := newTestSyncer(client)

	res, err := s.PushRegions(ctx, []model.UnifiedEntity{
		entity("01001", "", 1),
		entity("01002", "", 1),
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, client.calls, 1)
	assert.Equal(t, 1, res.Units)
}

func TestRunLogRecordsFailures(t *testing.T) {
	st, err := runlog.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	client := &fakeClient{failOn: map[call]bool{{op: "region", ags: "05370"}: true}}
	s := newTestSyncer(client, WithRunLog(st))

	res, err := s.PushRegions(context.Background(), []model.UnifiedEntity{
		entity("05370", "LK Heinsberg", 1),
		entity("09181", "LK Landsberg", 1),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	runs, err := st.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runlog.StatusComplete, runs[0].Status)
	assert.Equal(t, runlog.Summary{Units: 2, Succeeded: 1, Failed: 1}, runs[0].Summary)

	failures, err := st.ListFailures(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "05370", failures[0].AGS)
	assert.Equal(t, "region", failures[0].Kind)
	assert.Contains(t, failures[0].Error, "HTTP 500")
}

func TestPushHistory(t *testing.T) {
	client := &fakeClient{failOn: map[call]bool{{op: "cases", ags: "05370", day: "2020-03-03"}: true}}
	s := newTestSyncer(client, WithSkipUnchanged(true))

	seriesFn := func(_ context.Context, r model.Region) ([]model.DayRecord, []model.DayRecord, error) {
		if r.AGS == "09181" {
			return nil, nil, errors.New("rki: HTTP 503")
		}
		series := []model.DayRecord{
			{Date: "2020-03-01", InfectedTotal: 5},
			{Date: "2020-03-02", InfectedTotal: 8, DeathsTotal: 1},
			{Date: "2020-03-03", InfectedTotal: 9, DeathsTotal: 1},
		}
		remote := []model.DayRecord{{Date: "2020-03-01", InfectedTotal: 5}}
		return series, remote, nil
	}

	res, err := s.PushHistory(context.Background(), []model.Region{
		{AGS: "09181", Name: "LK Landsberg"},
		{AGS: "05370", Name: "LK Heinsberg"},
	}, seriesFn)
	require.NoError(t, err)

	assert.Equal(t, []call{
		{op: "cases", ags: "05370", day: "2020-03-02"},
		{op: "cases", ags: "05370", day: "2020-03-03"},
	}, client.calls)
	assert.Equal(t, 4, res.Units)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, KindHistory, res.Failures[0].Kind)
	assert.Equal(t, "2020-03-03", res.Failures[1].Date)
}

func TestPushHistory_WithoutSkip(t *testing.T) {
	client := &fakeClient{}
	s := newTestSyncer(client)

	seriesFn := func(context.Context, model.Region) ([]model.DayRecord, []model.DayRecord, error) {
		days := []model.DayRecord{{Date: "2020-03-01", InfectedTotal: 5}}
		return days, days, nil
	}
	res, err := s.PushHistory(context.Background(), []model.Region{{AGS: "01001"}}, seriesFn)
	require.NoError(t, err)
	assert.Len(t, client.calls, 1)
	assert.Zero(t, res.Skipped)
}
