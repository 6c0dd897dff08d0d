package timeseries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regionsync/internal/model"
)

func TestMergeRemote_Precedence(t *testing.T) {
	local := []model.DayRecord{
		{Date: "2020-03-01", InfectedTotal: 10, DeathsTotal: 0},
		{Date: "2020-03-02", InfectedTotal: 12, DeathsTotal: 1},
	}
	remote := []model.DayRecord{
		{Date: "2020-03-01", InfectedTotal: 9, DeathsTotal: 2, InfectedPer100k: 4.2},
		{Date: "2020-02-28", InfectedTotal: 1},
	}

	out := MergeRemote(local, remote)
	require.Len(t, out, 2)

	assert.Equal(t, int64(10), out[0].InfectedTotal, "non-zero local wins")
	assert.Equal(t, int64(2), out[0].DeathsTotal, "zero local falls back to remote")
	assert.InDelta(t, 4.2, out[0].InfectedPer100k, 0.0001)

	assert.Equal(t, local[1], out[1], "dates unknown remotely pass through")
	assert.Equal(t, int64(0), local[0].DeathsTotal, "input is not mutated")
}

func TestMergeRemote_AbsentEverywhereStaysZero(t *testing.T) {
	out := MergeRemote(
		[]model.DayRecord{{Date: "2020-03-01", InfectedTotal: 3}},
		[]model.DayRecord{{Date: "2020-03-01", InfectedTotal: 2}},
	)
	assert.Zero(t, out[0].ImmuneTotal)
	assert.Zero(t, out[0].DeathRate)
}

func TestDiff(t *testing.T) {
	series := []model.DayRecord{
		{Date: "2020-03-01", InfectedTotal: 5},
		{Date: "2020-03-02", InfectedTotal: 8, DeathsTotal: 1},
		{Date: "2020-03-03", InfectedTotal: 9, DeathsTotal: 1},
	}
	remote := []model.DayRecord{
		{Date: "2020-03-01", InfectedTotal: 5},
		{Date: "2020-03-02", InfectedTotal: 8},
	}

	changed := Diff(series, remote)
	require.Len(t, changed, 2)
	assert.Equal(t, "2020-03-02", changed[0].Date)
	assert.Equal(t, "2020-03-03", changed[1].Date)

	assert.Empty(t, Diff(series[:1], remote))
}
