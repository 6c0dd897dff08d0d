package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regionsync/internal/model"
	"github.com/sells-group/regionsync/internal/reconcile"
	"github.com/sells-group/regionsync/internal/runlog"
	"github.com/sells-group/regionsync/internal/source"
	"github.com/sells-group/regionsync/internal/syncer"
)

func sampleEntities() []model.UnifiedEntity {
	return []model.UnifiedEntity{
		{
			Region: model.Region{AGS: "05370", Name: "LK Heinsberg", State: "Nordrhein-Westfalen", Population: 254322},
			Data:   model.CaseMetrics{InfectedTotal: 1800, DeathsTotal: 70, InfectedPer100k: 707.76},
		},
		{
			Region: model.Region{AGS: "08336", GEN: "Lörrach with a name long enough to be cut", State: "Baden-Württemberg"},
			Data:   model.CaseMetrics{InfectedTotal: 12},
		},
	}
}

func TestFormatRegionTable(t *testing.T) {
	var buf bytes.Buffer
	formatRegionTable(&buf, sampleEntities())

	out := buf.String()
	assert.Contains(t, out, "AGS")
	assert.Contains(t, out, "PER_100K")
	assert.Contains(t, out, "05370")
	assert.Contains(t, out, "LK Heinsberg")
	assert.Contains(t, out, "707.8")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, "cut")
}

func TestPrintEntities(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printEntities(&buf, "json", sampleEntities()))
	assert.Contains(t, buf.String(), `"ags": "05370"`)

	buf.Reset()
	require.NoError(t, printEntities(&buf, "", sampleEntities()))
	assert.Contains(t, buf.String(), "POPULATION")

	err := printEntities(&buf, "csv", sampleEntities())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestFormatSyncResult(t *testing.T) {
	res := &syncer.Result{
		RunID:     "run-1",
		Units:     3,
		Succeeded: 1,
		Skipped:   1,
		Failures: []syncer.Failure{
			{Kind: syncer.KindCases, AGS: "05370", Name: "LK Heinsberg", Err: errors.New("status 500")},
		},
	}

	var buf bytes.Buffer
	formatSyncResult(&buf, "cases", res)

	out := buf.String()
	assert.Contains(t, out, "Sync:")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "Failed:")
	assert.Contains(t, out, "LK Heinsberg (05370)")
	assert.Contains(t, out, "status 500")
}

func TestFormatSyncResult_NoRunID(t *testing.T) {
	var buf bytes.Buffer
	formatSyncResult(&buf, "regions", &syncer.Result{Units: 1, Succeeded: 1})
	assert.NotContains(t, buf.String(), "Run ID")
}

func TestFormatRunsList(t *testing.T) {
	started := time.Date(2020, 4, 1, 10, 0, 0, 0, time.UTC)
	completed := started.Add(90 * time.Second)

	runs := []runlog.Run{
		{
			ID:          "a1b2c3",
			Kind:        "all",
			Status:      runlog.StatusComplete,
			StartedAt:   started,
			CompletedAt: &completed,
			Summary:     runlog.Summary{Units: 401, Failed: 2},
		},
		{ID: "d4e5f6", Kind: "history", Status: runlog.StatusRunning, StartedAt: started},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "a1b2c3")
	assert.Contains(t, out, "2020-04-01 10:00")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "401")
	assert.Contains(t, out, "running")
}

func TestFormatFailures(t *testing.T) {
	long := "push failed: " + string(bytes.Repeat([]byte("x"), 100))
	failures := []runlog.FailureRecord{
		{Kind: "cases", AGS: "05370", Name: "LK Heinsberg", Date: "2020-04-01", Error: long},
	}

	var buf bytes.Buffer
	formatFailures(&buf, failures)

	out := buf.String()
	assert.Contains(t, out, "05370")
	assert.Contains(t, out, "2020-04-01")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, long)
}

func TestSelectRegions(t *testing.T) {
	snap := reconcile.New().Reconcile(&source.Bundle{
		Counties: []source.County{
			{AGS: "05370", GEN: "Heinsberg", County: "LK Heinsberg"},
			{AGS: "08336", GEN: "Lörrach", County: "LK Lörrach"},
		},
		Sources: []string{"rki"},
	})

	all, err := selectRegions(snap, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	picked, err := selectRegions(snap, []string{"8336"})
	require.NoError(t, err)
	require.Len(t, picked, 1)
	assert.Equal(t, "Lörrach", picked[0].GEN)

	_, err = selectRegions(snap, []string{"99999"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region not found")
}
