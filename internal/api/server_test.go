package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regionsync/internal/model"
	"github.com/sells-group/regionsync/internal/reconcile"
	"github.com/sells-group/regionsync/internal/source"
)

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	e := reconcile.New(reconcile.WithClock(func() time.Time {
		return time.Date(2020, 4, 20, 8, 0, 0, 0, time.UTC)
	}))
	snap := e.Reconcile(&source.Bundle{
		Counties: []source.County{
			{ObjectID: 86, AGS: "05370", GEN: "Heinsberg", County: "LK Heinsberg", BL: "Nordrhein-Westfalen", Cases: 1800},
			{ObjectID: 12, AGS: "08336", GEN: "Lörrach", County: "LK Lörrach", BL: "Baden-Württemberg", Cases: 700},
		},
		Sources: []string{source.RKICopyright},
	})
	return NewServer(snap, nil).Handler()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, testHandler(t), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["regions"])
}

func TestListRegions(t *testing.T) {
	rec := get(t, testHandler(t), "/regions")
	require.Equal(t, http.StatusOK, rec.Code)

	var ents []model.UnifiedEntity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ents))
	require.Len(t, ents, 2)
	assert.Equal(t, "05370", ents[0].Region.AGS)
}

func TestRegionByKey(t *testing.T) {
	h := testHandler(t)

	rec := get(t, h, "/regions/5370")
	require.Equal(t, http.StatusOK, rec.Code)
	var ent model.UnifiedEntity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ent))
	assert.Equal(t, "LK Heinsberg", ent.Region.Name)
	assert.Equal(t, int64(1800), ent.Data.InfectedTotal)

	rec = get(t, h, "/regions/99999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "region not found")
}

func TestRegionByObjectID(t *testing.T) {
	h := testHandler(t)

	rec := get(t, h, "/regions/object/12")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "08336")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/regions/object/1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/regions/object/abc").Code)
}

func TestSearch(t *testing.T) {
	h := testHandler(t)

	rec := get(t, h, "/search?q=l%C3%96RRACH")
	require.Equal(t, http.StatusOK, rec.Code)
	var ents []model.UnifiedEntity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ents))
	require.Len(t, ents, 1)
	assert.Equal(t, "08336", ents[0].Region.AGS)

	rec = get(t, h, "/search?q=Hamburg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/search").Code)
}

func TestSources(t *testing.T) {
	rec := get(t, testHandler(t), "/sources")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["`+source.RKICopyright+`"]`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	testHandler(t).ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
