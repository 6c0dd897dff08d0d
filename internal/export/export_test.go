package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/regionsync/internal/model"
)

func testEntities() []model.UnifiedEntity {
	return []model.UnifiedEntity{
		{
			Meta:   model.Meta{LastUpdated: time.Date(2020, 4, 20, 8, 0, 0, 0, time.UTC), Sources: []string{"Robert Koch-Institut"}},
			Region: model.Region{AGS: "05370", Name: "LK Heinsberg", GEN: "Heinsberg", State: "Nordrhein-Westfalen", Population: 254322},
			Data:   model.CaseMetrics{InfectedTotal: 1800, DeathsTotal: 70, DeathRate: 3.9},
		},
		{
			Region: model.Region{AGS: "09181", Name: "LK Landsberg a.Lech"},
			Data:   model.CaseMetrics{InfectedTotal: 80},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testEntities()))

	var out []model.UnifiedEntity
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "05370", out[0].Region.AGS)

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, testEntities()))
	assert.Contains(t, buf.String(), "LK Heinsberg")

	var out []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out, 2)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, testEntities()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	rows := f.Sheets[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "ags", rows[0].Cells[0].String())
	assert.Equal(t, "05370", rows[1].Cells[0].String())
	assert.Equal(t, "LK Heinsberg", rows[1].Cells[1].String())
	assert.Equal(t, "1800", rows[1].Cells[10].Value)
	assert.Equal(t, "2020-04-20T08:00:00Z", rows[1].Cells[len(xlsxHeader)-1].String())
}

func TestWrite_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "YAML", testEntities()))
	assert.Contains(t, buf.String(), "ags:")
	assert.Contains(t, buf.String(), "05370")

	err := Write(&buf, "csv", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
