// Package export writes a reconciled snapshot to JSON, YAML or XLSX.
package export

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/regionsync/internal/model"
)

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatXLSX = "xlsx"
)

// Write encodes entities in the named format.
func Write(w io.Writer, format string, entities []model.UnifiedEntity) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return WriteJSON(w, entities)
	case FormatYAML, "yml":
		return WriteYAML(w, entities)
	case FormatXLSX:
		return WriteXLSX(w, entities)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteJSON writes entities as an indented JSON array.
func WriteJSON(w io.Writer, entities []model.UnifiedEntity) error {
	if entities == nil {
		entities = []model.UnifiedEntity{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(entities), "export: encode json")
}

// WriteYAML writes entities as a YAML sequence.
func WriteYAML(w io.Writer, entities []model.UnifiedEntity) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entities); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return eris.Wrap(enc.Close(), "export: close yaml encoder")
}

var xlsxHeader = []string{
	"ags", "name", "gen", "bez", "state",
	"population", "population_male", "population_female", "population_density_km", "area_km2",
	"infected_total", "deaths_total", "intensive_total", "immune_total", "quarantine_total",
	"infected_per_100k", "death_rate", "last_updated",
}

// WriteXLSX writes one sheet with a header row and one row per entity.
func WriteXLSX(w io.Writer, entities []model.UnifiedEntity) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("regions")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().SetString(h)
	}

	for _, e := range entities {
		row := sheet.AddRow()
		for _, s := range []string{e.Region.AGS, e.Region.Name, e.Region.GEN, e.Region.BEZ, e.Region.State} {
			row.AddCell().SetString(s)
		}
		for _, n := range []int64{
			e.Region.Population, e.Region.PopulationMale, e.Region.PopulationFemale,
		} {
			row.AddCell().SetInt64(n)
		}
		row.AddCell().SetFloat(e.Region.PopulationDensityKm)
		row.AddCell().SetFloat(e.Region.AreaKm2)
		for _, n := range []int64{
			e.Data.InfectedTotal, e.Data.DeathsTotal, e.Data.IntensiveTotal, e.Data.ImmuneTotal, e.Data.QuarantineTotal,
		} {
			row.AddCell().SetInt64(n)
		}
		row.AddCell().SetFloat(e.Data.InfectedPer100k)
		row.AddCell().SetFloat(e.Data.DeathRate)
		row.AddCell().SetString(e.Meta.LastUpdated.UTC().Format("2006-01-02T15:04:05Z"))
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}
