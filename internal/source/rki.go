package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regionsync/internal/fetcher"
	"github.com/sells-group/regionsync/internal/model"
)

const (
	defaultCountiesURL     = "https://services7.arcgis.com/mOBPykOjAyBO2ZKk/arcgis/rest/services/RKI_Landkreisdaten/FeatureServer/0/query"
	defaultDistributionURL = "https://services7.arcgis.com/mOBPykOjAyBO2ZKk/arcgis/rest/services/RKI_COVID19/FeatureServer/0/query"
)

var countyFields = []string{
	"OBJECTID", "RS", "AGS", "GEN", "BEZ", "EWZ", "AGS_0", "BL", "county",
	"death_rate", "cases", "deaths", "cases_per_100k", "cases_per_population",
}

// County is one record of the RKI county layer, the primary region list.
type County struct {
	ObjectID           int64   `json:"OBJECTID"`
	RS                 Code    `json:"RS"`
	AGS                Code    `json:"AGS"`
	GEN                string  `json:"GEN"`
	BEZ                string  `json:"BEZ"`
	EWZ                int64   `json:"EWZ"`
	AGS0               Code    `json:"AGS_0"`
	BL                 string  `json:"BL"`
	County             string  `json:"county"`
	DeathRate          float64 `json:"death_rate"`
	Cases              int64   `json:"cases"`
	Deaths             int64   `json:"deaths"`
	CasesPer100k       float64 `json:"cases_per_100k"`
	CasesPerPopulation float64 `json:"cases_per_population"`
}

// DistributionGroup holds the gender/age buckets reported for one region key.
type DistributionGroup struct {
	AGS     Code                      `json:"AGS"`
	Entries []model.DistributionEntry `json:"entries"`
}

type distributionRow struct {
	AGS      Code   `json:"IdLandkreis"`
	Gender   string `json:"Geschlecht"`
	AgeGroup string `json:"Altersgruppe"`
	Cases    int64  `json:"value"`
	Deaths   int64  `json:"deaths"`
}

type reportRow struct {
	Reported  int64  `json:"Meldedatum"` // epoch milliseconds
	AgeGroup  string `json:"Altersgruppe"`
	Gender    string `json:"Geschlecht"`
	CasesNew  int64  `json:"AnzahlFall"`
	DeathsNew int64  `json:"AnzahlTodesfall"`
}

// RKIConfig configures the RKI ArcGIS endpoints.
type RKIConfig struct {
	CountiesURL     string
	DistributionURL string
	ReportsURL      string // defaults to DistributionURL
	PageSize        int
	MaxRecords      int
}

// RKI fetches county, distribution and report data from the RKI feature services.
type RKI struct {
	f   fetcher.Fetcher
	cfg RKIConfig
}

// NewRKI creates an RKI client. Empty URLs fall back to the public services.
func NewRKI(f fetcher.Fetcher, cfg RKIConfig) *RKI {
	if cfg.CountiesURL == "" {
		cfg.CountiesURL = defaultCountiesURL
	}
	if cfg.DistributionURL == "" {
		cfg.DistributionURL = defaultDistributionURL
	}
	if cfg.ReportsURL == "" {
		cfg.ReportsURL = cfg.DistributionURL
	}
	return &RKI{f: f, cfg: cfg}
}

func (r *RKI) fetchAttributes(ctx context.Context, rawURL string, params url.Values) ([]map[string]any, error) {
	res, err := fetcher.FetchAll(ctx, r.f, fetcher.PageRequest{
		URL:          rawURL,
		Params:       params,
		PageSize:     r.cfg.PageSize,
		MaxRecords:   r.cfg.MaxRecords,
		RecordsField: "features",
	})
	if err != nil {
		return nil, err
	}

	records := res.Records()
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		feature, ok := rec.(map[string]any)
		if !ok {
			continue
		}
		if attrs, ok := feature["attributes"].(map[string]any); ok {
			out = append(out, attrs)
		}
	}
	return out, nil
}

// Counties returns every county of the primary region layer.
func (r *RKI) Counties(ctx context.Context) ([]County, error) {
	attrs, err := r.fetchAttributes(ctx, r.cfg.CountiesURL, url.Values{
		"f":              {"json"},
		"where":          {"1=1"},
		"returnGeometry": {"false"},
		"outFields":      {strings.Join(countyFields, ",")},
		"cacheHint":      {"true"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "rki: counties")
	}

	counties, err := fetcher.Remarshal[[]County](attrs)
	if err != nil {
		return nil, eris.Wrap(err, "rki: decode counties")
	}
	zap.L().Debug("rki counties fetched", zap.Int("count", len(counties)))
	return counties, nil
}

// Distribution returns cumulative case and death counts per region, gender
// and age group. Unknown genders and age groups are excluded by the query.
// Groups keep the order in which their key first appears.
func (r *RKI) Distribution(ctx context.Context) ([]DistributionGroup, error) {
	attrs, err := r.fetchAttributes(ctx, r.cfg.DistributionURL, url.Values{
		"f":                          {"json"},
		"where":                      {"(Geschlecht<>'unbekannt' AND Altersgruppe<>'unbekannt')"},
		"returnGeometry":             {"false"},
		"spatialRel":                 {"esriSpatialRelIntersects"},
		"outFields":                  {"*"},
		"groupByFieldsForStatistics": {"IdLandkreis,Geschlecht,Altersgruppe"},
		"orderByFields":              {"IdLandkreis asc"},
		"outStatistics": {`[{"statisticType":"sum","onStatisticField":"AnzahlFall","outStatisticFieldName":"value"},` +
			`{"statisticType":"sum","onStatisticField":"AnzahlTodesfall","outStatisticFieldName":"deaths"}]`},
		"cacheHint": {"true"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "rki: distribution")
	}

	rows, err := fetcher.Remarshal[[]distributionRow](attrs)
	if err != nil {
		return nil, eris.Wrap(err, "rki: decode distribution")
	}
	return groupDistribution(rows), nil
}

func groupDistribution(rows []distributionRow) []DistributionGroup {
	index := make(map[Code]int)
	var groups []DistributionGroup
	for _, row := range rows {
		i, ok := index[row.AGS]
		if !ok {
			i = len(groups)
			index[row.AGS] = i
			groups = append(groups, DistributionGroup{AGS: row.AGS})
		}
		groups[i].Entries = append(groups[i].Entries, model.DistributionEntry{
			Gender:        row.Gender,
			AgeGroup:      row.AgeGroup,
			InfectedTotal: row.Cases,
			DeathsTotal:   row.Deaths,
		})
	}
	return groups
}

// Reports returns the raw daily delta rows reported for one region.
func (r *RKI) Reports(ctx context.Context, ags string) ([]model.Report, error) {
	attrs, err := r.fetchAttributes(ctx, r.cfg.ReportsURL, url.Values{
		"f":              {"json"},
		"where":          {fmt.Sprintf("IdLandkreis='%s'", strings.ReplaceAll(ags, "'", ""))},
		"returnGeometry": {"false"},
		"outFields":      {"Meldedatum,Altersgruppe,Geschlecht,AnzahlFall,AnzahlTodesfall"},
		"orderByFields":  {"Meldedatum asc"},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "rki: reports for %s", ags)
	}

	rows, err := fetcher.Remarshal[[]reportRow](attrs)
	if err != nil {
		return nil, eris.Wrapf(err, "rki: decode reports for %s", ags)
	}

	reports := make([]model.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, model.Report{
			Date:      time.UnixMilli(row.Reported).UTC(),
			AgeGroup:  row.AgeGroup,
			Gender:    row.Gender,
			CasesNew:  row.CasesNew,
			DeathsNew: row.DeathsNew,
		})
	}
	return reports, nil
}
