package source

import (
	"bytes"
	"context"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regionsync/internal/fetcher"
)

// Risklayer payload formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// RiskRecord is one Risklayer county row.
type RiskRecord struct {
	AGS        Code   `json:"AGS"`
	Cases      int64  `json:"cases"`
	Deaths     int64  `json:"deaths"`
	Immune     int64  `json:"immune"`
	Quarantine int64  `json:"quarantine"`
	Intensive  int64  `json:"intensive"`
	Time       string `json:"time,omitempty"`
}

// RiskLayerConfig configures the Risklayer source.
type RiskLayerConfig struct {
	URL     string
	Format  string // json (default), csv or xlsx
	Charset string // csv only
	Sheet   string // xlsx only; first sheet when empty
}

// RiskLayer fetches the Risklayer county sheet, published either as JSON or
// as a spreadsheet export.
type RiskLayer struct {
	f   fetcher.Fetcher
	cfg RiskLayerConfig
}

// NewRiskLayer creates a Risklayer client.
func NewRiskLayer(f fetcher.Fetcher, cfg RiskLayerConfig) *RiskLayer {
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	return &RiskLayer{f: f, cfg: cfg}
}

// Counties returns every county row of the sheet.
func (r *RiskLayer) Counties(ctx context.Context) ([]RiskRecord, error) {
	if r.cfg.URL == "" {
		return nil, eris.New("risklayer: url not configured (sources.risklayer.url)")
	}

	switch r.cfg.Format {
	case FormatJSON:
		var out []RiskRecord
		if err := fetcher.GetJSON(ctx, r.f, r.cfg.URL, nil, &out); err != nil {
			return nil, eris.Wrap(err, "risklayer: counties")
		}
		return out, nil
	case FormatCSV, FormatXLSX:
		tbl, err := r.fetchTable(ctx)
		if err != nil {
			return nil, err
		}
		return riskRecordsFromTable(tbl)
	default:
		return nil, eris.Errorf("risklayer: unsupported format %q", r.cfg.Format)
	}
}

func (r *RiskLayer) fetchTable(ctx context.Context) (*fetcher.Table, error) {
	body, err := r.f.Download(ctx, r.cfg.URL)
	if err != nil {
		return nil, eris.Wrap(err, "risklayer: download")
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &fetcher.FetchError{URL: r.cfg.URL, Err: eris.Wrap(err, "read body")}
	}

	if r.cfg.Format == FormatXLSX {
		tbl, err := fetcher.ParseXLSX(data, fetcher.XLSXOptions{SheetName: r.cfg.Sheet})
		return tbl, eris.Wrap(err, "risklayer: parse xlsx")
	}
	tbl, err := fetcher.ReadCSV(bytes.NewReader(data), fetcher.CSVOptions{
		TrimSpace: true,
		Charset:   r.cfg.Charset,
	})
	return tbl, eris.Wrap(err, "risklayer: parse csv")
}

func riskRecordsFromTable(tbl *fetcher.Table) ([]RiskRecord, error) {
	out := make([]RiskRecord, 0, len(tbl.Rows))
	for i, rec := range tbl.Records() {
		rr := RiskRecord{AGS: Code(rec["AGS"]), Time: rec["time"]}
		for col, dst := range map[string]*int64{
			"cases":      &rr.Cases,
			"deaths":     &rr.Deaths,
			"immune":     &rr.Immune,
			"quarantine": &rr.Quarantine,
			"intensive":  &rr.Intensive,
		} {
			n, err := parseCount(rec[col])
			if err != nil {
				return nil, eris.Wrapf(err, "risklayer: row %d column %s", i+1, col)
			}
			*dst = n
		}
		out = append(out, rr)
	}
	return out, nil
}
