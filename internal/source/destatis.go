package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regionsync/internal/fetcher"
)

const defaultDestatisURL = "https://raw.githubusercontent.com/lobicolonia/covid19-community-data/master/comunitydata.json"

// Demographic is one Destatis community statistics record.
type Demographic struct {
	ARS              Code    `json:"ars"`
	Name             string  `json:"name"`
	Area             float64 `json:"area"`
	MalePopulation   int64   `json:"malePopulation"`
	FemalePopulation int64   `json:"femalePopulation"`
	Density          float64 `json:"populationPerSquareKilometer"`
	LastUpdate       string  `json:"lastUpdate"`
}

// Population returns the total of the male and female population.
func (d Demographic) Population() int64 {
	return d.MalePopulation + d.FemalePopulation
}

// Destatis fetches the demographic statistics payload.
type Destatis struct {
	f   fetcher.Fetcher
	url string
}

// NewDestatis creates a Destatis client. An empty URL uses the public dataset.
func NewDestatis(f fetcher.Fetcher, rawURL string) *Destatis {
	if rawURL == "" {
		rawURL = defaultDestatisURL
	}
	return &Destatis{f: f, url: rawURL}
}

// Counties returns every demographic record in the payload.
func (d *Destatis) Counties(ctx context.Context) ([]Demographic, error) {
	var out []Demographic
	if err := fetcher.GetJSON(ctx, d.f, d.url, nil, &out); err != nil {
		return nil, eris.Wrap(err, "destatis: counties")
	}
	return out, nil
}
