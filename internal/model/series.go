package model

import "time"

// DateLayout is the day resolution used for series keys and API payloads.
const DateLayout = "2006-01-02"

// Report is one raw delta row for a single day and demographic bucket.
type Report struct {
	Date      time.Time `json:"date"`
	AgeGroup  string    `json:"age_group,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	CasesNew  int64     `json:"cases_new"`
	DeathsNew int64     `json:"deaths_new"`
}

// Day returns the report's calendar day in UTC.
func (r Report) Day() string {
	return r.Date.UTC().Format(DateLayout)
}

// DayRecord is one element of a cumulative series and the case-day payload
// exchanged with the remote store. Zero fields are omitted on the wire.
type DayRecord struct {
	Date            string  `json:"date_day"`
	InfectedTotal   int64   `json:"infected_total,omitempty"`
	DeathsTotal     int64   `json:"deaths_total,omitempty"`
	IntensiveTotal  int64   `json:"intensive_total,omitempty"`
	ImmuneTotal     int64   `json:"immune_total,omitempty"`
	QuarantineTotal int64   `json:"quarantine_total,omitempty"`
	InfectedPer100k float64 `json:"infected_per_100k,omitempty"`
	DeathRate       float64 `json:"death_rate,omitempty"`
}
