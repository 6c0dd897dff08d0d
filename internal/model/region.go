// Package model defines the reconciled region entities shared across the sync pipeline.
package model

import "time"

// Region holds the identity and administrative attributes of a county.
// AGS is the canonical key (Amtlicher Gemeindeschlüssel); its padding varies
// by source, so lookups match by substring containment rather than equality.
type Region struct {
	ObjectID            int64   `json:"object_id,omitempty" yaml:"object_id,omitempty"`
	AGS                 string  `json:"ags" yaml:"ags"`
	GEN                 string  `json:"gen,omitempty" yaml:"gen,omitempty"`
	BEZ                 string  `json:"bez,omitempty" yaml:"bez,omitempty"`
	State               string  `json:"state,omitempty" yaml:"state,omitempty"`
	Name                string  `json:"name,omitempty" yaml:"name,omitempty"`
	Population          int64   `json:"population,omitempty" yaml:"population,omitempty"`
	PopulationMale      int64   `json:"population_male,omitempty" yaml:"population_male,omitempty"`
	PopulationFemale    int64   `json:"population_female,omitempty" yaml:"population_female,omitempty"`
	PopulationDensityKm float64 `json:"population_density_km,omitempty" yaml:"population_density_km,omitempty"`
	AreaKm2             float64 `json:"area_km2,omitempty" yaml:"area_km2,omitempty"`
}

// DisplayName returns the best human readable label for the region.
func (r Region) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.GEN
}

// CaseMetrics holds cumulative case figures for a region. Cumulative totals
// never decrease across the time dimension.
type CaseMetrics struct {
	InfectedTotal   int64   `json:"infected_total" yaml:"infected_total"`
	DeathsTotal     int64   `json:"deaths_total" yaml:"deaths_total"`
	IntensiveTotal  int64   `json:"intensive_total,omitempty" yaml:"intensive_total,omitempty"`
	ImmuneTotal     int64   `json:"immune_total,omitempty" yaml:"immune_total,omitempty"`
	QuarantineTotal int64   `json:"quarantine_total,omitempty" yaml:"quarantine_total,omitempty"`
	InfectedPer100k float64 `json:"infected_per_100k,omitempty" yaml:"infected_per_100k,omitempty"`
	DeathRate       float64 `json:"death_rate,omitempty" yaml:"death_rate,omitempty"`
}

// DistributionEntry is one gender/age-group bucket of cumulative counts.
// Buckets with unknown gender or age group are excluded upstream, so the
// sum over a region's entries need not equal its totals.
type DistributionEntry struct {
	Gender        string `json:"gender" yaml:"gender"`
	AgeGroup      string `json:"age_group" yaml:"age_group"`
	InfectedTotal int64  `json:"infected_total" yaml:"infected_total"`
	DeathsTotal   int64  `json:"deaths_total" yaml:"deaths_total"`
}

// Meta carries the generation timestamp and source attribution of an entity.
type Meta struct {
	LastUpdated time.Time `json:"last_updated" yaml:"last_updated"`
	Sources     []string  `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// UnifiedEntity is the reconciled view of one region across all sources.
type UnifiedEntity struct {
	Meta         Meta                `json:"meta" yaml:"meta"`
	Region       Region              `json:"region" yaml:"region"`
	Data         CaseMetrics         `json:"data" yaml:"data"`
	Distribution []DistributionEntry `json:"distribution,omitempty" yaml:"distribution,omitempty"`
}
