package reconcile

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/regionsync/internal/model"
	"github.com/sells-group/regionsync/internal/source"
)

const (
	datasetDestatis     = "destatis"
	datasetRiskLayer    = "risklayer"
	datasetDistribution = "distribution"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger receiving reconciliation warnings.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock sets the clock used for entity generation timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine merges a source bundle into unified entities.
type Engine struct {
	log *zap.Logger
	now func() time.Time
}

// New creates an Engine. Without WithLogger it logs nothing.
func New(opts ...Option) *Engine {
	e := &Engine{
		log: zap.NewNop(),
		now: time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// auxiliary holds an auxiliary dataset's keys in iteration order.
type auxiliary struct {
	demographics []string
	risk         []string
	distribution []string
}

func indexAuxiliary(b *source.Bundle) auxiliary {
	var aux auxiliary
	for _, d := range b.Demographics {
		aux.demographics = append(aux.demographics, d.ARS.String())
	}
	for _, r := range b.RiskLayer {
		aux.risk = append(aux.risk, r.AGS.String())
	}
	for _, g := range b.Distribution {
		aux.distribution = append(aux.distribution, g.AGS.String())
	}
	return aux
}

// Reconcile joins every primary county with the auxiliary datasets and
// returns the resulting snapshot. Counties without a derivable key are
// dropped with a warning.
func (e *Engine) Reconcile(b *source.Bundle) *Snapshot {
	generated := e.now().UTC()
	if b == nil {
		return newSnapshot(generated, nil)
	}
	snap := newSnapshot(generated, b.Sources)

	aux := indexAuxiliary(b)
	for _, county := range b.Counties {
		key, ok := CanonicalKey(county)
		if !ok {
			e.warn(snap, Warning{Kind: WarnMissingKey, Name: countyLabel(county)})
			continue
		}
		snap.add(e.merge(b, aux, county, key, generated, snap))
	}

	e.log.Info("reconciliation complete",
		zap.Int("entities", snap.Len()),
		zap.Int("warnings", len(snap.warnings)),
	)
	return snap
}

func (e *Engine) merge(b *source.Bundle, aux auxiliary, county source.County, key string, generated time.Time, snap *Snapshot) model.UnifiedEntity {
	entity := model.UnifiedEntity{
		Meta: model.Meta{
			LastUpdated: generated,
			Sources:     append([]string(nil), b.Sources...),
		},
		Region: model.Region{
			ObjectID:   county.ObjectID,
			AGS:        key,
			GEN:        county.GEN,
			BEZ:        county.BEZ,
			State:      county.BL,
			Name:       county.County,
			Population: county.EWZ,
		},
		Data: model.CaseMetrics{
			InfectedTotal:   county.Cases,
			DeathsTotal:     county.Deaths,
			InfectedPer100k: county.CasesPer100k,
			DeathRate:       county.DeathRate,
		},
	}
	name := entity.Region.DisplayName()

	if len(b.Demographics) > 0 {
		if i := firstMatch(aux.demographics, key); i >= 0 {
			mergeDemographic(&entity.Region, b.Demographics[i])
		} else {
			e.noMatch(snap, datasetDestatis, key, name)
		}
	}

	if len(b.RiskLayer) > 0 {
		if i := firstMatch(aux.risk, key); i >= 0 {
			rec := b.RiskLayer[i]
			mergeRisk(&entity.Data, rec)
			if detail, differ := disagreement(entity.Data, rec); differ {
				e.warn(snap, Warning{Kind: WarnDisagreement, Key: key, Name: name, Dataset: datasetRiskLayer, Detail: detail})
			}
		} else {
			e.noMatch(snap, datasetRiskLayer, key, name)
		}
	}

	if len(b.Distribution) > 0 {
		if i := firstMatch(aux.distribution, key); i >= 0 {
			entity.Distribution = append([]model.DistributionEntry(nil), b.Distribution[i].Entries...)
		} else {
			e.noMatch(snap, datasetDistribution, key, name)
		}
	}

	return entity
}

// mergeDemographic fills region fields the primary source left empty.
func mergeDemographic(r *model.Region, d source.Demographic) {
	setInt(&r.Population, d.Population())
	setInt(&r.PopulationMale, d.MalePopulation)
	setInt(&r.PopulationFemale, d.FemalePopulation)
	setFloat(&r.PopulationDensityKm, d.Density)
	setFloat(&r.AreaKm2, d.Area)
	setString(&r.Name, d.Name)
}

// mergeRisk copies the Risklayer-only counts. Cases and deaths stay with the
// primary source.
func mergeRisk(m *model.CaseMetrics, rec source.RiskRecord) {
	setInt(&m.IntensiveTotal, rec.Intensive)
	setInt(&m.ImmuneTotal, rec.Immune)
	setInt(&m.QuarantineTotal, rec.Quarantine)
}

func disagreement(m model.CaseMetrics, rec source.RiskRecord) (string, bool) {
	var detail string
	if rec.Cases != 0 && rec.Cases != m.InfectedTotal {
		detail = fmt.Sprintf("cases %d vs %d", m.InfectedTotal, rec.Cases)
	}
	if rec.Deaths != 0 && rec.Deaths != m.DeathsTotal {
		if detail != "" {
			detail += ", "
		}
		detail += fmt.Sprintf("deaths %d vs %d", m.DeathsTotal, rec.Deaths)
	}
	return detail, detail != ""
}

func setInt(dst *int64, v int64) {
	if *dst == 0 && v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if *dst == 0 && v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func countyLabel(c source.County) string {
	if c.County != "" {
		return c.County
	}
	return c.GEN
}

func (e *Engine) warn(snap *Snapshot, w Warning) {
	snap.warnings = append(snap.warnings, w)
	e.log.Warn(w.String(),
		zap.String("kind", string(w.Kind)),
		zap.String("ags", w.Key),
		zap.String("dataset", w.Dataset),
	)
}

// noMatch is recorded but only logged at debug level; a missing auxiliary
// record simply leaves the optional fields unset.
func (e *Engine) noMatch(snap *Snapshot, dataset, key, name string) {
	w := Warning{Kind: WarnNoMatch, Key: key, Name: name, Dataset: dataset}
	snap.warnings = append(snap.warnings, w)
	e.log.Debug(w.String(), zap.String("ags", key), zap.String("dataset", dataset))
}
