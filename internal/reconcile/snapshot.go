package reconcile

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/sells-group/regionsync/internal/model"
)

// Snapshot is the immutable result of one reconciliation pass. It is safe
// for concurrent readers; accessors return copies.
type Snapshot struct {
	generated  time.Time
	sources    []string
	entities   []model.UnifiedEntity
	byKey      map[string]int
	byObjectID map[int64]int
	warnings   []Warning
}

func newSnapshot(generated time.Time, sources []string) *Snapshot {
	return &Snapshot{
		generated:  generated,
		sources:    append([]string(nil), sources...),
		byKey:      make(map[string]int),
		byObjectID: make(map[int64]int),
	}
}

// add appends an entity. The first entity for a key or object ID owns the
// index slot.
func (s *Snapshot) add(e model.UnifiedEntity) {
	i := len(s.entities)
	s.entities = append(s.entities, e)
	if _, ok := s.byKey[e.Region.AGS]; !ok {
		s.byKey[e.Region.AGS] = i
	}
	if e.Region.ObjectID != 0 {
		if _, ok := s.byObjectID[e.Region.ObjectID]; !ok {
			s.byObjectID[e.Region.ObjectID] = i
		}
	}
}

// Generated returns the generation time shared by all entities.
func (s *Snapshot) Generated() time.Time {
	return s.generated
}

// Len returns the number of entities.
func (s *Snapshot) Len() int {
	return len(s.entities)
}

// Sources returns the attribution strings of the sources merged.
func (s *Snapshot) Sources() []string {
	return append([]string(nil), s.sources...)
}

// Warnings returns the non-fatal findings of the pass.
func (s *Snapshot) Warnings() []Warning {
	return append([]Warning(nil), s.warnings...)
}

// Entities returns all entities in primary-source order.
func (s *Snapshot) Entities() []model.UnifiedEntity {
	out := make([]model.UnifiedEntity, len(s.entities))
	for i, e := range s.entities {
		out[i] = clone(e)
	}
	return out
}

// Regions returns the region block of every entity.
func (s *Snapshot) Regions() []model.Region {
	out := make([]model.Region, len(s.entities))
	for i, e := range s.entities {
		out[i] = e.Region
	}
	return out
}

// ByKey returns the entity for a region code. An exact key hit is found in
// constant time; otherwise the first entity whose key matches by substring
// containment is returned.
func (s *Snapshot) ByKey(ags string) (model.UnifiedEntity, bool) {
	ags = strings.TrimSpace(ags)
	if i, ok := s.byKey[ags]; ok {
		return clone(s.entities[i]), true
	}
	for _, e := range s.entities {
		if KeyMatch(e.Region.AGS, ags) {
			return clone(e), true
		}
	}
	return model.UnifiedEntity{}, false
}

// ByObjectID returns the entity with the given primary-source object ID.
func (s *Snapshot) ByObjectID(id int64) (model.UnifiedEntity, bool) {
	i, ok := s.byObjectID[id]
	if !ok {
		return model.UnifiedEntity{}, false
	}
	return clone(s.entities[i]), true
}

// FindByName returns entities whose name, GEN or state contains q,
// ignoring case.
func (s *Snapshot) FindByName(q string) []model.UnifiedEntity {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(q))
	if needle == "" {
		return nil
	}

	var out []model.UnifiedEntity
	for _, e := range s.entities {
		for _, field := range []string{e.Region.Name, e.Region.GEN, e.Region.State} {
			if field != "" && strings.Contains(fold.String(field), needle) {
				out = append(out, clone(e))
				break
			}
		}
	}
	return out
}

func clone(e model.UnifiedEntity) model.UnifiedEntity {
	e.Meta.Sources = append([]string(nil), e.Meta.Sources...)
	if e.Distribution != nil {
		e.Distribution = append([]model.DistributionEntry(nil), e.Distribution...)
	}
	return e
}
