package timeseries

import "github.com/sells-group/regionsync/internal/model"

// MergeRemote overlays the local series on the remote baseline. For dates
// present remotely, non-zero local fields win and zero local fields take the
// remote value. Dates only known remotely are not added.
func MergeRemote(local, remote []model.DayRecord) []model.DayRecord {
	byDate := make(map[string]model.DayRecord, len(remote))
	for _, rec := range remote {
		if _, ok := byDate[rec.Date]; !ok {
			byDate[rec.Date] = rec
		}
	}

	out := make([]model.DayRecord, len(local))
	for i, rec := range local {
		if base, ok := byDate[rec.Date]; ok {
			rec = mergeDay(rec, base)
		}
		out[i] = rec
	}
	return out
}

func mergeDay(local, remote model.DayRecord) model.DayRecord {
	fillInt(&local.InfectedTotal, remote.InfectedTotal)
	fillInt(&local.DeathsTotal, remote.DeathsTotal)
	fillInt(&local.IntensiveTotal, remote.IntensiveTotal)
	fillInt(&local.ImmuneTotal, remote.ImmuneTotal)
	fillInt(&local.QuarantineTotal, remote.QuarantineTotal)
	fillFloat(&local.InfectedPer100k, remote.InfectedPer100k)
	fillFloat(&local.DeathRate, remote.DeathRate)
	return local
}

func fillInt(dst *int64, v int64) {
	if *dst == 0 {
		*dst = v
	}
}

func fillFloat(dst *float64, v float64) {
	if *dst == 0 {
		*dst = v
	}
}

// Diff returns the days of series that the remote store does not hold yet
// or holds with different values.
func Diff(series, remote []model.DayRecord) []model.DayRecord {
	stored := make(map[string]model.DayRecord, len(remote))
	for _, rec := range remote {
		stored[rec.Date] = rec
	}

	var out []model.DayRecord
	for _, rec := range series {
		if prev, ok := stored[rec.Date]; ok && prev == rec {
			continue
		}
		out = append(out, rec)
	}
	return out
}
