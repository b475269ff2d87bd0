// Package merge combines the persisted series with newly normalized records.
package merge

import (
	"github.com/tigerroll/foottraffic/internal/domain/model"
)

// Report summarizes a merge.
type Report struct {
	// Inserted counts keys that were new to the series.
	Inserted int
	// Replaced counts existing keys whose values changed.
	Replaced int
	// Unchanged counts existing keys that were re-sent with identical values.
	Unchanged int
	// Retained counts existing keys the incoming batch did not touch.
	Retained int
	// Rejected counts malformed incoming records, detailed in Errors.
	Rejected int
	Errors   []*model.RowError
}

// Merge returns existing overlaid with incoming, sorted by (DateTime, Venue).
//
// Incoming records replace existing records with the same key, and within incoming the
// later record wins. Malformed incoming records are excluded and reported. Neither input
// is modified.
func Merge(existing model.Series, incoming []model.CanonicalRecord) (model.Series, Report) {
	var report Report

	overlay := make(map[model.Key]model.CanonicalRecord, len(incoming))
	order := make([]model.Key, 0, len(incoming))
	for i, rec := range incoming {
		if err := rec.Validate(); err != nil {
			report.Rejected++
			report.Errors = append(report.Errors, &model.RowError{Index: i, Err: err})
			continue
		}
		k := key(rec)
		if _, seen := overlay[k]; !seen {
			order = append(order, k)
		}
		overlay[k] = rec
	}

	out := make(model.Series, 0, len(existing)+len(overlay))
	index := make(map[model.Key]int, len(existing)+len(overlay))
	for _, rec := range existing {
		k := key(rec)
		if pos, dup := index[k]; dup {
			// A duplicated key in the stored series collapses to its last occurrence.
			out[pos] = rec
			continue
		}
		index[k] = len(out)
		out = append(out, rec)
	}

	touched := make(map[model.Key]bool, len(overlay))
	for _, k := range order {
		rec := overlay[k]
		touched[k] = true
		if pos, ok := index[k]; ok {
			if sameValues(out[pos], rec) {
				report.Unchanged++
			} else {
				report.Replaced++
			}
			out[pos] = rec
			continue
		}
		index[k] = len(out)
		out = append(out, rec)
		report.Inserted++
	}
	for k := range index {
		if !touched[k] {
			report.Retained++
		}
	}

	out.Sort()
	return out, report
}

// key normalizes the datetime location so equal instants from different decoders collide.
func key(rec model.CanonicalRecord) model.Key {
	return model.Key{Venue: rec.Venue, DateTime: rec.DateTime.UTC()}
}

func sameValues(a, b model.CanonicalRecord) bool {
	return a.Date.Equal(b.Date) &&
		a.Hour == b.Hour &&
		a.Entering == b.Entering &&
		a.Inside == b.Inside &&
		a.IsOpen == b.IsOpen
}
