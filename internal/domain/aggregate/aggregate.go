// Package aggregate computes per venue, weekday and hour averages over the series.
package aggregate

import (
	"sort"
	"time"

	"github.com/tigerroll/foottraffic/internal/domain/model"
)

// Key identifies a bucket. Weekday is the weekday of the business date.
type Key struct {
	Venue   model.Venue
	Weekday time.Weekday
	Hour    int
}

// Bucket holds the means of one slot.
type Bucket struct {
	Key
	MeanEntering float64
	MeanInside   float64
	Samples      int
	// IsOpen is the open flag of the most recent record in the slot.
	IsOpen bool
}

type accumulator struct {
	entering, inside float64
	n                int
	isOpen           bool
}

// Aggregate computes one bucket per slot present in series. The result does not depend
// on the order of series: records are summed in (DateTime, Venue) order and divided once.
func Aggregate(series []model.CanonicalRecord) map[Key]Bucket {
	sorted := make(model.Series, len(series))
	copy(sorted, series)
	sorted.Sort()

	acc := make(map[Key]*accumulator)
	for _, r := range sorted {
		k := Key{Venue: r.Venue, Weekday: r.Date.Weekday(), Hour: r.Hour}
		a, ok := acc[k]
		if !ok {
			a = &accumulator{}
			acc[k] = a
		}
		a.entering += r.Entering
		a.inside += r.Inside
		a.n++
		a.isOpen = r.IsOpen
	}

	out := make(map[Key]Bucket, len(acc))
	for k, a := range acc {
		out[k] = Bucket{
			Key:          k,
			MeanEntering: a.entering / float64(a.n),
			MeanInside:   a.inside / float64(a.n),
			Samples:      a.n,
			IsOpen:       a.isOpen,
		}
	}
	return out
}

// mondayFirst maps time.Weekday to a Monday-based index.
func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// Buckets returns the buckets sorted by venue, weekday (Monday first) and hour.
func Buckets(m map[Key]Bucket) []Bucket {
	out := make([]Bucket, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Venue != b.Venue {
			return a.Venue < b.Venue
		}
		if a.Weekday != b.Weekday {
			return mondayFirst(a.Weekday) < mondayFirst(b.Weekday)
		}
		return a.Hour < b.Hour
	})
	return out
}
