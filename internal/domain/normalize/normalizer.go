// Package normalize turns raw report rows into canonical hourly records.
package normalize

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/foottraffic/internal/domain/model"
	"github.com/tigerroll/foottraffic/internal/domain/schedule"
)

// DefaultEnteringMultiplier scales the counter's raw entering figure.
const DefaultEnteringMultiplier = 0.95

// DefaultAliases maps lower-cased venue names found in reports to venues.
func DefaultAliases() map[string]model.Venue {
	return map[string]model.Venue{
		"melbourne": model.VenueMelbourne,
		"mel":       model.VenueMelbourne,
		"sydney":    model.VenueSydney,
		"syd":       model.VenueSydney,
	}
}

// Normalizer converts RawRows to CanonicalRecords. It is safe for concurrent use.
type Normalizer struct {
	schedule   *schedule.Schedule
	aliases    map[string]model.Venue
	multiplier float64
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithAliases adds venue aliases. Keys are matched case-insensitively after trimming.
func WithAliases(aliases map[string]model.Venue) Option {
	return func(n *Normalizer) {
		for k, v := range aliases {
			n.aliases[strings.ToLower(strings.TrimSpace(k))] = v
		}
	}
}

// WithMultiplier overrides the entering multiplier.
func WithMultiplier(m float64) Option {
	return func(n *Normalizer) {
		n.multiplier = m
	}
}

// New creates a Normalizer over sched. A nil schedule means schedule.Default().
func New(sched *schedule.Schedule, opts ...Option) *Normalizer {
	if sched == nil {
		sched = schedule.Default()
	}
	n := &Normalizer{
		schedule:   sched,
		aliases:    DefaultAliases(),
		multiplier: DefaultEnteringMultiplier,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ResolveVenue maps free-text venue names to a Venue.
func (n *Normalizer) ResolveVenue(name string) (model.Venue, error) {
	v, ok := n.aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", model.ErrUnknownVenue, name)
	}
	return v, nil
}

// Normalize converts one row.
//
// The timestamp is truncated to the hour using its wall clock. Clock hours 0 and 1 are
// attributed to the previous business date as hours 24 and 25 when the venue is
// still open then.
func (n *Normalizer) Normalize(row model.RawRow) (model.CanonicalRecord, error) {
	var rec model.CanonicalRecord

	venue, err := n.ResolveVenue(row.Venue)
	if err != nil {
		return rec, err
	}
	if row.Timestamp.IsZero() {
		return rec, model.ErrInvalidTimestamp
	}
	if math.IsNaN(row.Entering) || math.IsNaN(row.Inside) || math.IsInf(row.Entering, 0) || math.IsInf(row.Inside, 0) {
		return rec, model.ErrMissingValue
	}
	if row.Entering < 0 || row.Inside < 0 {
		return rec, model.ErrNegativeValue
	}

	date := model.DateOf(row.Timestamp)
	hour := row.Timestamp.Hour()
	if hour < 2 {
		prev := date.AddDate(0, 0, -1)
		lateOpen, err := n.schedule.IsOpen(venue, prev.Weekday(), 24+hour)
		if err != nil {
			return rec, err
		}
		if lateOpen {
			date, hour = prev, 24+hour
		}
	}

	open, err := n.schedule.IsOpen(venue, date.Weekday(), hour)
	if err != nil {
		return rec, err
	}

	return model.CanonicalRecord{
		DateTime: date.Add(time.Duration(hour) * time.Hour),
		Date:     date,
		Hour:     hour,
		Venue:    venue,
		Entering: row.Entering * n.multiplier,
		Inside:   row.Inside,
		IsOpen:   open,
	}, nil
}

// Batch is the outcome of NormalizeBatch.
type Batch struct {
	Records []model.CanonicalRecord
	Errors  []*model.RowError
}

// Err aggregates the row errors, or returns nil when every row was accepted.
func (b Batch) Err() error {
	var result *multierror.Error
	for _, e := range b.Errors {
		result = multierror.Append(result, e)
	}
	return result.ErrorOrNil()
}

// NormalizeBatch normalizes rows in order. Rejected rows are reported and skipped.
func (n *Normalizer) NormalizeBatch(rows []model.RawRow) Batch {
	out := Batch{Records: make([]model.CanonicalRecord, 0, len(rows))}
	for i, row := range rows {
		rec, err := n.Normalize(row)
		if err != nil {
			out.Errors = append(out.Errors, &model.RowError{Index: i, Source: row.Source, Err: err})
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out
}
