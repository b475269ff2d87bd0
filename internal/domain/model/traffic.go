// Package model holds the foot-traffic domain types shared by the pipeline stages.
package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Venue identifies a counted venue.
type Venue string

const (
	VenueMelbourne Venue = "Melbourne"
	VenueSydney    Venue = "Sydney"
)

// Venues lists every known venue in export order.
var Venues = []Venue{VenueMelbourne, VenueSydney}

// Valid reports whether v is a known venue.
func (v Venue) Valid() bool {
	for _, known := range Venues {
		if v == known {
			return true
		}
	}
	return false
}

// String returns the venue name.
func (v Venue) String() string {
	return string(v)
}

// MaxHour is the last hour on the business-day axis. Hours 24..26 are the
// early morning of the following calendar day.
const MaxHour = 26

var (
	ErrUnknownVenue     = errors.New("unknown venue")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrMissingValue     = errors.New("missing numeric value")
	ErrNegativeValue    = errors.New("negative count")
	ErrHourOutOfRange   = errors.New("hour out of range")
)

// RawRow is one venue/hour observation as read from a report, before normalization.
// Entering and Inside are NaN when the cell could not be read.
type RawRow struct {
	Venue     string
	Timestamp time.Time
	Entering  float64
	Inside    float64

	// Source and ReceivedAt are provenance only and are never persisted.
	Source     string
	ReceivedAt time.Time
}

// CanonicalRecord is one normalized hourly record of the persisted series.
type CanonicalRecord struct {
	// DateTime is Date plus Hour hours, naive (UTC location, venue-local wall clock).
	DateTime time.Time
	// Date is the business date at midnight.
	Date     time.Time
	Hour     int
	Venue    Venue
	Entering float64
	Inside   float64
	IsOpen   bool
}

// Key returns the natural key of the record.
func (r CanonicalRecord) Key() Key {
	return Key{Venue: r.Venue, DateTime: r.DateTime}
}

// Validate checks the structural constraints every stored record satisfies.
func (r CanonicalRecord) Validate() error {
	if r.DateTime.IsZero() {
		return ErrInvalidTimestamp
	}
	if !r.Venue.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownVenue, string(r.Venue))
	}
	if r.Hour < 0 || r.Hour > MaxHour {
		return fmt.Errorf("%w: %d", ErrHourOutOfRange, r.Hour)
	}
	if r.Entering != r.Entering || r.Inside != r.Inside {
		return ErrMissingValue
	}
	if r.Entering < 0 || r.Inside < 0 {
		return ErrNegativeValue
	}
	return nil
}

// Key is the natural key of the series: at most one record per venue and hour.
type Key struct {
	Venue    Venue
	DateTime time.Time
}

// Series is an ordered collection of records, sorted by (DateTime, Venue).
type Series []CanonicalRecord

// Sort orders the series by (DateTime, Venue) in place.
func (s Series) Sort() {
	sort.SliceStable(s, func(i, j int) bool {
		return Less(s[i], s[j])
	})
}

// Less is the series ordering.
func Less(a, b CanonicalRecord) bool {
	if !a.DateTime.Equal(b.DateTime) {
		return a.DateTime.Before(b.DateTime)
	}
	return a.Venue < b.Venue
}

// Span returns the first and last business dates of a sorted, non-empty series.
func (s Series) Span() (first, last time.Time, ok bool) {
	if len(s) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = s[0].Date, s[0].Date
	for _, r := range s[1:] {
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return first, last, true
}

// RowError reports a row that was dropped. It wraps one of the sentinel errors of this package.
type RowError struct {
	Index  int
	Source string
	Err    error
}

func (e *RowError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("row %d (%s): %v", e.Index, e.Source, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Reason maps a row error to a short metric label.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownVenue):
		return "unknown_venue"
	case errors.Is(err, ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, ErrMissingValue):
		return "missing_value"
	case errors.Is(err, ErrNegativeValue):
		return "negative_value"
	case errors.Is(err, ErrHourOutOfRange):
		return "hour_out_of_range"
	default:
		return "other"
	}
}

// NewDate returns the naive midnight of the given calendar date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf strips the time of day and location of t, keeping its wall-clock calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}
