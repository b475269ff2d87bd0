// Package schedule answers whether a venue is open at a given hour of the business day.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tigerroll/foottraffic/internal/domain/model"
)

// HourRange is a half-open range [Open, Close) on the business-day hour axis.
// A range with Open == Close is closed all day.
type HourRange struct {
	Open  int `yaml:"open"`
	Close int `yaml:"close"`
}

// Contains reports whether hour falls inside the range.
func (r HourRange) Contains(hour int) bool {
	return hour >= r.Open && hour < r.Close
}

func (r HourRange) validate() error {
	if r.Open < 0 || r.Close > model.MaxHour || r.Open > r.Close {
		return fmt.Errorf("invalid hour range [%d, %d): want 0 <= open <= close <= %d", r.Open, r.Close, model.MaxHour)
	}
	return nil
}

type week [7]HourRange

// Schedule is an immutable venue → weekday → opening range table.
type Schedule struct {
	venues map[model.Venue]week
}

// Default returns the standard trading hours, the same for every venue:
// Sun-Thu 12:00 to 23:00, Fri until 01:00 and Sat until 02:00 the next morning.
func Default() *Schedule {
	w := week{
		time.Sunday:    {Open: 12, Close: 23},
		time.Monday:    {Open: 12, Close: 23},
		time.Tuesday:   {Open: 12, Close: 23},
		time.Wednesday: {Open: 12, Close: 23},
		time.Thursday:  {Open: 12, Close: 23},
		time.Friday:    {Open: 12, Close: 25},
		time.Saturday:  {Open: 12, Close: 26},
	}
	s := &Schedule{venues: make(map[model.Venue]week, len(model.Venues))}
	for _, v := range model.Venues {
		s.venues[v] = w
	}
	return s
}

// Definition is the configuration form of a schedule: venue name → weekday name → range.
// Weekdays missing from a venue keep their default range; venues missing from the
// definition keep the default week.
type Definition map[string]map[string]HourRange

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// FromDefinition builds a schedule by overlaying def onto Default.
func FromDefinition(def Definition) (*Schedule, error) {
	s := Default()
	venueNames := make([]string, 0, len(def))
	for name := range def {
		venueNames = append(venueNames, name)
	}
	sort.Strings(venueNames)

	for _, name := range venueNames {
		venue, ok := venueByName(name)
		if !ok {
			return nil, fmt.Errorf("schedule: %w: %q", model.ErrUnknownVenue, name)
		}
		w := s.venues[venue]
		for dayName, r := range def[name] {
			day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(dayName))]
			if !ok {
				return nil, fmt.Errorf("schedule: venue %s: unknown weekday %q", venue, dayName)
			}
			if err := r.validate(); err != nil {
				return nil, fmt.Errorf("schedule: venue %s %s: %w", venue, day, err)
			}
			w[day] = r
		}
		s.venues[venue] = w
	}
	return s, nil
}

func venueByName(name string) (model.Venue, bool) {
	for _, v := range model.Venues {
		if strings.EqualFold(strings.TrimSpace(name), string(v)) {
			return v, true
		}
	}
	return "", false
}

// IsOpen reports whether venue is open at hour of the business day falling on weekday.
func (s *Schedule) IsOpen(venue model.Venue, weekday time.Weekday, hour int) (bool, error) {
	w, ok := s.venues[venue]
	if !ok {
		return false, fmt.Errorf("%w: %q", model.ErrUnknownVenue, string(venue))
	}
	if hour < 0 || hour > model.MaxHour {
		return false, fmt.Errorf("%w: %d", model.ErrHourOutOfRange, hour)
	}
	if weekday < time.Sunday || weekday > time.Saturday {
		return false, fmt.Errorf("schedule: invalid weekday %d", weekday)
	}
	return w[weekday].Contains(hour), nil
}

// Range returns the opening range of venue on weekday.
func (s *Schedule) Range(venue model.Venue, weekday time.Weekday) (HourRange, bool) {
	w, ok := s.venues[venue]
	if !ok || weekday < time.Sunday || weekday > time.Saturday {
		return HourRange{}, false
	}
	return w[weekday], true
}
