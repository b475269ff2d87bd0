package model_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/foottraffic/internal/domain/model"
)

func record(venue model.Venue, date time.Time, hour int) model.CanonicalRecord {
	return model.CanonicalRecord{
		DateTime: date.Add(time.Duration(hour) * time.Hour),
		Date:     date,
		Hour:     hour,
		Venue:    venue,
	}
}

func TestVenueValid(t *testing.T) {
	assert.True(t, model.VenueMelbourne.Valid())
	assert.True(t, model.VenueSydney.Valid())
	assert.False(t, model.Venue("Brisbane").Valid())
	assert.False(t, model.Venue("").Valid())
}

func TestCanonicalRecordValidate(t *testing.T) {
	day := model.NewDate(2024, time.March, 4)

	require.NoError(t, record(model.VenueSydney, day, 25).Validate())

	cases := map[string]struct {
		rec  model.CanonicalRecord
		want error
	}{
		"zero datetime": {model.CanonicalRecord{Venue: model.VenueSydney}, model.ErrInvalidTimestamp},
		"venue":         {record("Perth", day, 12), model.ErrUnknownVenue},
		"hour":          {record(model.VenueSydney, day, 27), model.ErrHourOutOfRange},
		"negative": {func() model.CanonicalRecord {
			r := record(model.VenueSydney, day, 12)
			r.Inside = -1
			return r
		}(), model.ErrNegativeValue},
		"nan": {func() model.CanonicalRecord {
			r := record(model.VenueSydney, day, 12)
			r.Entering = math.NaN()
			return r
		}(), model.ErrMissingValue},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, tc.rec.Validate(), tc.want)
		})
	}
}

func TestSeriesSortAndSpan(t *testing.T) {
	mon := model.NewDate(2024, time.March, 4)
	tue := mon.AddDate(0, 0, 1)
	s := model.Series{
		record(model.VenueSydney, tue, 12),
		record(model.VenueSydney, mon, 24),
		record(model.VenueMelbourne, mon, 24),
		record(model.VenueMelbourne, mon, 12),
	}
	s.Sort()

	assert.Equal(t, model.VenueMelbourne, s[0].Venue)
	assert.Equal(t, 12, s[0].Hour)
	assert.Equal(t, model.VenueMelbourne, s[1].Venue)
	assert.Equal(t, model.VenueSydney, s[2].Venue)
	assert.Equal(t, tue, s[3].Date)

	first, last, ok := s.Span()
	require.True(t, ok)
	assert.Equal(t, mon, first)
	assert.Equal(t, tue, last)

	_, _, ok = model.Series{}.Span()
	assert.False(t, ok)
}

func TestRowErrorUnwrapAndReason(t *testing.T) {
	err := &model.RowError{Index: 3, Source: "report.xlsx", Err: model.ErrUnknownVenue}
	assert.True(t, errors.Is(err, model.ErrUnknownVenue))
	assert.Equal(t, "row 3 (report.xlsx): unknown venue", err.Error())
	assert.Equal(t, "unknown_venue", model.Reason(err))
	assert.Equal(t, "other", model.Reason(errors.New("boom")))
}

func TestDateOf(t *testing.T) {
	loc, err := time.LoadLocation("Australia/Melbourne")
	require.NoError(t, err)
	ts := time.Date(2024, time.March, 4, 23, 30, 0, 0, loc)
	assert.Equal(t, model.NewDate(2024, time.March, 4), model.DateOf(ts))
}
