package aggregate_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/foottraffic/internal/domain/aggregate"
	"github.com/tigerroll/foottraffic/internal/domain/merge"
	"github.com/tigerroll/foottraffic/internal/domain/model"
	"github.com/tigerroll/foottraffic/internal/domain/normalize"
)

var monday = model.NewDate(2024, time.March, 4)

func mondayRows(entering float64) []model.RawRow {
	var rows []model.RawRow
	for _, venue := range []string{"Melbourne", "Sydney"} {
		for h := 0; h < 24; h++ {
			rows = append(rows, model.RawRow{
				Venue:     venue,
				Timestamp: monday.Add(time.Duration(h) * time.Hour),
				Entering:  entering,
				Inside:    80,
			})
		}
	}
	return rows
}

func TestEndToEnd_SingleMonday(t *testing.T) {
	n := normalize.New(nil)
	batch := n.NormalizeBatch(mondayRows(100))
	require.NoError(t, batch.Err())
	require.Len(t, batch.Records, 48)

	series, report := merge.Merge(nil, batch.Records)
	require.Len(t, series, 48)
	assert.Equal(t, 48, report.Inserted)

	for _, r := range series {
		assert.InDelta(t, 95.0, r.Entering, 1e-9)
		assert.Equal(t, 80.0, r.Inside)
		assert.Equal(t, monday, r.Date)
		assert.Equal(t, r.Hour >= 12 && r.Hour <= 22, r.IsOpen, "%s hour %d", r.Venue, r.Hour)
	}

	buckets := aggregate.Aggregate(series)
	require.Len(t, buckets, 48)
	for _, venue := range model.Venues {
		for h := 0; h < 24; h++ {
			b, ok := buckets[aggregate.Key{Venue: venue, Weekday: time.Monday, Hour: h}]
			require.True(t, ok, "%s %d", venue, h)
			assert.InDelta(t, 95.0, b.MeanEntering, 1e-9)
			assert.InDelta(t, 80.0, b.MeanInside, 1e-9)
			assert.Equal(t, 1, b.Samples)
		}
	}
}

func TestEndToEnd_ReingestionUpdatesAggregate(t *testing.T) {
	n := normalize.New(nil)
	series, _ := merge.Merge(nil, n.NormalizeBatch(mondayRows(100)).Records)

	nextMonday := monday.AddDate(0, 0, 7)
	var rows []model.RawRow
	for _, r := range mondayRows(50) {
		r.Timestamp = nextMonday.Add(time.Duration(r.Timestamp.Hour()) * time.Hour)
		rows = append(rows, r)
	}
	series, _ = merge.Merge(series, n.NormalizeBatch(rows).Records)
	require.Len(t, series, 96)

	key := aggregate.Key{Venue: model.VenueSydney, Weekday: time.Monday, Hour: 13}
	before := aggregate.Aggregate(series)[key]
	assert.InDelta(t, (95.0+47.5)/2, before.MeanEntering, 1e-9)
	assert.Equal(t, 2, before.Samples)

	series, report := merge.Merge(series, n.NormalizeBatch(mondayRows(110)).Records)
	require.Len(t, series, 96)
	assert.Equal(t, 48, report.Replaced)

	after := aggregate.Aggregate(series)[key]
	assert.InDelta(t, (104.5+47.5)/2, after.MeanEntering, 1e-9)
	assert.Equal(t, 2, after.Samples)
}

func TestAggregate_ShuffleDeterminism(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	var series model.Series
	for d := 0; d < 28; d++ {
		for h := 0; h <= model.MaxHour; h++ {
			for _, v := range model.Venues {
				date := monday.AddDate(0, 0, d)
				series = append(series, model.CanonicalRecord{
					DateTime: date.Add(time.Duration(h) * time.Hour),
					Date:     date,
					Hour:     h,
					Venue:    v,
					Entering: r.Float64() * 1000,
					Inside:   r.Float64() * 300,
					IsOpen:   h%2 == 0,
				})
			}
		}
	}

	want := aggregate.Aggregate(series)
	for i := 0; i < 10; i++ {
		shuffled := make(model.Series, len(series))
		copy(shuffled, series)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, aggregate.Aggregate(shuffled))
	}
}

func TestAggregate_IsOpenFromLatestRecord(t *testing.T) {
	older := model.CanonicalRecord{Date: monday, DateTime: monday.Add(13 * time.Hour), Hour: 13, Venue: model.VenueMelbourne, IsOpen: false}
	newer := older
	newer.Date = monday.AddDate(0, 0, 7)
	newer.DateTime = newer.Date.Add(13 * time.Hour)
	newer.IsOpen = true

	b := aggregate.Aggregate([]model.CanonicalRecord{newer, older})
	assert.True(t, b[aggregate.Key{Venue: model.VenueMelbourne, Weekday: time.Monday, Hour: 13}].IsOpen)
}

func TestBuckets_SortedMondayFirst(t *testing.T) {
	m := map[aggregate.Key]aggregate.Bucket{}
	for _, k := range []aggregate.Key{
		{Venue: model.VenueSydney, Weekday: time.Monday, Hour: 1},
		{Venue: model.VenueMelbourne, Weekday: time.Sunday, Hour: 12},
		{Venue: model.VenueMelbourne, Weekday: time.Monday, Hour: 13},
		{Venue: model.VenueMelbourne, Weekday: time.Monday, Hour: 12},
	} {
		m[k] = aggregate.Bucket{Key: k}
	}

	got := aggregate.Buckets(m)
	require.Len(t, got, 4)
	assert.Equal(t, aggregate.Key{Venue: model.VenueMelbourne, Weekday: time.Monday, Hour: 12}, got[0].Key)
	assert.Equal(t, aggregate.Key{Venue: model.VenueMelbourne, Weekday: time.Monday, Hour: 13}, got[1].Key)
	assert.Equal(t, aggregate.Key{Venue: model.VenueMelbourne, Weekday: time.Sunday, Hour: 12}, got[2].Key)
	assert.Equal(t, model.VenueSydney, got[3].Venue)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, aggregate.Aggregate(nil))
	assert.Empty(t, aggregate.Buckets(nil))
}
