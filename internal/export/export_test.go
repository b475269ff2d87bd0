package export_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/foottraffic/internal/domain/aggregate"
	"github.com/tigerroll/foottraffic/internal/domain/model"
	"github.com/tigerroll/foottraffic/internal/export"
	storageConfig "github.com/tigerroll/foottraffic/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/storage/local"
)

func buckets() []aggregate.Bucket {
	return []aggregate.Bucket{
		{Key: aggregate.Key{Venue: model.VenueMelbourne, Weekday: time.Monday, Hour: 12}, MeanEntering: 95.0 / 3, MeanInside: 10.006, Samples: 3, IsOpen: true},
		{Key: aggregate.Key{Venue: model.VenueSydney, Weekday: time.Saturday, Hour: 25}, MeanEntering: 0.125, MeanInside: 0, Samples: 1, IsOpen: true},
	}
}

func TestEntries_RoundsAndNamesWeekdays(t *testing.T) {
	got := export.Entries(buckets())
	require.Len(t, got, 2)
	assert.Equal(t, export.Entry{Venue: "Melbourne", DayOfWeek: "Monday", Hour: 12, Entering: 31.67, Inside: 10.01, IsOpen: true, Samples: 3}, got[0])
	assert.Equal(t, "Saturday", got[1].DayOfWeek)
	assert.Equal(t, 25, got[1].Hour)
	assert.Equal(t, 0.13, got[1].Entering)
}

func TestEncode_FieldNamesAndEmptyList(t *testing.T) {
	data, err := export.Encode(export.Entries(buckets())[:1], false)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Venue":"Melbourne","DayOfWeek":"Monday","Hour":12,"Entering":31.67,"Inside":10.01,"IsOpen":true,"Samples":3}]`, string(data))

	data, err = export.Encode(nil, true)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestExporter_Export(t *testing.T) {
	ctx := context.Background()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "data")
	require.NoError(t, err)

	n, err := export.NewExporter(conn, "dashboard/traffic_data_compact.json", true).Export(ctx, buckets())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rc, err := conn.Download(ctx, "", "dashboard/traffic_data_compact.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	var entries []export.Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Equal(t, export.Entries(buckets()), entries)
}
