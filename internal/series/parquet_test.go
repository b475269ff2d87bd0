package series_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go/parquet"

	"github.com/tigerroll/foottraffic/internal/domain/model"
	"github.com/tigerroll/foottraffic/internal/series"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/foottraffic/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/storage/local"
)

var friday = model.NewDate(2024, time.June, 7)

func rec(venue model.Venue, date time.Time, hour int, entering, inside float64, open bool) model.CanonicalRecord {
	return model.CanonicalRecord{
		DateTime: date.Add(time.Duration(hour) * time.Hour),
		Date:     date,
		Hour:     hour,
		Venue:    venue,
		Entering: entering,
		Inside:   inside,
		IsOpen:   open,
	}
}

func sample() model.Series {
	s := model.Series{
		rec(model.VenueMelbourne, friday, 0, 0, 0, false),
		rec(model.VenueMelbourne, friday, 12, 95, 40.5, true),
		rec(model.VenueSydney, friday, 12, 47.5, 12, true),
		rec(model.VenueMelbourne, friday, 24, 8.55, 3, true),
		rec(model.VenueSydney, friday, 25, 0.95, 1, false),
	}
	s.Sort()
	return s
}

func newLocal(t *testing.T) storage.StorageConnection {
	t.Helper()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "data")
	require.NoError(t, err)
	return conn
}

func TestEncodeDecode_PreservesAllFields(t *testing.T) {
	for _, codec := range []parquet.CompressionCodec{
		parquet.CompressionCodec_SNAPPY,
		parquet.CompressionCodec_GZIP,
		parquet.CompressionCodec_UNCOMPRESSED,
	} {
		t.Run(codec.String(), func(t *testing.T) {
			data, err := series.Encode(sample(), codec)
			require.NoError(t, err)

			got, err := series.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, sample(), got)
		})
	}
}

func TestEncodeDecode_Empty(t *testing.T) {
	data, err := series.Encode(model.Series{}, parquet.CompressionCodec_SNAPPY)
	require.NoError(t, err)

	got, err := series.Decode(data)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecode_GarbageFails(t *testing.T) {
	_, err := series.Decode([]byte("definitely not parquet"))
	assert.Error(t, err)
}

func TestCompressionCodec(t *testing.T) {
	codec, err := series.CompressionCodec("gzip")
	require.NoError(t, err)
	assert.Equal(t, parquet.CompressionCodec_GZIP, codec)

	codec, err = series.CompressionCodec("")
	require.NoError(t, err)
	assert.Equal(t, parquet.CompressionCodec_SNAPPY, codec)

	_, err = series.CompressionCodec("lz77")
	assert.Error(t, err)
}

func TestParquetStore_LoadMissingIsEmpty(t *testing.T) {
	store, err := series.NewParquetStore(newLocal(t), "hourly_foot_traffic.parquet", "snappy")
	require.NoError(t, err)

	s, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Empty(t, s)
}

func TestParquetStore_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	conn := newLocal(t)
	store, err := series.NewParquetStore(conn, "series/hourly_foot_traffic.parquet", "snappy")
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, sample()))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)

	// Saving again replaces the object.
	shorter := sample()[:2]
	require.NoError(t, store.Save(ctx, shorter))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, shorter, got)
}

func TestParquetStore_CorruptObjectFails(t *testing.T) {
	ctx := context.Background()
	conn := newLocal(t)
	require.NoError(t, conn.Upload(ctx, "", "bad.parquet", bytes.NewBufferString("PAR1 nope"), "application/octet-stream"))

	store, err := series.NewParquetStore(conn, "bad.parquet", "snappy")
	require.NoError(t, err)
	_, err = store.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestNewParquetStore_RejectsUnknownCompression(t *testing.T) {
	_, err := series.NewParquetStore(newLocal(t), "x.parquet", "brotli9000")
	assert.Error(t, err)
}
