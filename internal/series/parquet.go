// Package series persists the hourly foot-traffic series.
package series

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/foottraffic/internal/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/storage"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

const moduleName = "store"

// Store loads and saves the whole series.
type Store interface {
	// Load returns the stored series, or an empty series when nothing has been stored yet.
	Load(ctx context.Context) (model.Series, error)
	// Save replaces the stored series.
	Save(ctx context.Context, s model.Series) error
}

// parquetRow is the on-disk layout of one record.
type parquetRow struct {
	DateTime int64   `parquet:"name=DateTime, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Date     int32   `parquet:"name=Date, type=INT32, convertedtype=DATE"`
	Hour     int64   `parquet:"name=Hour, type=INT64"`
	Venue    string  `parquet:"name=Venue, type=BYTE_ARRAY, convertedtype=UTF8"`
	Entering float64 `parquet:"name=Entering, type=DOUBLE"`
	Inside   float64 `parquet:"name=Inside, type=DOUBLE"`
	IsOpen   bool    `parquet:"name=IsOpen, type=BOOLEAN"`
}

const day = 24 * time.Hour

func toRow(r model.CanonicalRecord) parquetRow {
	return parquetRow{
		DateTime: r.DateTime.UnixMilli(),
		Date:     int32(r.Date.Unix() / int64(day/time.Second)),
		Hour:     int64(r.Hour),
		Venue:    string(r.Venue),
		Entering: r.Entering,
		Inside:   r.Inside,
		IsOpen:   r.IsOpen,
	}
}

func fromRow(p parquetRow) model.CanonicalRecord {
	return model.CanonicalRecord{
		DateTime: time.UnixMilli(p.DateTime).UTC(),
		Date:     time.Unix(int64(p.Date)*int64(day/time.Second), 0).UTC(),
		Hour:     int(p.Hour),
		Venue:    model.Venue(p.Venue),
		Entering: p.Entering,
		Inside:   p.Inside,
		IsOpen:   p.IsOpen,
	}
}

// CompressionCodec maps a configuration name to a parquet codec.
func CompressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(name) {
	case "", "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "UNCOMPRESSED", "NONE":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return parquet.CompressionCodec_UNCOMPRESSED, fmt.Errorf("unsupported compression type: %s", name)
	}
}

// Encode writes s as a parquet file.
func Encode(s model.Series, codec parquet.CompressionCodec) (data []byte, err error) {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(parquetRow), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = codec

	for _, r := range s {
		if err := pw.Write(toRow(r)); err != nil {
			return nil, fmt.Errorf("failed to write parquet row: %w", err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panicked during WriteStop: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads a parquet file written by Encode.
func Decode(data []byte) (s model.Series, err error) {
	pf, err := buffer.NewBufferFile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet buffer: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet reader panicked: %v", r)
		}
	}()

	pr, err := reader.NewParquetReader(pf, new(parquetRow), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet footer: %w", err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	rows := make([]parquetRow, n)
	if n > 0 {
		if err := pr.Read(&rows); err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	s = make(model.Series, 0, n)
	for _, row := range rows {
		s = append(s, fromRow(row))
	}
	return s, nil
}

// ParquetStore keeps the series as one parquet object on a storage connection.
type ParquetStore struct {
	conn   storage.StorageConnection
	object string
	codec  parquet.CompressionCodec
}

// NewParquetStore creates a ParquetStore writing object on conn with the named compression.
func NewParquetStore(conn storage.StorageConnection, object, compression string) (*ParquetStore, error) {
	codec, err := CompressionCodec(compression)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "invalid series compression", err, false, false)
	}
	return &ParquetStore{conn: conn, object: object, codec: codec}, nil
}

// Load implements Store.
func (s *ParquetStore) Load(ctx context.Context) (model.Series, error) {
	rc, err := s.conn.Download(ctx, "", s.object)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			logger.Infof("ParquetStore: '%s' not found on '%s', starting from an empty series.", s.object, s.conn.Name())
			return model.Series{}, nil
		}
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to download '%s'", s.object), err, false, false)
	}
	data, err := io.ReadAll(rc)
	closeErr := rc.Close()
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read '%s'", s.object), multierror.Append(err, closeErr).ErrorOrNil(), false, false)
	}

	series, err := Decode(data)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to decode '%s'", s.object), err, false, false)
	}
	series.Sort()
	logger.Infof("ParquetStore: loaded %d records from '%s'.", len(series), s.object)
	return series, nil
}

// Save implements Store. The object is replaced in a single upload.
func (s *ParquetStore) Save(ctx context.Context, series model.Series) error {
	data, err := Encode(series, s.codec)
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to encode series", err, false, false)
	}
	if err := s.conn.Upload(ctx, "", s.object, bytes.NewReader(data), "application/vnd.apache.parquet"); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to upload '%s'", s.object), err, false, false)
	}
	logger.Infof("ParquetStore: saved %d records (%d bytes) to '%s'.", len(series), len(data), s.object)
	return nil
}

var _ Store = (*ParquetStore)(nil)
