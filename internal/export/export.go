// Package export writes the dashboard JSON built from the aggregate buckets.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/tigerroll/foottraffic/internal/domain/aggregate"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/storage"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

const moduleName = "export"

// Entry is one element of the exported list.
type Entry struct {
	Venue     string  `json:"Venue"`
	DayOfWeek string  `json:"DayOfWeek"`
	Hour      int     `json:"Hour"`
	Entering  float64 `json:"Entering"`
	Inside    float64 `json:"Inside"`
	IsOpen    bool    `json:"IsOpen"`
	Samples   int     `json:"Samples"`
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Entries converts buckets to export entries, keeping their order.
func Entries(buckets []aggregate.Bucket) []Entry {
	out := make([]Entry, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, Entry{
			Venue:     string(b.Venue),
			DayOfWeek: b.Weekday.String(),
			Hour:      b.Hour,
			Entering:  Round2(b.MeanEntering),
			Inside:    Round2(b.MeanInside),
			IsOpen:    b.IsOpen,
			Samples:   b.Samples,
		})
	}
	return out
}

// Encode marshals entries as a JSON array. An empty list encodes as [].
func Encode(entries []Entry, indent bool) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	if indent {
		return json.MarshalIndent(entries, "", "  ")
	}
	return json.Marshal(entries)
}

// Exporter uploads the dashboard JSON to a storage connection.
type Exporter struct {
	conn   storage.StorageConnection
	object string
	indent bool
}

// NewExporter creates an Exporter.
func NewExporter(conn storage.StorageConnection, object string, indent bool) *Exporter {
	return &Exporter{conn: conn, object: object, indent: indent}
}

// Export writes buckets and returns the number of entries written.
func (e *Exporter) Export(ctx context.Context, buckets []aggregate.Bucket) (int, error) {
	entries := Entries(buckets)
	data, err := Encode(entries, e.indent)
	if err != nil {
		return 0, exception.NewBatchError(moduleName, "failed to encode dashboard JSON", err, false, false)
	}
	if err := e.conn.Upload(ctx, "", e.object, bytes.NewReader(data), "application/json"); err != nil {
		return 0, exception.NewBatchError(moduleName, fmt.Sprintf("failed to upload '%s'", e.object), err, false, false)
	}
	logger.Infof("Exporter: wrote %d buckets to '%s' on '%s'.", len(entries), e.object, e.conn.Name())
	return len(entries), nil
}
