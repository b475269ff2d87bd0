// Package mail retrieves the e-mailed traffic reports.
//
// A Source returns every candidate attachment received inside a Window. SelectLatest then
// keeps one attachment per data date, the newest received, which is the report the
// pipeline ingests for that date.
package mail

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/tigerroll/foottraffic/internal/domain/model"
)

const moduleName = "mail"

// DefaultKeywords are the file name fragments identifying a traffic report.
var DefaultKeywords = []string{"traffic"}

// Attachment is one report file with the time its message was received.
type Attachment struct {
	Name       string
	Content    []byte
	ReceivedAt time.Time
	MessageID  string
}

// Window bounds a fetch to messages received after After.
type Window struct {
	After time.Time
}

// NewWindow returns the window covering the last days days before now.
func NewWindow(now time.Time, days int) Window {
	return Window{After: now.AddDate(0, 0, -days)}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return w.After.IsZero() || !t.Before(w.After)
}

// Source fetches report attachments.
type Source interface {
	// Fetch returns the report attachments received inside w, in no particular order.
	Fetch(ctx context.Context, w Window) ([]Attachment, error)
}

// DataDate returns the business date an attachment reports on: the day before it was
// received, in loc.
func DataDate(receivedAt time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return model.DateOf(receivedAt.In(loc)).AddDate(0, 0, -1)
}

// IsReport reports whether name looks like a traffic report workbook: an .xlsx file whose
// name contains one of keywords, compared case-insensitively.
func IsReport(name string, keywords []string) bool {
	lower := strings.ToLower(path.Base(name))
	if !strings.HasSuffix(lower, ".xlsx") {
		return false
	}
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// SelectLatest keeps the newest attachment for every data date and returns them in
// ascending ReceivedAt order, so that merging in order lets the latest report win.
func SelectLatest(atts []Attachment, loc *time.Location) []Attachment {
	latest := make(map[time.Time]Attachment, len(atts))
	for _, a := range atts {
		d := DataDate(a.ReceivedAt, loc)
		cur, ok := latest[d]
		if !ok || a.ReceivedAt.After(cur.ReceivedAt) ||
			(a.ReceivedAt.Equal(cur.ReceivedAt) && a.MessageID > cur.MessageID) {
			latest[d] = a
		}
	}

	out := make([]Attachment, 0, len(latest))
	for _, a := range latest {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.Before(out[j].ReceivedAt)
		}
		return out[i].MessageID < out[j].MessageID
	})
	return out
}
