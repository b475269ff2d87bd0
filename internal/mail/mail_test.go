package mail_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/foottraffic/internal/domain/model"
	"github.com/tigerroll/foottraffic/internal/mail"
)

func melbourne(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Melbourne")
	require.NoError(t, err)
	return loc
}

func TestDataDate_PreviousDayInReportTimezone(t *testing.T) {
	loc := melbourne(t)

	// 2024-06-02 22:30 UTC is already 2024-06-03 08:30 in Melbourne.
	received := time.Date(2024, time.June, 2, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, model.NewDate(2024, time.June, 2), mail.DataDate(received, loc))
	assert.Equal(t, model.NewDate(2024, time.June, 1), mail.DataDate(received, time.UTC))
	assert.Equal(t, model.NewDate(2024, time.June, 1), mail.DataDate(received, nil))
}

func TestIsReport(t *testing.T) {
	assert.True(t, mail.IsReport("Traffic By Hour - Mel Syd.xlsx", nil))
	assert.True(t, mail.IsReport("daily_traffic.XLSX", nil))
	assert.False(t, mail.IsReport("Traffic By Hour.pdf", nil))
	assert.False(t, mail.IsReport("Invoice.xlsx", nil))
	assert.True(t, mail.IsReport("Mel Syd.xlsx", []string{"mel"}))
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, time.June, 30, 12, 0, 0, 0, time.UTC)
	w := mail.NewWindow(now, 30)
	assert.Equal(t, time.Date(2024, time.May, 31, 12, 0, 0, 0, time.UTC), w.After)
	assert.True(t, w.Contains(now))
	assert.False(t, w.Contains(w.After.Add(-time.Second)))
	assert.True(t, mail.Window{}.Contains(time.Time{}))
}

func TestSelectLatest_NewestPerDataDateInReceiveOrder(t *testing.T) {
	loc := melbourne(t)
	at := func(day, hour int) time.Time {
		return time.Date(2024, time.June, day, hour, 0, 0, 0, loc)
	}
	atts := []mail.Attachment{
		{Name: "b", MessageID: "m2", ReceivedAt: at(4, 7)},
		{Name: "a-resend", MessageID: "m3", ReceivedAt: at(3, 18)},
		{Name: "a", MessageID: "m1", ReceivedAt: at(3, 7)},
		{Name: "c", MessageID: "m0", ReceivedAt: at(2, 7)},
	}

	got := mail.SelectLatest(atts, loc)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Name)
	assert.Equal(t, "a-resend", got[1].Name)
	assert.Equal(t, "b", got[2].Name)
}

func TestSelectLatest_TieBrokenByMessageID(t *testing.T) {
	ts := time.Date(2024, time.June, 3, 7, 0, 0, 0, time.UTC)
	got := mail.SelectLatest([]mail.Attachment{
		{Name: "y", MessageID: "b", ReceivedAt: ts},
		{Name: "x", MessageID: "a", ReceivedAt: ts},
	}, time.UTC)
	require.Len(t, got, 1)
	assert.Equal(t, "y", got[0].Name)
}
