// Package sheet reads the hourly traffic workbook e-mailed by the people counter.
package sheet

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tigerroll/foottraffic/internal/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// DefaultSheet is the sheet holding the previous day's figures.
const DefaultSheet = "Yesterday"

// column layout after the header row.
const (
	colTime = iota
	colMelbourneInside
	colMelbourneEntering
	colSydneyInside
	colSydneyEntering
)

// maxHourIndex bounds whole-number time cells read as hour indexes rather than serial dates.
const maxHourIndex = 100

var summaryWords = []string{"total", "average", "minimum", "maximum"}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04",
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3PM",
	"3 PM",
}

// Parser extracts RawRows from a workbook.
type Parser struct {
	// Sheet is the preferred sheet. The first sheet is used when it is absent.
	Sheet string
}

// NewParser returns a Parser reading DefaultSheet.
func NewParser() *Parser {
	return &Parser{Sheet: DefaultSheet}
}

// Parse reads content and returns two rows (Melbourne, Sydney) per hourly line, stamped with
// dataDate plus the line's hour. A workbook that cannot be read or has no header row yields an
// error and no rows.
func (p *Parser) Parse(content []byte, dataDate time.Time, source string) ([]model.RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", source, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Warnf("Sheet: failed to close workbook %s: %v", source, cerr)
		}
	}()

	sheetName := p.pickSheet(f)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", source)
	}
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet '%s' of %s: %w", sheetName, source, err)
	}

	header := -1
	for i, row := range rows {
		if len(row) > 0 && strings.Contains(row[colTime], "Date") && strings.Contains(row[colTime], "time") {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, fmt.Errorf("no 'Date / time' header row in sheet '%s' of %s", sheetName, source)
	}

	date := model.DateOf(dataDate)
	var out []model.RawRow
	for i := header + 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || strings.TrimSpace(row[colTime]) == "" {
			continue
		}
		if isSummary(row[colTime]) {
			continue
		}
		hour, err := parseHour(row[colTime])
		if err != nil {
			logger.Debugf("Sheet: %s line %d skipped: %v", source, i+1, err)
			continue
		}
		if hour < 0 || hour > model.MaxHour {
			logger.Debugf("Sheet: %s line %d skipped: hour %d out of range", source, i+1, hour)
			continue
		}
		ts := date.Add(time.Duration(hour) * time.Hour)
		out = append(out,
			model.RawRow{
				Venue:     string(model.VenueMelbourne),
				Timestamp: ts,
				Entering:  cellNumber(row, colMelbourneEntering),
				Inside:    cellNumber(row, colMelbourneInside),
				Source:    source,
			},
			model.RawRow{
				Venue:     string(model.VenueSydney),
				Timestamp: ts,
				Entering:  cellNumber(row, colSydneyEntering),
				Inside:    cellNumber(row, colSydneyInside),
				Source:    source,
			},
		)
	}
	logger.Debugf("Sheet: %s: %d rows from sheet '%s' for %s.", source, len(out), sheetName, date.Format("2006-01-02"))
	return out, nil
}

func (p *Parser) pickSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	for _, s := range sheets {
		if p.Sheet != "" && s == p.Sheet {
			return s
		}
	}
	if len(sheets) == 0 {
		return ""
	}
	return sheets[0]
}

func isSummary(cell string) bool {
	lower := strings.ToLower(cell)
	for _, w := range summaryWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// parseHour reads the hour of a time cell. Small whole numbers are hour indexes; other
// numbers are spreadsheet serial date-times; text is tried against common layouts.
func parseHour(cell string) (int, error) {
	s := strings.TrimSpace(cell)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v == math.Trunc(v) && v < maxHourIndex {
			return int(v), nil
		}
		if v < 0 {
			return 0, fmt.Errorf("negative serial time %q", cell)
		}
		// Serial fractions carry float noise; round to the nearest minute first.
		minutes := int(math.Round((v - math.Floor(v)) * 24 * 60))
		return (minutes / 60) % 24, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), nil
		}
	}
	return 0, fmt.Errorf("unreadable time %q", cell)
}

// cellNumber reads a count cell; empty, dashes and text count as zero.
func cellNumber(row []string, col int) float64 {
	if col >= len(row) {
		return 0
	}
	s := strings.ReplaceAll(strings.TrimSpace(row[col]), ",", "")
	if s == "" || s == "-" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
