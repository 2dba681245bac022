// Package export writes evaluated dashboard pages as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/surveydash/engine"
)

// ============================================================================
// WORKBOOK — one page → one .xlsx
// ============================================================================
// Sheet 1 "Summary" lists every widget with its type, reply and warnings.
// Each widget that produced data gets its own sheet:
//   category chart → label column + one column per series
//   scatter        → series, x, y
//   box            → five-number summary per box
//   table          → the table as shown
//   metric         → label, value, count
// ============================================================================

const summarySheet = "Summary"

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

// Workbook writes results to w as an xlsx file.
func Workbook(w io.Writer, pageTitle string, results []*engine.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	sw := &sheetWriter{f: f}
	sw.row(summarySheet, 1, pageTitle)
	sw.row(summarySheet, 3, "Widget", "Type", "Result", "Warnings")
	sw.widths(summarySheet, 36, 10, 48, 60)

	used := map[string]bool{strings.ToLower(summarySheet): true}
	for i, r := range results {
		if r == nil {
			continue
		}
		sw.row(summarySheet, 4+i, r.Title, r.Type, r.Reply, strings.Join(r.Warnings, "; "))

		if !hasSheetData(r) {
			continue
		}
		name := sheetName(r.Title, i+1, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("export: sheet %q: %w", name, err)
		}
		switch {
		case r.ChartConfig != nil:
			writeChart(sw, name, r.ChartConfig)
		case r.TableData != nil:
			writeTable(sw, name, r.TableData)
		case r.Data != nil:
			writeMetric(sw, name, r.Data)
		}
	}

	if sw.err != nil {
		return fmt.Errorf("export: %w", sw.err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	return nil
}

func hasSheetData(r *engine.Result) bool {
	return r.ChartConfig != nil || r.TableData != nil || r.Data != nil
}

// ============================================================================
// SHEET WRITERS
// ============================================================================

func writeChart(sw *sheetWriter, sheet string, c *engine.ChartConfig) {
	switch c.ChartType {
	case engine.VisualScatter:
		sw.row(sheet, 1, "Series", c.XAxis, c.YAxis)
		r := 2
		for _, s := range c.Series {
			for _, p := range s.Points {
				sw.row(sheet, r, s.Name, p.X, p.Y)
				r++
			}
		}
		sw.widths(sheet, 20, 14, 14)

	case engine.VisualBox:
		sw.row(sheet, 1, c.XAxis, "Count", "Min", "Q1", "Median", "Q3", "Max", "Lower whisker", "Upper whisker", "Outliers")
		for i, b := range c.Boxes {
			sw.row(sheet, i+2, b.Label, b.Count, b.Min, b.Q1, b.Median, b.Q3, b.Max,
				b.LowerWhisker, b.UpperWhisker, len(b.Outliers))
		}
		sw.widths(sheet, 24)

	default:
		header := []interface{}{c.XAxis}
		labels := chartLabels(c.Series)
		for _, s := range c.Series {
			header = append(header, s.Name)
		}
		sw.row(sheet, 1, header...)
		for i, label := range labels {
			cells := []interface{}{label}
			for _, s := range c.Series {
				cells = append(cells, pointValue(s, label))
			}
			sw.row(sheet, i+2, cells...)
		}
		sw.widths(sheet, 28)
	}
}

func writeTable(sw *sheetWriter, sheet string, t *engine.TableData) {
	header := make([]interface{}, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col.Label
	}
	sw.row(sheet, 1, header...)
	for i, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		sw.row(sheet, i+2, cells...)
	}
	if t.Summary != nil {
		cells := make([]interface{}, len(t.Columns))
		if len(cells) > 0 {
			cells[0] = t.Summary.Label
		}
		for j, col := range t.Columns {
			if v, ok := t.Summary.Values[col.Key]; ok && j > 0 {
				cells[j] = v
			}
		}
		sw.row(sheet, len(t.Rows)+2, cells...)
	}
	sw.widths(sheet, 24)
}

func writeMetric(sw *sheetWriter, sheet string, d *engine.TextData) {
	sw.row(sheet, 1, "Label", "Value", "Count")
	sw.row(sheet, 2, d.Label, d.RawValue, d.Count)
	sw.widths(sheet, 36, 14, 10)
}

// ============================================================================
// HELPERS
// ============================================================================

// sheetWriter keeps the first cell error so callers check once.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (sw *sheetWriter) row(sheet string, r int, values ...interface{}) {
	for c, v := range values {
		if sw.err != nil {
			return
		}
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(c+1, r)
		if err != nil {
			sw.err = err
			return
		}
		sw.err = sw.f.SetCellValue(sheet, cell, v)
	}
}

// widths sets column widths from A onwards.
func (sw *sheetWriter) widths(sheet string, widths ...float64) {
	for i, w := range widths {
		if sw.err != nil {
			return
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			sw.err = err
			return
		}
		sw.err = sw.f.SetColWidth(sheet, col, col, w)
	}
}

func chartLabels(series []engine.ChartSeries) []string {
	var labels []string
	seen := make(map[string]bool)
	for _, s := range series {
		for _, p := range s.Data {
			if !seen[p.Label] {
				seen[p.Label] = true
				labels = append(labels, p.Label)
			}
		}
	}
	return labels
}

// pointValue returns the series value at label, or nil for a blank cell.
func pointValue(s engine.ChartSeries, label string) interface{} {
	for _, p := range s.Data {
		if p.Label == label {
			return p.Value
		}
	}
	return nil
}

// sheetName makes a unique, Excel-safe sheet name from a widget title.
func sheetName(title string, n int, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return ' '
		}
		return r
	}, title)
	name = strings.Trim(strings.Join(strings.Fields(name), " "), "'")
	if name == "" {
		name = fmt.Sprintf("Widget %d", n)
	}
	name = truncateRunes(name, maxSheetName)

	base := name
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
