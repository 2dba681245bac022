package loader

import (
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/surveydash/engine"
	"github.com/spektr-org/surveydash/schema"
)

// ============================================================================
// DATASET — One loaded CSV
// ============================================================================

// Dataset is a parsed CSV with its provenance.
type Dataset struct {
	Source      string     `json:"source"`
	Encoding    string     `json:"encoding"`
	Header      []string   `json:"header"`
	Keys        []string   `json:"keys"`
	Rows        [][]string `json:"-"`
	LoadedAt    time.Time  `json:"loadedAt"`
	SkippedRows int        `json:"skippedRows"`
}

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Head returns up to n leading rows. n <= 0 returns none.
func (d *Dataset) Head(n int) [][]string {
	if n <= 0 {
		return [][]string{}
	}
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	return d.Rows[:n]
}

// ColumnIndex finds a column by header or key, ignoring case and punctuation.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	key := schema.ColumnKey(name)
	for i, k := range d.Keys {
		if k == key || k == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns every cell of the named column, or false if it is absent.
func (d *Dataset) Column(name string) ([]string, bool) {
	idx, ok := d.ColumnIndex(name)
	if !ok {
		return nil, false
	}
	col := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		col[i] = row[idx]
	}
	return col, true
}

// Fields pairs each key with its header, in CSV order.
func (d *Dataset) Fields() []engine.Field {
	fields := make([]engine.Field, len(d.Keys))
	for i, k := range d.Keys {
		fields[i] = engine.Field{Key: k, Label: d.Header[i]}
	}
	return fields
}

// Records converts rows into engine records. Every non-empty cell is a
// dimension value; cells that parse as numbers are measure values too.
func (d *Dataset) Records() []engine.Record {
	records := make([]engine.Record, 0, len(d.Rows))
	for _, row := range d.Rows {
		rec := engine.Record{
			Dimensions: make(map[string]string, len(d.Keys)),
			Measures:   make(map[string]float64),
		}
		for i, val := range row {
			if val == "" {
				continue
			}
			key := d.Keys[i]
			rec.Dimensions[key] = val
			if f, ok := ParseNumber(val); ok {
				rec.Measures[key] = f
			}
		}
		records = append(records, rec)
	}
	return records
}

// View wraps the records in an engine.RecordView that keeps CSV column order.
func (d *Dataset) View() engine.RecordView {
	return engine.NewSliceView(d.Records(), d.Fields()...)
}

// ParseNumber accepts plain numbers plus "1,234" and "85%" style cells.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
