// Package stats computes whole-dataset summaries.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/spektr-org/surveydash/engine"
	"github.com/spektr-org/surveydash/loader"
)

// ============================================================================
// DESCRIBE — per-column summary of a dataset
// ============================================================================
// Numeric columns: count, mean, std, min, 25%, 50%, 75%, max.
// Text columns:    count, unique, top, freq.
// Empty cells are missing values and never counted.
// ============================================================================

// Column kinds.
const (
	KindNumeric = "numeric"
	KindText    = "text"
)

// ColumnSummary describes one column.
type ColumnSummary struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	Count int    `json:"count"`
	Null  int    `json:"null"`

	// numeric
	Mean   float64 `json:"mean,omitempty"`
	Std    float64 `json:"std,omitempty"` // sample deviation; 0 below two values
	Min    float64 `json:"min,omitempty"`
	Q1     float64 `json:"q1,omitempty"`
	Median float64 `json:"median,omitempty"`
	Q3     float64 `json:"q3,omitempty"`
	Max    float64 `json:"max,omitempty"`

	// text
	Unique int    `json:"unique,omitempty"`
	Top    string `json:"top,omitempty"`
	Freq   int    `json:"freq,omitempty"`
}

// Describe summarizes every column of ds in CSV order.
func Describe(ds *loader.Dataset) ([]ColumnSummary, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, loader.ErrEmpty
	}

	records := make([][]string, 0, ds.Len()+1)
	records = append(records, ds.Keys)
	records = append(records, ds.Rows...)

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues([]string{"", "NA", "NaN", "N/A", "n/a", "null"}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("describe: %w", df.Err)
	}

	out := make([]ColumnSummary, 0, len(ds.Keys))
	for i, key := range ds.Keys {
		s := df.Col(key)
		if s.Err != nil {
			return nil, fmt.Errorf("describe %q: %w", key, s.Err)
		}

		summary := ColumnSummary{Key: key, Label: ds.Header[i]}
		switch s.Type() {
		case series.Int, series.Float:
			describeNumeric(&summary, s)
		default:
			describeText(&summary, s)
		}
		out = append(out, summary)
	}
	return out, nil
}

func describeNumeric(c *ColumnSummary, s series.Series) {
	c.Kind = KindNumeric

	values := make([]float64, 0, s.Len())
	for _, v := range s.Float() {
		if math.IsNaN(v) {
			c.Null++
			continue
		}
		values = append(values, v)
	}
	c.Count = len(values)
	if c.Count == 0 {
		return
	}

	clean := series.Floats(values)
	c.Mean = engine.RoundTo2(clean.Mean())
	if c.Count > 1 {
		c.Std = engine.RoundTo2(clean.StdDev())
	}
	c.Min = clean.Min()
	c.Max = clean.Max()

	sort.Float64s(values)
	c.Q1 = engine.RoundTo2(engine.Quantile(values, 0.25))
	c.Median = engine.RoundTo2(engine.Quantile(values, 0.5))
	c.Q3 = engine.RoundTo2(engine.Quantile(values, 0.75))
}

func describeText(c *ColumnSummary, s series.Series) {
	c.Kind = KindText

	counts := make(map[string]int)
	var order []string
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			c.Null++
			continue
		}
		v := e.String()
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
		c.Count++
	}

	c.Unique = len(order)
	for _, v := range order {
		if counts[v] > c.Freq {
			c.Top = v
			c.Freq = counts[v]
		}
	}
}
