package engine

import (
	"math"
	"sort"
	"strings"
)

// ============================================================================
// DISTRIBUTIONS — raw pass-through for box and scatter plots
// ============================================================================

// Quantile returns the p-quantile of sorted values using linear
// interpolation between closest ranks (the dataframe default).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Summarize computes the five-number summary of values. Whiskers reach the
// furthest values within 1.5 IQR of the box; anything beyond is an outlier.
func Summarize(label string, values []float64) BoxSummary {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	b := BoxSummary{Label: label, Count: len(sorted), Values: sorted}
	if len(sorted) == 0 {
		return b
	}

	b.Min = sorted[0]
	b.Max = sorted[len(sorted)-1]
	b.Q1 = Quantile(sorted, 0.25)
	b.Median = Quantile(sorted, 0.5)
	b.Q3 = Quantile(sorted, 0.75)

	iqr := b.Q3 - b.Q1
	lowFence := b.Q1 - 1.5*iqr
	highFence := b.Q3 + 1.5*iqr

	b.LowerWhisker = b.Q1
	b.UpperWhisker = b.Q3
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		if v < b.LowerWhisker {
			b.LowerWhisker = v
		}
		if v > b.UpperWhisker {
			b.UpperWhisker = v
		}
	}
	return b
}

// BoxStats summarizes a column, optionally split by a grouping column.
// Groups without numeric cells are left out.
func BoxStats(view RecordView, measure string, groupBy string, sortBy string) []BoxSummary {
	if groupBy == "" {
		vals := MeasureValues(view, measure)
		if len(vals) == 0 {
			return nil
		}
		return []BoxSummary{Summarize(view.Label(measure), vals)}
	}

	groups := groupBySingle(view, groupBy)
	SortGroups(groups, sortBy)

	boxes := make([]BoxSummary, 0, len(groups))
	for _, g := range groups {
		vals := MeasureValues(g.View, measure)
		if len(vals) == 0 {
			continue
		}
		boxes = append(boxes, Summarize(g.Label, vals))
	}
	return boxes
}

// ScatterPoints passes through every row where both columns are numeric.
// With a hue column, rows are split into one series per hue value.
func ScatterPoints(view RecordView, x, y, hue string) []ChartSeries {
	if hue == "" {
		points := collectPoints(view, x, y)
		if len(points) == 0 {
			return nil
		}
		return []ChartSeries{{Name: view.Label(y), Points: points}}
	}

	var series []ChartSeries
	for _, g := range groupBySingle(view, hue) {
		points := collectPoints(g.View, x, y)
		if len(points) == 0 {
			continue
		}
		series = append(series, ChartSeries{Name: strings.TrimSpace(g.Label), Points: points})
	}
	return series
}

func collectPoints(view RecordView, x, y string) []XYPoint {
	points := make([]XYPoint, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		xv, okX := view.Measure(i, x)
		yv, okY := view.Measure(i, y)
		if okX && okY {
			points = append(points, XYPoint{X: xv, Y: yv})
		}
	}
	return points
}
