package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ============================================================================
// AGGREGATORS — Grouping, Aggregation, and Sorting via RecordView
// ============================================================================
// All functions operate on RecordView for zero-copy access to the dataset.
// Grouping produces SubViews (index lists into parent view). Rows with an
// empty grouping value are left out, and measure aggregations skip cells
// without a number, matching how a dataframe treats NaN.
// ============================================================================

// GroupAndAggregate is the main entry point for the aggregation pipeline.
// Pipeline: group → aggregate → sort → limit.
func GroupAndAggregate(
	view RecordView,
	groupBy []string,
	measure string,
	aggregation string,
	sortBy string,
	limit int,
) []Group {
	if view.Len() == 0 {
		return nil
	}

	var groups []Group
	if len(groupBy) == 0 {
		groups = []Group{{
			Key:   "all",
			Label: "Total",
			View:  view,
		}}
	} else if len(groupBy) == 1 {
		groups = groupBySingle(view, groupBy[0])
	} else {
		groups = groupByMulti(view, groupBy)
	}

	for i := range groups {
		aggregateGroup(&groups[i], measure, aggregation)
		for j := range groups[i].SubGroups {
			aggregateGroup(&groups[i].SubGroups[j], measure, aggregation)
		}
	}
	if measureAggregation(aggregation) {
		groups = dropWithoutMeasure(groups, measure)
	}

	SortGroups(groups, sortBy)

	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	return groups
}

// ValueCounts counts rows per distinct non-empty value of a column,
// most frequent first; ties keep first-appearance order.
func ValueCounts(view RecordView, dimension string) []Group {
	return GroupAndAggregate(view, []string{dimension}, "", AggCount, "value_desc", 0)
}

// ColumnMeans averages each column of a column group, in the order given.
// Columns without a single numeric cell are dropped.
func ColumnMeans(view RecordView, measures []string) []Group {
	groups := make([]Group, 0, len(measures))
	for _, m := range measures {
		n := CountMeasure(view, m)
		if n == 0 {
			continue
		}
		groups = append(groups, Group{
			Key:   m,
			Label: view.Label(m),
			Value: AvgMeasure(view, m),
			Count: n,
			View:  view,
		})
	}
	return groups
}

// GroupedColumnMeans averages a column group separately for every value of
// a grouping column. Each returned group carries one SubGroup per column.
func GroupedColumnMeans(view RecordView, dimension string, measures []string) []Group {
	groups := groupBySingle(view, dimension)
	for i := range groups {
		groups[i].Count = groups[i].View.Len()
		groups[i].SubGroups = ColumnMeans(groups[i].View, measures)
	}
	return groups
}

// ============================================================================
// GROUPING
// ============================================================================

func groupBySingle(view RecordView, dimension string) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		key := strings.TrimSpace(view.Dimension(i, dimension))
		if key == "" {
			continue
		}
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{
			Key:   key,
			Label: key,
			View:  newSubView(view, grouped[key]),
		})
	}
	return groups
}

func groupByMulti(view RecordView, dimensions []string) []Group {
	primaryGroups := groupBySingle(view, dimensions[0])
	for i := range primaryGroups {
		primaryGroups[i].SubGroups = groupBySingle(primaryGroups[i].View, dimensions[1])
	}
	return primaryGroups
}

// ============================================================================
// AGGREGATION
// ============================================================================

func aggregateGroup(group *Group, measure string, aggregation string) {
	group.Count = group.View.Len()
	if group.Count == 0 {
		return
	}

	switch aggregation {
	case AggCount, "":
		group.Value = float64(group.Count)
	case AggSum:
		group.Value = SumMeasure(group.View, measure)
	case AggAvg:
		group.Value = AvgMeasure(group.View, measure)
	case AggMax:
		group.Value = MaxMeasure(group.View, measure)
	case AggMin:
		group.Value = MinMeasure(group.View, measure)
	case AggNone:
		// pass through
	default:
		group.Value = float64(group.Count)
	}
}

func measureAggregation(aggregation string) bool {
	switch aggregation {
	case AggSum, AggAvg, AggMin, AggMax:
		return true
	}
	return false
}

// dropWithoutMeasure removes groups (and sub-groups) that hold no numeric
// cell in the measure column. Their aggregate has no value to plot.
func dropWithoutMeasure(groups []Group, measure string) []Group {
	kept := groups[:0]
	for _, g := range groups {
		if CountMeasure(g.View, measure) == 0 {
			continue
		}
		g.SubGroups = dropWithoutMeasure(g.SubGroups, measure)
		kept = append(kept, g)
	}
	return kept
}

// MeasureValues collects the numeric cells of a column, skipping blanks.
func MeasureValues(view RecordView, measure string) []float64 {
	vals := make([]float64, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		if v, ok := view.Measure(i, measure); ok {
			vals = append(vals, v)
		}
	}
	return vals
}

// CountMeasure returns how many rows hold a number in the column.
func CountMeasure(view RecordView, measure string) int {
	n := 0
	for i := 0; i < view.Len(); i++ {
		if _, ok := view.Measure(i, measure); ok {
			n++
		}
	}
	return n
}

// SumMeasure sums a column across a view.
func SumMeasure(view RecordView, measure string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		if v, ok := view.Measure(i, measure); ok {
			total += v
		}
	}
	return total
}

// AvgMeasure averages the numeric cells of a column.
func AvgMeasure(view RecordView, measure string) float64 {
	n := CountMeasure(view, measure)
	if n == 0 {
		return 0
	}
	return SumMeasure(view, measure) / float64(n)
}

// MaxMeasure returns the largest numeric cell of a column.
func MaxMeasure(view RecordView, measure string) float64 {
	m := math.Inf(-1)
	found := false
	for i := 0; i < view.Len(); i++ {
		if v, ok := view.Measure(i, measure); ok && (!found || v > m) {
			m = v
			found = true
		}
	}
	if !found {
		return 0
	}
	return m
}

// MinMeasure returns the smallest numeric cell of a column.
func MinMeasure(view RecordView, measure string) float64 {
	m := math.Inf(1)
	found := false
	for i := 0; i < view.Len(); i++ {
		if v, ok := view.Measure(i, measure); ok && (!found || v < m) {
			m = v
			found = true
		}
	}
	if !found {
		return 0
	}
	return m
}

// ============================================================================
// SORTING
// ============================================================================

// SortGroups sorts aggregate groups by the specified sort mode.
// All modes are stable, so equal values keep their grouping order.
func SortGroups(groups []Group, sortBy string) {
	switch sortBy {
	case "value_desc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case "value_asc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	case "label_asc", "alpha_asc":
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].Key) < strings.ToLower(groups[j].Key) })
	case "label_desc":
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].Key) > strings.ToLower(groups[j].Key) })
	case "natural":
		sort.SliceStable(groups, func(i, j int) bool { return naturalLess(groups[i].Key, groups[j].Key) })
	default:
		// preserve grouping order
	}
}

// naturalLess orders labels by their leading number when both have one
// ("2" < "10", "1st Year" < "2nd Year"), falling back to case-insensitive text.
func naturalLess(a, b string) bool {
	na, okA := leadingNumber(a)
	nb, okB := leadingNumber(b)
	switch {
	case okA && okB && na != nb:
		return na < nb
	case okA && !okB:
		return true
	case !okA && okB:
		return false
	}
	return strings.ToLower(a) < strings.ToLower(b)
}

func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimRight(s[:end], "."), 64)
	return f, err == nil
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatNumber formats a value with comma separators and two decimals,
// followed by an optional unit.
func FormatNumber(amount float64, unit string) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	amount = RoundTo2(amount)

	intPart := int64(amount)
	decPart := int64(math.Round((amount - float64(intPart)) * 100))
	if decPart == 100 {
		intPart++
		decPart = 0
	}

	result := fmt.Sprintf("%s.%02d", FormatInt(int(intPart)), decPart)
	if negative {
		result = "-" + result
	}
	if unit != "" {
		result += " " + unit
	}
	return result
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// UniqueValues returns distinct non-empty values of a column across a view.
func UniqueValues(view RecordView, dimension string) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val := strings.TrimSpace(view.Dimension(i, dimension))
		if val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

// LabelForDimension turns a column key into a readable label.
func LabelForDimension(dimension string) string {
	if len(dimension) == 0 {
		return ""
	}
	words := strings.Fields(strings.ReplaceAll(dimension, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// LabelForAggregation returns a human-readable label for an aggregation type.
func LabelForAggregation(aggregation string) string {
	switch aggregation {
	case AggSum:
		return "Total"
	case AggCount, "":
		return "Count"
	case AggAvg:
		return "Average"
	case AggMax:
		return "Maximum"
	case AggMin:
		return "Minimum"
	default:
		return "Value"
	}
}
