package engine

import (
	"fmt"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from QuerySpec + Groups
// ============================================================================
// Column discovery uses view.DimensionKeys() so list tables follow the CSV
// header order.
// ============================================================================

// BuildTable produces a TableData from a QuerySpec, groups and filtered view.
func BuildTable(spec QuerySpec, groups []Group, view RecordView) *TableData {
	if spec.Aggregation == AggList {
		return buildListTable(spec, view)
	}
	return buildAggregatedTable(spec, groups, view)
}

// ============================================================================
// LIST TABLE — Row per record
// ============================================================================

func buildListTable(spec QuerySpec, view RecordView) *TableData {
	if view.Len() == 0 {
		return &TableData{
			Title:   spec.Title,
			Columns: []Column{},
			Rows:    [][]string{},
		}
	}

	keys := view.DimensionKeys()
	if len(spec.GroupBy) > 0 {
		keys = spec.GroupBy
	}
	columns := make([]Column, 0, len(keys)+1)
	for _, key := range keys {
		columns = append(columns, Column{
			Key:   key,
			Label: view.Label(key),
			Type:  "text",
			Align: "left",
		})
	}
	if spec.Measure != "" {
		columns = append(columns, Column{
			Key:   spec.Measure,
			Label: view.Label(spec.Measure),
			Type:  "number",
			Align: "right",
		})
	}

	n := view.Len()
	if spec.Limit > 0 && n > spec.Limit {
		n = spec.Limit
	}

	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		row := make([]string, 0, len(columns))
		for _, key := range keys {
			row = append(row, view.Dimension(i, key))
		}
		if spec.Measure != "" {
			if val, ok := view.Measure(i, spec.Measure); ok {
				row = append(row, fmt.Sprintf("%.2f", val))
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}

	table := &TableData{
		Title:   spec.Title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label:  fmt.Sprintf("Total (%s records)", FormatInt(view.Len())),
			Values: map[string]string{},
		},
	}
	if spec.Measure != "" {
		table.Summary.Values[spec.Measure] = FormatNumber(AvgMeasure(view, spec.Measure), "avg")
	}
	return table
}

// ============================================================================
// AGGREGATED TABLE — Summary rows
// ============================================================================

func buildAggregatedTable(spec QuerySpec, groups []Group, view RecordView) *TableData {
	if len(groups) == 0 {
		return &TableData{
			Title:   spec.Title,
			Columns: []Column{},
			Rows:    [][]string{},
		}
	}

	if len(spec.GroupBy) >= 2 && hasSubGroups(groups) {
		return buildCrossTable(spec, groups, view)
	}

	groupLabel := "Group"
	if len(spec.GroupBy) > 0 {
		groupLabel = view.Label(spec.GroupBy[0])
	}

	columns := []Column{
		{Key: "group", Label: groupLabel, Type: "text", Align: "left"},
		{Key: "value", Label: measureAxis(spec, view), Type: "number", Align: "right"},
		{Key: "count", Label: "Count", Type: "number", Align: "center"},
		{Key: "share", Label: "Share", Type: "number", Align: "right"},
	}

	var totalCount int
	for _, g := range groups {
		totalCount += g.Count
	}

	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		share := 0.0
		if totalCount > 0 {
			share = float64(g.Count) / float64(totalCount) * 100
		}
		rows = append(rows, []string{
			g.Label,
			formatValue(g.Value, spec.Aggregation),
			fmt.Sprintf("%d", g.Count),
			fmt.Sprintf("%.1f%%", share),
		})
	}

	summaryValue := FormatInt(totalCount)
	if spec.Measure != "" && spec.Aggregation != AggCount {
		summaryValue = formatValue(aggregateAll(view, spec.Measure, spec.Aggregation), spec.Aggregation)
	}

	return &TableData{
		Title:   spec.Title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Total",
			Values: map[string]string{
				"value": summaryValue,
				"count": fmt.Sprintf("%d", totalCount),
			},
		},
	}
}

func formatValue(v float64, aggregation string) string {
	if aggregation == AggCount || aggregation == "" {
		return FormatInt(int(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func aggregateAll(view RecordView, measure, aggregation string) float64 {
	g := Group{View: view}
	aggregateGroup(&g, measure, aggregation)
	return g.Value
}

// ============================================================================
// CROSS TABLE — primary groups as rows, secondary values as columns
// ============================================================================

func buildCrossTable(spec QuerySpec, groups []Group, view RecordView) *TableData {
	var subKeys []string
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, sg := range g.SubGroups {
			if !seen[sg.Key] {
				seen[sg.Key] = true
				subKeys = append(subKeys, sg.Key)
			}
		}
	}

	columns := make([]Column, 0, len(subKeys)+2)
	columns = append(columns, Column{Key: "group", Label: view.Label(spec.GroupBy[0]), Type: "text", Align: "left"})
	for _, k := range subKeys {
		columns = append(columns, Column{Key: "v:" + k, Label: k, Type: "number", Align: "right"})
	}
	columns = append(columns, Column{Key: "total", Label: "Total", Type: "number", Align: "right"})

	empty := ""
	if spec.Aggregation == AggCount || spec.Aggregation == "" {
		empty = "0"
	}

	rows := make([][]string, 0, len(groups))
	totalCount := 0
	for _, g := range groups {
		row := make([]string, 0, len(columns))
		row = append(row, g.Label)
		for _, k := range subKeys {
			cell := empty
			for _, sg := range g.SubGroups {
				if sg.Key == k {
					cell = formatValue(sg.Value, spec.Aggregation)
					break
				}
			}
			row = append(row, cell)
		}
		row = append(row, formatValue(g.Value, spec.Aggregation))
		rows = append(rows, row)
		totalCount += g.Count
	}

	summary := &Summary{Label: "Total", Values: map[string]string{}}
	for _, k := range subKeys {
		col := ApplyFilters(view, Filters{Dimensions: map[string][]string{spec.GroupBy[1]: {k}}})
		summary.Values["v:"+k] = formatValue(aggregateAll(col, spec.Measure, spec.Aggregation), spec.Aggregation)
	}
	summary.Values["total"] = FormatInt(totalCount)
	if spec.Measure != "" && spec.Aggregation != AggCount {
		summary.Values["total"] = formatValue(aggregateAll(view, spec.Measure, spec.Aggregation), spec.Aggregation)
	}

	return &TableData{
		Title:   spec.Title,
		Columns: columns,
		Rows:    rows,
		Summary: summary,
	}
}
