package engine

// ============================================================================
// CHART BUILDER — Produces ChartConfig from QuerySpec + computed data
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// BuildChart produces a category ChartConfig (pie, bar, line) from groups.
func BuildChart(spec QuerySpec, groups []Group, view RecordView, cfg *config) *ChartConfig {
	if len(groups) == 0 {
		return nil
	}

	chartType := spec.Visualize
	if chartType == "" {
		chartType = VisualBar
	}

	config := newChartConfig(spec, chartType)
	if len(spec.GroupBy) > 0 {
		config.XAxis = axisLabel(spec.XLabel, view.Label(spec.GroupBy[0]))
	}
	config.YAxis = axisLabel(spec.YLabel, measureAxis(spec, view))

	if len(spec.GroupBy) >= 2 && hasSubGroups(groups) {
		config.Series = buildMultiSeries(groups, cfg.Palette)
	} else {
		if chartType == VisualPie && cfg.MaxCategories > 0 {
			groups = collapseTail(groups, cfg.MaxCategories)
		}
		config.Series = buildSingleSeries(groups, seriesName(spec))
	}

	config.Colors = assignColors(cfg.Palette, colorCount(config))
	return config
}

// BuildColumnMeansChart charts the mean of each column in a column group.
// Grouped input yields one series per group value.
func BuildColumnMeansChart(spec QuerySpec, groups []Group, grouped bool, view RecordView, cfg *config) *ChartConfig {
	if len(groups) == 0 {
		return nil
	}

	config := newChartConfig(spec, spec.Visualize)
	config.XAxis = axisLabel(spec.XLabel, "Column")
	config.YAxis = axisLabel(spec.YLabel, "Average")

	if grouped {
		series := make([]ChartSeries, 0, len(groups))
		for i, g := range groups {
			if len(g.SubGroups) == 0 {
				continue
			}
			series = append(series, ChartSeries{
				Name:  g.Label,
				Data:  pointsFrom(g.SubGroups),
				Color: cfg.Palette[i%len(cfg.Palette)],
			})
		}
		if len(series) == 0 {
			return nil
		}
		config.Series = series
	} else {
		config.Series = buildSingleSeries(groups, axisLabel(spec.YLabel, "Average"))
	}

	config.Colors = assignColors(cfg.Palette, colorCount(config))
	return config
}

// BuildBoxChart wraps five-number summaries in a ChartConfig.
func BuildBoxChart(spec QuerySpec, boxes []BoxSummary, view RecordView, cfg *config) *ChartConfig {
	if len(boxes) == 0 {
		return nil
	}
	config := newChartConfig(spec, VisualBox)
	if len(spec.GroupBy) > 0 {
		config.XAxis = axisLabel(spec.XLabel, view.Label(spec.GroupBy[0]))
	}
	config.YAxis = axisLabel(spec.YLabel, view.Label(spec.Measure))
	config.ShowLegend = false
	config.Boxes = boxes
	config.Colors = assignColors(cfg.Palette, len(boxes))
	return config
}

// BuildScatterChart wraps raw point series in a ChartConfig.
func BuildScatterChart(spec QuerySpec, series []ChartSeries, view RecordView, cfg *config) *ChartConfig {
	if len(series) == 0 {
		return nil
	}
	config := newChartConfig(spec, VisualScatter)
	config.XAxis = axisLabel(spec.XLabel, view.Label(spec.X))
	config.YAxis = axisLabel(spec.YLabel, view.Label(spec.Y))
	for i := range series {
		series[i].Color = cfg.Palette[i%len(cfg.Palette)]
	}
	config.Series = series
	config.ShowLegend = len(series) > 1
	config.Colors = assignColors(cfg.Palette, len(series))
	return config
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func newChartConfig(spec QuerySpec, chartType string) *ChartConfig {
	return &ChartConfig{
		ChartType:  chartType,
		Title:      spec.Title,
		ShowLegend: true,
		ShowGrid:   chartType != VisualPie,
	}
}

func buildSingleSeries(groups []Group, seriesName string) []ChartSeries {
	if seriesName == "" {
		seriesName = "Value"
	}
	return []ChartSeries{{
		Name: seriesName,
		Data: pointsFrom(groups),
	}}
}

func pointsFrom(groups []Group) []ChartPoint {
	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{
			Label: g.Label,
			Value: RoundTo2(g.Value),
		})
	}
	return points
}

// buildMultiSeries pivots primary × secondary groups into one series per
// secondary value. Series follow first-appearance order of secondary values.
func buildMultiSeries(groups []Group, palette []string) []ChartSeries {
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

	series := make([]ChartSeries, 0, len(subKeys))
	for i, key := range subKeys {
		points := make([]ChartPoint, 0, len(groups))
		for _, g := range groups {
			var value float64
			for _, sg := range g.SubGroups {
				if sg.Key == key {
					value = sg.Value
					break
				}
			}
			points = append(points, ChartPoint{Label: g.Label, Value: RoundTo2(value)})
		}
		series = append(series, ChartSeries{
			Name:  key,
			Data:  points,
			Color: palette[i%len(palette)],
		})
	}
	return series
}

// collapseTail keeps the first max-1 groups and sums the rest into "Other".
func collapseTail(groups []Group, max int) []Group {
	if len(groups) <= max || max < 2 {
		return groups
	}
	head := append([]Group(nil), groups[:max-1]...)
	other := Group{Key: "Other", Label: "Other"}
	for _, g := range groups[max-1:] {
		other.Value += g.Value
		other.Count += g.Count
	}
	return append(head, other)
}

func hasSubGroups(groups []Group) bool {
	for _, g := range groups {
		if len(g.SubGroups) > 0 {
			return true
		}
	}
	return false
}

func colorCount(c *ChartConfig) int {
	if c.ChartType == VisualPie && len(c.Series) == 1 {
		return len(c.Series[0].Data)
	}
	return len(c.Series)
}

func assignColors(palette []string, count int) []string {
	if len(palette) == 0 {
		palette = defaultColors
	}
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = palette[i%len(palette)]
	}
	return colors
}

func seriesName(spec QuerySpec) string {
	if spec.Title != "" {
		return spec.Title
	}
	return LabelForAggregation(spec.Aggregation)
}

func measureAxis(spec QuerySpec, view RecordView) string {
	agg := LabelForAggregation(spec.Aggregation)
	if spec.Measure == "" || spec.Aggregation == AggCount {
		return agg
	}
	return agg + " " + view.Label(spec.Measure)
}

func axisLabel(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
