package engine

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

// ============================================================================
// EXECUTOR — Validate, filter, aggregate, build
// ============================================================================
// Entry point: Execute(spec, view, opts...)
//
// Pipeline:
//   1. Normalize the widget spec (defaults, aliases)
//   2. Resolve column names; missing columns become warnings and skip
//   3. Apply filters → SubView
//   4. Aggregate (value counts, column means, grouped stats, raw points)
//   5. Dispatch to builder (chart / table / text)
// ============================================================================

// ErrUnsupportedAggregation is returned for aggregation names the engine does not know.
var ErrUnsupportedAggregation = errors.New("unsupported aggregation")

// Execute runs a widget spec against a RecordView and returns a render-ready Result.
func Execute(spec QuerySpec, view RecordView, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)
	spec = NormalizeQuerySpec(spec)

	if !knownAggregation(spec.Aggregation) {
		return nil, fmt.Errorf("%w %q in widget %q", ErrUnsupportedAggregation, spec.Aggregation, spec.Title)
	}

	result := &Result{
		Success: true,
		ID:      spec.ID,
		Title:   spec.Title,
	}

	if view == nil || view.Len() == 0 {
		result.Type = ResultText
		result.Reply = "No data available to analyze."
		return result, nil
	}
	view = withLabels(view, cfg.Labels)

	validation := ValidateColumns(view, spec)
	result.Warnings = validation.Warnings
	if validation.Skip {
		log.Printf("⚠️ surveydash: widget %q skipped: %s", spec.Title, strings.Join(validation.Warnings, "; "))
		result.Type = ResultWarning
		result.Reply = "This chart could not be drawn with the loaded dataset."
		return result, nil
	}
	spec = validation.Spec

	filtered := ApplyFilters(view, spec.Filters)
	if filtered.Len() == 0 {
		result.Type = ResultText
		result.Reply = "No rows match this widget's filters."
		return result, nil
	}

	switch spec.Visualize {
	case VisualScatter:
		hue := ""
		if len(spec.GroupBy) > 0 {
			hue = spec.GroupBy[0]
		}
		result.ChartConfig = BuildScatterChart(spec, ScatterPoints(filtered, spec.X, spec.Y, hue), filtered, cfg)

	case VisualBox:
		groupBy := ""
		if len(spec.GroupBy) > 0 {
			groupBy = spec.GroupBy[0]
		}
		result.ChartConfig = BuildBoxChart(spec, BoxStats(filtered, spec.Measure, groupBy, spec.SortBy), filtered, cfg)

	case VisualTable:
		groups := GroupAndAggregate(filtered, spec.GroupBy, spec.Measure, spec.Aggregation, spec.SortBy, spec.Limit)
		result.Type = ResultTable
		result.TableData = BuildTable(spec, groups, filtered)
		return result, nil

	case VisualMetric:
		result.Type = ResultText
		result.Data = BuildText(spec, filtered)
		result.Reply = fmt.Sprintf("%s: %s", result.Data.Label, result.Data.Value)
		return result, nil

	default:
		result.ChartConfig = buildCategoryChart(spec, filtered, cfg)
	}

	if result.ChartConfig == nil {
		result.Type = ResultText
		result.Reply = "Not enough data to generate a chart."
		return result, nil
	}
	result.Type = ResultChart
	return result, nil
}

// buildCategoryChart covers pie, bar and line widgets.
func buildCategoryChart(spec QuerySpec, view RecordView, cfg *config) *ChartConfig {
	if len(spec.Measures) > 0 {
		if len(spec.GroupBy) > 0 {
			groups := GroupedColumnMeans(view, spec.GroupBy[0], spec.Measures)
			SortGroups(groups, spec.SortBy)
			return BuildColumnMeansChart(spec, groups, true, view, cfg)
		}
		return BuildColumnMeansChart(spec, ColumnMeans(view, spec.Measures), false, view, cfg)
	}

	groups := GroupAndAggregate(view, spec.GroupBy, spec.Measure, spec.Aggregation, spec.SortBy, spec.Limit)
	return BuildChart(spec, groups, view, cfg)
}

// ============================================================================
// QUERYSPEC NORMALIZATION
// ============================================================================

// NormalizeQuerySpec fills widget defaults and folds aliases.
func NormalizeQuerySpec(spec QuerySpec) QuerySpec {
	spec.Visualize = strings.ToLower(strings.TrimSpace(spec.Visualize))
	spec.Aggregation = strings.ToLower(strings.TrimSpace(spec.Aggregation))

	switch spec.Visualize {
	case "":
		spec.Visualize = VisualBar
	case "histogram", "column":
		spec.Visualize = VisualBar
	case "boxplot":
		spec.Visualize = VisualBox
	case "kpi", "text":
		spec.Visualize = VisualMetric
	}

	switch spec.Aggregation {
	case "mean", "average":
		spec.Aggregation = AggAvg
	case "total":
		spec.Aggregation = AggSum
	case "value_counts", "counts":
		spec.Aggregation = AggCount
	}

	if spec.Aggregation == "" {
		switch {
		case spec.Visualize == VisualBox || spec.Visualize == VisualScatter:
			spec.Aggregation = AggNone
		case len(spec.Measures) > 0:
			spec.Aggregation = AggAvg
		case spec.Measure != "":
			spec.Aggregation = AggAvg
		default:
			spec.Aggregation = AggCount
		}
	}

	if spec.SortBy == "" && spec.Aggregation == AggCount && len(spec.Measures) == 0 &&
		(spec.Visualize == VisualPie || spec.Visualize == VisualBar || spec.Visualize == VisualTable) {
		spec.SortBy = "value_desc"
	}

	if spec.Title == "" {
		spec.Title = defaultTitle(spec)
	}

	return spec
}

func defaultTitle(spec QuerySpec) string {
	switch {
	case spec.Visualize == VisualScatter:
		return fmt.Sprintf("%s vs %s", spec.Y, spec.X)
	case len(spec.Measures) > 0:
		return "Average by column"
	case len(spec.GroupBy) > 0 && spec.Aggregation == AggCount:
		return fmt.Sprintf("%s distribution", spec.GroupBy[0])
	case len(spec.GroupBy) > 0 && spec.Measure != "":
		return fmt.Sprintf("%s by %s", spec.Measure, spec.GroupBy[0])
	case spec.Measure != "":
		return spec.Measure
	}
	return "Responses"
}

func knownAggregation(a string) bool {
	switch a {
	case AggCount, AggAvg, AggSum, AggMin, AggMax, AggNone, AggList:
		return true
	}
	return false
}
