package engine

import (
	"fmt"

	"github.com/spektr-org/surveydash/schema"
)

// ============================================================================
// COLUMN VALIDATION — resolve widget column names before computing anything
// ============================================================================
// Header names in the dashboard definition are matched against the dataset
// through schema.ColumnKey, so "S.S.C (GPA)", "s.s.c (gpa)" and "S S C GPA"
// all refer to the same column. Missing columns never fail a page: they turn
// into user-visible warnings and the widget is skipped.
// ============================================================================

// Validation is the outcome of checking a widget against a dataset.
type Validation struct {
	Spec     QuerySpec // column references rewritten to column keys
	Warnings []string
	Skip     bool
}

// MissingColumnWarning is the message shown for a column the dataset lacks.
func MissingColumnWarning(name string) string {
	return fmt.Sprintf("Column %q not found in dataset", name)
}

// NonNumericWarning is the message shown when a column has no numbers to average or plot.
func NonNumericWarning(name string) string {
	return fmt.Sprintf("Column %q has no numeric values", name)
}

// ValidateColumns resolves every column the spec references against the view.
// The returned Spec holds column keys; Skip is set when the widget cannot be drawn.
func ValidateColumns(view RecordView, spec QuerySpec) Validation {
	known := toSet(view.DimensionKeys())
	numeric := toSet(view.MeasureKeys())

	v := Validation{Spec: spec}

	resolve := func(name string, needNumber bool) (string, bool) {
		key := schema.ColumnKey(name)
		if !known[key] {
			v.Warnings = append(v.Warnings, MissingColumnWarning(name))
			return "", false
		}
		if needNumber && !numeric[key] {
			v.Warnings = append(v.Warnings, NonNumericWarning(name))
			return "", false
		}
		return key, true
	}

	if shape := shapeProblem(spec); shape != "" {
		v.Warnings = append(v.Warnings, shape)
		v.Skip = true
		return v
	}

	if spec.Measure != "" && needsMeasure(spec) {
		key, ok := resolve(spec.Measure, true)
		if !ok {
			v.Skip = true
		}
		v.Spec.Measure = key
	} else {
		v.Spec.Measure = ""
	}

	if spec.Visualize == VisualScatter {
		x, okX := resolve(spec.X, true)
		y, okY := resolve(spec.Y, true)
		if !okX || !okY {
			v.Skip = true
		}
		v.Spec.X, v.Spec.Y = x, y
	}

	if len(spec.GroupBy) > 0 {
		v.Spec.GroupBy = make([]string, 0, len(spec.GroupBy))
		for _, g := range spec.GroupBy {
			key, ok := resolve(g, false)
			if !ok {
				v.Skip = true
				continue
			}
			v.Spec.GroupBy = append(v.Spec.GroupBy, key)
		}
	}

	if len(spec.Measures) > 0 {
		present := make([]string, 0, len(spec.Measures))
		for _, m := range spec.Measures {
			if key, ok := resolve(m, true); ok {
				present = append(present, key)
			}
		}
		if len(present) == 0 {
			v.Warnings = append(v.Warnings, "None of the listed columns are available; widget skipped")
			v.Skip = true
		}
		v.Spec.Measures = present
	}

	if !spec.Filters.IsEmpty() {
		resolved := make(map[string][]string, len(spec.Filters.Dimensions))
		for name, vals := range spec.Filters.Dimensions {
			if len(vals) == 0 {
				continue
			}
			key, ok := resolve(name, false)
			if !ok {
				v.Skip = true
				continue
			}
			resolved[key] = vals
		}
		v.Spec.Filters = Filters{Dimensions: resolved}
	}

	return v
}

// shapeProblem reports a widget whose definition cannot produce its visual.
func shapeProblem(spec QuerySpec) string {
	switch spec.Visualize {
	case VisualPie, VisualBar, VisualLine:
		if len(spec.GroupBy) == 0 && len(spec.Measures) == 0 {
			return fmt.Sprintf("%s chart %q needs group_by or measures", spec.Visualize, spec.Title)
		}
	case VisualBox:
		if spec.Measure == "" {
			return fmt.Sprintf("box plot %q needs a measure", spec.Title)
		}
	case VisualScatter:
		if spec.X == "" || spec.Y == "" {
			return fmt.Sprintf("scatter plot %q needs x and y", spec.Title)
		}
	case VisualTable:
		if len(spec.GroupBy) == 0 && spec.Aggregation != AggList {
			return fmt.Sprintf("table %q needs group_by or aggregation: list", spec.Title)
		}
	case VisualMetric:
		if spec.Measure == "" && spec.Aggregation != AggCount {
			return fmt.Sprintf("metric %q needs a measure", spec.Title)
		}
	default:
		return fmt.Sprintf("unsupported visualization %q", spec.Visualize)
	}
	return ""
}

// needsMeasure reports whether the spec's aggregation reads numeric values.
func needsMeasure(spec QuerySpec) bool {
	if spec.Visualize == VisualBox {
		return true
	}
	switch spec.Aggregation {
	case AggAvg, AggSum, AggMin, AggMax, AggList:
		return true
	}
	return false
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
