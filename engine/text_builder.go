package engine

// BuildText produces the single figure of a metric widget.
func BuildText(spec QuerySpec, view RecordView) *TextData {
	label := spec.Title
	if label == "" {
		label = measureAxis(spec, view)
	}

	if view.Len() == 0 {
		return &TextData{Label: label, Value: "0"}
	}

	var value float64
	count := view.Len()
	switch spec.Aggregation {
	case AggCount, "":
		value = float64(view.Len())
	case AggSum:
		value = SumMeasure(view, spec.Measure)
		count = CountMeasure(view, spec.Measure)
	case AggAvg:
		value = AvgMeasure(view, spec.Measure)
		count = CountMeasure(view, spec.Measure)
	case AggMax:
		value = MaxMeasure(view, spec.Measure)
		count = CountMeasure(view, spec.Measure)
	case AggMin:
		value = MinMeasure(view, spec.Measure)
		count = CountMeasure(view, spec.Measure)
	default:
		value = float64(view.Len())
	}

	var formatted string
	if spec.Aggregation == AggCount || spec.Aggregation == "" {
		formatted = FormatInt(int(value))
	} else {
		formatted = FormatNumber(value, "")
	}

	return &TextData{
		Label:    label,
		Value:    formatted,
		RawValue: value,
		Count:    count,
	}
}
