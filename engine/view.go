package engine

import "sort"

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The engine never owns the dataset. It reads through this interface.
//
// Implementations:
//   SliceView: wraps []Record produced by the loader
//   SubView:   filtered subset (indices into parent, zero-copy)
// ============================================================================

// RecordView provides indexed access to a dataset.
// Measure reports false when the cell is empty or not numeric, so
// aggregations skip it the way a dataframe skips NaN.
type RecordView interface {
	Len() int
	Dimension(index int, key string) string
	Measure(index int, key string) (float64, bool)
	DimensionKeys() []string // every known column key
	MeasureKeys() []string   // column keys with at least one numeric cell
	Label(key string) string // original header for a key
}

// ============================================================================
// SLICE VIEW
// ============================================================================

// SliceView wraps a []Record slice as a RecordView.
type SliceView struct {
	records []Record
	dimKeys []string
	mesKeys []string
	labels  map[string]string
}

// NewSliceView creates a RecordView from records. When fields are given they
// fix the column order and header labels; otherwise keys are derived from the
// records and sorted.
func NewSliceView(records []Record, fields ...Field) RecordView {
	v := &SliceView{records: records, labels: make(map[string]string)}
	if len(fields) > 0 {
		v.useFields(fields)
	} else {
		v.cacheKeys()
	}
	return v
}

func (v *SliceView) useFields(fields []Field) {
	numeric := make(map[string]bool)
	for _, r := range v.records {
		for k := range r.Measures {
			numeric[k] = true
		}
	}
	for _, f := range fields {
		v.dimKeys = append(v.dimKeys, f.Key)
		if numeric[f.Key] {
			v.mesKeys = append(v.mesKeys, f.Key)
		}
		v.labels[f.Key] = f.Label
	}
}

func (v *SliceView) cacheKeys() {
	dimSeen := make(map[string]bool)
	mesSeen := make(map[string]bool)
	for _, r := range v.records {
		for k := range r.Dimensions {
			if !dimSeen[k] {
				dimSeen[k] = true
				v.dimKeys = append(v.dimKeys, k)
			}
		}
		for k := range r.Measures {
			if !mesSeen[k] {
				mesSeen[k] = true
				v.mesKeys = append(v.mesKeys, k)
			}
			if !dimSeen[k] {
				dimSeen[k] = true
				v.dimKeys = append(v.dimKeys, k)
			}
		}
	}
	sort.Strings(v.dimKeys)
	sort.Strings(v.mesKeys)
}

func (v *SliceView) Len() int { return len(v.records) }

func (v *SliceView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.records) {
		return ""
	}
	return v.records[i].Dimensions[key]
}

func (v *SliceView) Measure(i int, key string) (float64, bool) {
	if i < 0 || i >= len(v.records) {
		return 0, false
	}
	val, ok := v.records[i].Measures[key]
	return val, ok
}

func (v *SliceView) DimensionKeys() []string { return v.dimKeys }
func (v *SliceView) MeasureKeys() []string   { return v.mesKeys }

func (v *SliceView) Label(key string) string {
	if l, ok := v.labels[key]; ok && l != "" {
		return l
	}
	return LabelForDimension(key)
}

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) (float64, bool) {
	if i < 0 || i >= len(v.indices) {
		return 0, false
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }
func (v *SubView) Label(key string) string { return v.parent.Label(key) }

// ============================================================================
// LABELED VIEW — display-name overrides
// ============================================================================

type labeledView struct {
	RecordView
	labels map[string]string
}

func withLabels(view RecordView, labels map[string]string) RecordView {
	if len(labels) == 0 {
		return view
	}
	return &labeledView{RecordView: view, labels: labels}
}

func (v *labeledView) Label(key string) string {
	if l, ok := v.labels[key]; ok && l != "" {
		return l
	}
	return v.RecordView.Label(key)
}
