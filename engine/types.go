package engine

// ============================================================================
// ENGINE TYPES — Survey rows, widget specs and render-ready results
// ============================================================================
// A survey row is a Record: every non-empty cell is a dimension value, and
// cells that parse as numbers are also measure values. Widgets describe what
// to compute with a QuerySpec; the engine answers with a Result.
// ============================================================================

// Record is a single survey row keyed by normalized column key.
type Record struct {
	Dimensions map[string]string  `json:"dimensions"`
	Measures   map[string]float64 `json:"measures"`
}

// Field pairs a normalized column key with the header it came from.
type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ============================================================================
// QUERYSPEC — one dashboard widget
// ============================================================================

// Visualization kinds.
const (
	VisualPie     = "pie"
	VisualBar     = "bar"
	VisualBox     = "box"
	VisualScatter = "scatter"
	VisualLine    = "line"
	VisualTable   = "table"
	VisualMetric  = "metric"
)

// Aggregation kinds.
const (
	AggCount = "count"
	AggAvg   = "avg"
	AggSum   = "sum"
	AggMin   = "min"
	AggMax   = "max"
	AggNone  = "none"
	AggList  = "list"
)

// QuerySpec defines what a widget computes and how it is drawn.
// Column references use header names as they appear in the CSV; the engine
// resolves them to normalized keys and warns about the ones it cannot find.
type QuerySpec struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Visualize   string   `json:"visualize" yaml:"visualize"`
	Aggregation string   `json:"aggregation,omitempty" yaml:"aggregation"`
	Measure     string   `json:"measure,omitempty" yaml:"measure"`
	Measures    []string `json:"measures,omitempty" yaml:"measures"` // column group, e.g. semester scores
	GroupBy     []string `json:"groupBy,omitempty" yaml:"group_by"`
	X           string   `json:"x,omitempty" yaml:"x"`
	Y           string   `json:"y,omitempty" yaml:"y"`
	Filters     Filters  `json:"filters,omitempty" yaml:"filters"`
	SortBy      string   `json:"sortBy,omitempty" yaml:"sort_by"` // value_desc, value_asc, label_asc, label_desc, natural
	Limit       int      `json:"limit,omitempty" yaml:"limit"`
	XLabel      string   `json:"xLabel,omitempty" yaml:"x_label"`
	YLabel      string   `json:"yLabel,omitempty" yaml:"y_label"`
}

// Filters define which rows a widget sees.
// Keys are column names. Values are allowed values.
// OR within a column, AND across columns. Empty = all.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions,omitempty" yaml:",inline"`
}

// HasFilter returns true if a specific column filter is set.
func (f Filters) HasFilter(dimension string) bool {
	if f.Dimensions == nil {
		return false
	}
	vals, ok := f.Dimensions[dimension]
	return ok && len(vals) > 0
}

// IsEmpty returns true if no filters are set.
func (f Filters) IsEmpty() bool {
	for _, vals := range f.Dimensions {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// ============================================================================
// RESULT
// ============================================================================

// Result types.
const (
	ResultChart   = "chart"
	ResultTable   = "table"
	ResultText    = "text"
	ResultWarning = "warning"
)

// Result is the engine's render-ready output for one widget.
type Result struct {
	Success bool   `json:"success"`
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Reply   string `json:"reply,omitempty"`

	// Exactly one of these is populated based on Type.
	ChartConfig *ChartConfig `json:"chartConfig,omitempty"`
	TableData   *TableData   `json:"tableData,omitempty"`
	Data        *TextData    `json:"data,omitempty"`

	// Warnings are shown to the user next to the widget.
	Warnings []string `json:"warnings,omitempty"`
}

// ============================================================================
// GROUP — Intermediate computation result
// ============================================================================

// Group represents a grouped/aggregated result.
type Group struct {
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Value     float64    `json:"value"`
	Count     int        `json:"count"`
	SubGroups []Group    `json:"subGroups,omitempty"`
	View      RecordView `json:"-"`
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series,omitempty"`
	Boxes      []BoxSummary  `json:"boxes,omitempty"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
// Category charts fill Data; scatter charts fill Points.
type ChartSeries struct {
	Name   string       `json:"name"`
	Data   []ChartPoint `json:"data,omitempty"`
	Points []XYPoint    `json:"points,omitempty"`
	Color  string       `json:"color,omitempty"`
}

// ChartPoint represents a single labelled value.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// XYPoint is a raw numeric pair passed through for scatter plots.
type XYPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoxSummary is the five-number summary of one box in a box plot.
type BoxSummary struct {
	Label        string    `json:"label"`
	Count        int       `json:"count"`
	Min          float64   `json:"min"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	Max          float64   `json:"max"`
	LowerWhisker float64   `json:"lowerWhisker"`
	UpperWhisker float64   `json:"upperWhisker"`
	Outliers     []float64 `json:"outliers,omitempty"`
	Values       []float64 `json:"-"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals or aggregations for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// ============================================================================
// TEXT TYPES
// ============================================================================

// TextData is the single figure shown by a metric widget.
type TextData struct {
	Label    string  `json:"label"`
	Value    string  `json:"value"`
	RawValue float64 `json:"rawValue"`
	Count    int     `json:"count"`
}
