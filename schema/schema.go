package schema

// ============================================================================
// SCHEMA — Describes the shape of the survey dataset
// ============================================================================
// Auto-discovered from the loaded CSV, optionally adjusted by column
// overrides from the dashboard definition. Served at /api/schema and used to
// label columns in charts.
// ============================================================================

// Config describes the complete shape of a dataset.
type Config struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	RowCount    int    `json:"rowCount" yaml:"row_count"`

	Dimensions []DimensionMeta `json:"dimensions" yaml:"dimensions"`
	Measures   []MeasureMeta   `json:"measures" yaml:"measures"`

	// Auto-discovery metadata
	DiscoveredFrom string `json:"discoveredFrom,omitempty" yaml:"discovered_from,omitempty"`
	DiscoveredAt   string `json:"discoveredAt,omitempty" yaml:"discovered_at,omitempty"`

	// Columns skipped during auto-discovery
	SkippedColumns []SkippedColumn `json:"skippedColumns,omitempty" yaml:"skipped_columns,omitempty"`
}

// DimensionMeta describes a column used for grouping/filtering.
type DimensionMeta struct {
	Key             string   `json:"key" yaml:"key"`
	DisplayName     string   `json:"displayName" yaml:"display_name"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	SampleValues    []string `json:"sampleValues" yaml:"sample_values"`
	Groupable       bool     `json:"groupable" yaml:"groupable"`
	Filterable      bool     `json:"filterable" yaml:"filterable"`
	Parent          string   `json:"parent,omitempty" yaml:"parent,omitempty"` // Parent dimension key for hierarchies
	IsTemporal      bool     `json:"isTemporal,omitempty" yaml:"is_temporal,omitempty"`
	TemporalFormat  string   `json:"temporalFormat,omitempty" yaml:"temporal_format,omitempty"`
	IsBinary        bool     `json:"isBinary,omitempty" yaml:"is_binary,omitempty"`   // yes/no style answers
	IsNumeric       bool     `json:"isNumeric,omitempty" yaml:"is_numeric,omitempty"` // coded numbers, e.g. age
	CardinalityHint string   `json:"cardinalityHint,omitempty" yaml:"cardinality_hint,omitempty"`
	SortHint        string   `json:"sortHint,omitempty" yaml:"sort_hint,omitempty"` // "natural", "value_desc", ...
}

// MeasureMeta describes a numeric column used for aggregation.
type MeasureMeta struct {
	Key                string   `json:"key" yaml:"key"`
	DisplayName        string   `json:"displayName" yaml:"display_name"`
	Description        string   `json:"description,omitempty" yaml:"description,omitempty"`
	Unit               string   `json:"unit,omitempty" yaml:"unit,omitempty"` // "gpa", "hours", "percent", "years", "points"
	IsSynthetic        bool     `json:"isSynthetic,omitempty" yaml:"is_synthetic,omitempty"`
	Aggregations       []string `json:"aggregations,omitempty" yaml:"aggregations,omitempty"`
	DefaultAggregation string   `json:"defaultAggregation,omitempty" yaml:"default_aggregation,omitempty"`
}

// SkippedColumn records why a column was excluded during auto-discovery.
type SkippedColumn struct {
	Column      string `json:"column" yaml:"column"`
	Reason      string `json:"reason" yaml:"reason"`
	Recoverable bool   `json:"recoverable" yaml:"recoverable"` // Can be restored if consumer overrides
}

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []string {
	keys := make([]string, len(c.Dimensions))
	for i, d := range c.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	keys := make([]string, len(c.Measures))
	for i, m := range c.Measures {
		keys[i] = m.Key
	}
	return keys
}

// DisplayName returns the label of a column key, whether it is a dimension
// or a measure. Unknown keys come back unchanged.
func (c Config) DisplayName(key string) string {
	for _, d := range c.Dimensions {
		if d.Key == key {
			return d.DisplayName
		}
	}
	for _, m := range c.Measures {
		if m.Key == key {
			return m.DisplayName
		}
	}
	return key
}
