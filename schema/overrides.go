package schema

import (
	"strings"
	"time"
)

// ============================================================================
// OVERRIDES — Manual corrections layered over auto-discovery
// ============================================================================
// The dashboard file can rename columns, describe them, pin a unit or a sort
// hint, and declare hierarchies the heuristics missed.
//
// Rules:
//   - Overrides replace display names, descriptions, units and sort hints
//   - Overrides cannot change column roles (dimension/measure) or keys
//   - Overrides cannot add columns; "recover" restores skipped ones
//   - Parent hints are applied only if no hierarchy was detected
// ============================================================================

// Overrides is the dataset section of the dashboard file.
type Overrides struct {
	Name        string                    `json:"name,omitempty" yaml:"name,omitempty"`
	Description string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Columns     map[string]ColumnOverride `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// ColumnOverride adjusts one column. Map keys may be either the raw header
// or its ColumnKey.
type ColumnOverride struct {
	DisplayName        string `json:"displayName,omitempty" yaml:"display_name,omitempty"`
	Description        string `json:"description,omitempty" yaml:"description,omitempty"`
	Unit               string `json:"unit,omitempty" yaml:"unit,omitempty"`
	SortHint           string `json:"sortHint,omitempty" yaml:"sort_hint,omitempty"`
	DefaultAggregation string `json:"defaultAggregation,omitempty" yaml:"default_aggregation,omitempty"`
	Parent             string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Recover            bool   `json:"recover,omitempty" yaml:"recover,omitempty"`
}

// IsEmpty reports whether applying o would change nothing.
func (o Overrides) IsEmpty() bool {
	return o.Name == "" && o.Description == "" && len(o.Columns) == 0
}

// RecoverColumns lists the columns flagged with recover: true, for
// DiscoverOptions.RecoverColumns.
func (o Overrides) RecoverColumns() []string {
	var cols []string
	for name, c := range o.Columns {
		if c.Recover {
			cols = append(cols, name)
		}
	}
	return cols
}

// ApplyOverrides returns a copy of draft with the overrides merged in.
// draft is never modified.
func ApplyOverrides(draft *Config, o Overrides) *Config {
	result := deepCopyConfig(draft)
	if o.IsEmpty() {
		return result
	}

	if o.Name != "" {
		result.Name = o.Name
	}
	if o.Description != "" {
		result.Description = o.Description
	}

	byKey := make(map[string]ColumnOverride, len(o.Columns))
	for name, c := range o.Columns {
		byKey[ColumnKey(name)] = c
	}

	for i := range result.Dimensions {
		d := &result.Dimensions[i]
		c, ok := byKey[d.Key]
		if !ok {
			continue
		}
		if c.DisplayName != "" {
			d.DisplayName = c.DisplayName
		}
		if c.Description != "" {
			d.Description = c.Description
		}
		if c.SortHint != "" {
			d.SortHint = strings.ToLower(c.SortHint)
		}
		if c.Parent != "" && d.Parent == "" {
			d.Parent = ColumnKey(c.Parent)
		}
	}

	for i := range result.Measures {
		m := &result.Measures[i]
		c, ok := byKey[m.Key]
		if !ok {
			continue
		}
		if c.DisplayName != "" {
			m.DisplayName = c.DisplayName
		}
		if c.Description != "" {
			m.Description = c.Description
		}
		if c.Unit != "" {
			m.Unit = c.Unit
		}
		if agg := strings.ToLower(c.DefaultAggregation); agg != "" && isValidAggregation(agg) {
			m.DefaultAggregation = agg
		}
	}

	result.Version = "1.0+overrides"
	result.DiscoveredAt = time.Now().Format(time.RFC3339)
	return result
}

// ============================================================================
// HELPERS
// ============================================================================

func deepCopyConfig(src *Config) *Config {
	dst := &Config{
		Name:           src.Name,
		Version:        src.Version,
		Description:    src.Description,
		RowCount:       src.RowCount,
		DiscoveredFrom: src.DiscoveredFrom,
		DiscoveredAt:   src.DiscoveredAt,
	}

	dst.Dimensions = make([]DimensionMeta, len(src.Dimensions))
	for i, d := range src.Dimensions {
		dst.Dimensions[i] = d
		dst.Dimensions[i].SampleValues = make([]string, len(d.SampleValues))
		copy(dst.Dimensions[i].SampleValues, d.SampleValues)
	}

	dst.Measures = make([]MeasureMeta, len(src.Measures))
	for i, m := range src.Measures {
		dst.Measures[i] = m
		dst.Measures[i].Aggregations = make([]string, len(m.Aggregations))
		copy(dst.Measures[i].Aggregations, m.Aggregations)
	}

	dst.SkippedColumns = make([]SkippedColumn, len(src.SkippedColumns))
	copy(dst.SkippedColumns, src.SkippedColumns)

	return dst
}

func isValidAggregation(agg string) bool {
	switch agg {
	case "sum", "avg", "count", "max", "min":
		return true
	}
	return false
}
