package schema

import "testing"

// ============================================================================
// OVERRIDE TESTS
// ============================================================================
// Tests cover:
//   1. Display names, descriptions, units and sort hints are applied
//   2. Header or key spelling both match a column
//   3. Roles and keys never change
//   4. Deep copy isolation: the draft is not mutated
// ============================================================================

func surveyDraftSchema() *Config {
	return &Config{
		Name:           "Survey Responses",
		Version:        "1.0",
		DiscoveredFrom: "CSV",
		RowCount:       12,
		Dimensions: []DimensionMeta{
			{
				Key:             "gender",
				DisplayName:     "Gender",
				SampleValues:    []string{"Female", "Male"},
				Groupable:       true,
				Filterable:      true,
				CardinalityHint: "low",
				SortHint:        "value_desc",
			},
			{
				Key:             "year_of_study",
				DisplayName:     "Year of Study",
				SampleValues:    []string{"1st", "2nd", "3rd", "4th"},
				Groupable:       true,
				Filterable:      true,
				CardinalityHint: "low",
				SortHint:        "value_desc",
			},
		},
		Measures: []MeasureMeta{
			{
				Key:                "s_s_c_gpa",
				DisplayName:        "S.S.C (GPA)",
				Aggregations:       []string{"avg", "sum", "min", "max", "count"},
				DefaultAggregation: "avg",
			},
			{
				Key:                "record_count",
				DisplayName:        "Responses",
				IsSynthetic:        true,
				Aggregations:       []string{"count"},
				DefaultAggregation: "count",
			},
		},
		SkippedColumns: []SkippedColumn{
			{Column: "ID", Reason: "Unique per row — likely an ID column", Recoverable: true},
		},
	}
}

func TestApplyOverridesLabels(t *testing.T) {
	draft := surveyDraftSchema()
	result := ApplyOverrides(draft, Overrides{
		Name:        "Arts Faculty Survey",
		Description: "Responses from arts faculty students",
		Columns: map[string]ColumnOverride{
			"Year of Study": {SortHint: "NATURAL", Description: "Current year"},
			"s_s_c_gpa":     {DisplayName: "SSC GPA", Unit: "gpa", DefaultAggregation: "max"},
			"Gender":        {Parent: "Year of Study"},
		},
	})

	if result.Name != "Arts Faculty Survey" {
		t.Errorf("Name = %q", result.Name)
	}
	if result.Description != "Responses from arts faculty students" {
		t.Errorf("Description = %q", result.Description)
	}

	year := findDim(result, "year_of_study")
	if year.SortHint != "natural" {
		t.Errorf("year_of_study SortHint = %q, want natural", year.SortHint)
	}
	if year.Description != "Current year" {
		t.Errorf("year_of_study Description = %q", year.Description)
	}
	if gender := findDim(result, "gender"); gender.Parent != "year_of_study" {
		t.Errorf("gender Parent = %q, want year_of_study", gender.Parent)
	}

	ssc := findMeasure(result, "s_s_c_gpa")
	if ssc.DisplayName != "SSC GPA" || ssc.Unit != "gpa" || ssc.DefaultAggregation != "max" {
		t.Errorf("s_s_c_gpa = %+v", ssc)
	}
	if result.DisplayName("s_s_c_gpa") != "SSC GPA" {
		t.Errorf("DisplayName lookup = %q", result.DisplayName("s_s_c_gpa"))
	}
}

func TestApplyOverridesRejectsUnknownAggregation(t *testing.T) {
	result := ApplyOverrides(surveyDraftSchema(), Overrides{
		Columns: map[string]ColumnOverride{
			"S.S.C (GPA)": {DefaultAggregation: "median"},
		},
	})
	if got := findMeasure(result, "s_s_c_gpa").DefaultAggregation; got != "avg" {
		t.Errorf("DefaultAggregation = %q, want avg", got)
	}
}

func TestApplyOverridesKeepsRolesAndKeys(t *testing.T) {
	draft := surveyDraftSchema()
	result := ApplyOverrides(draft, Overrides{
		Columns: map[string]ColumnOverride{
			"Not A Column": {DisplayName: "Ghost"},
			"gender":       {DisplayName: "Sex"},
		},
	})

	if len(result.Dimensions) != len(draft.Dimensions) || len(result.Measures) != len(draft.Measures) {
		t.Fatalf("column counts changed: %d/%d dims, %d/%d measures",
			len(result.Dimensions), len(draft.Dimensions), len(result.Measures), len(draft.Measures))
	}
	for i := range draft.Dimensions {
		if result.Dimensions[i].Key != draft.Dimensions[i].Key {
			t.Errorf("dimension key %d changed: %q → %q", i, draft.Dimensions[i].Key, result.Dimensions[i].Key)
		}
	}
	if findDim(result, "gender").DisplayName != "Sex" {
		t.Error("gender display name not applied")
	}
}

func TestApplyOverridesDoesNotMutateDraft(t *testing.T) {
	draft := surveyDraftSchema()
	result := ApplyOverrides(draft, Overrides{
		Name: "Changed",
		Columns: map[string]ColumnOverride{
			"gender": {DisplayName: "Sex"},
		},
	})

	result.Dimensions[0].SampleValues[0] = "mutated"
	result.Measures[0].Aggregations[0] = "mutated"

	if draft.Name != "Survey Responses" {
		t.Errorf("draft Name mutated to %q", draft.Name)
	}
	if draft.Dimensions[0].DisplayName != "Gender" {
		t.Errorf("draft DisplayName mutated to %q", draft.Dimensions[0].DisplayName)
	}
	if draft.Dimensions[0].SampleValues[0] != "Female" {
		t.Error("draft SampleValues share memory with result")
	}
	if draft.Measures[0].Aggregations[0] != "avg" {
		t.Error("draft Aggregations share memory with result")
	}
}

func TestApplyOverridesEmpty(t *testing.T) {
	draft := surveyDraftSchema()
	result := ApplyOverrides(draft, Overrides{})
	if result == draft {
		t.Fatal("ApplyOverrides should return a copy")
	}
	if result.Version != "1.0" {
		t.Errorf("empty overrides should not bump version, got %q", result.Version)
	}
	if result.RowCount != 12 || len(result.SkippedColumns) != 1 {
		t.Errorf("copy lost fields: %+v", result)
	}
}

func TestRecoverColumns(t *testing.T) {
	o := Overrides{Columns: map[string]ColumnOverride{
		"ID":     {Recover: true},
		"Gender": {DisplayName: "Sex"},
	}}
	cols := o.RecoverColumns()
	if len(cols) != 1 || cols[0] != "ID" {
		t.Errorf("RecoverColumns = %v, want [ID]", cols)
	}
}

func findDim(c *Config, key string) DimensionMeta {
	for _, d := range c.Dimensions {
		if d.Key == key {
			return d
		}
	}
	return DimensionMeta{}
}

func findMeasure(c *Config, key string) MeasureMeta {
	for _, m := range c.Measures {
		if m.Key == key {
			return m
		}
	}
	return MeasureMeta{}
}
