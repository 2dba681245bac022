package engine

import (
	"strings"
)

// ============================================================================
// FILTERS — Column-value filtering via RecordView
// ============================================================================
// Single-pass filter: checks every column constraint per row in one loop.
// Returns a SubView (index list into parent), no data is copied.
// Filter keys must already be resolved to column keys (see ValidateColumns).
// ============================================================================

// ApplyFilters returns a view of rows matching all column filters.
// Columns are AND-combined; values within a column are OR-combined and
// compared case-insensitively. Empty filter = no restriction.
func ApplyFilters(view RecordView, filters Filters) RecordView {
	if filters.IsEmpty() {
		return view
	}

	sets := make(map[string]map[string]bool)
	for dim, allowed := range filters.Dimensions {
		if len(allowed) > 0 {
			sets[dim] = toLowerSet(allowed)
		}
	}

	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for dim, set := range sets {
			val := strings.ToLower(strings.TrimSpace(view.Dimension(i, dim)))
			if !set[val] {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices)
}

// toLowerSet converts a string slice to a lowercase lookup set.
func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(strings.TrimSpace(item))] = true
	}
	return set
}
