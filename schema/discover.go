package schema

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// AUTO-DISCOVERY — Heuristic column classification
// ============================================================================
// Inspects the loaded survey rows and generates a schema.Config.
//
// Classification pipeline per column:
//   1. Sample values → detect type (numeric, date, bool, string)
//   2. Type + cardinality → classify role (dimension, measure, both, skip)
//   3. Header patterns → unit (gpa, hours, percent, years)
//   4. Value patterns → temporal, binary answers
//   5. Synthetic record_count measure, hierarchy detection
// ============================================================================

// ErrNoColumns is returned when the header row is empty.
var ErrNoColumns = errors.New("no columns")

// ErrNoRows is returned when there is nothing below the header.
var ErrNoRows = errors.New("no data rows")

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize     int      // Max rows to inspect (0 = all). Default: 1000
	RecoverColumns []string // Force-include columns that were auto-skipped
	Name           string   // Dataset name override (otherwise inferred)
	Source         string   // Recorded as DiscoveredFrom
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		SampleSize: 1000,
	}
}

// DiscoverFromCSV parses raw CSV bytes and runs DiscoverFromRows on them.
func DiscoverFromCSV(data []byte, opts ...DiscoverOptions) (*Config, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}

	if len(opts) > 0 && opts[0].Source == "" {
		opts[0].Source = "CSV"
	}
	return DiscoverFromRows(headers, rows, opts...)
}

// DiscoverFromRows generates a schema.Config from an already parsed header
// and rows. Keys follow ColumnKey with "_2", "_3" suffixes for duplicates,
// matching how the loader keys records.
func DiscoverFromRows(headers []string, rows [][]string, opts ...DiscoverOptions) (*Config, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	if len(headers) == 0 {
		return nil, ErrNoColumns
	}

	limit := opt.SampleSize
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	totalRows := len(rows)
	if totalRows == 0 {
		return nil, ErrNoRows
	}

	keys := UniqueKeys(headers)
	columns := make([]columnAnalysis, len(headers))
	for i, header := range headers {
		columns[i] = analyzeColumn(header, keys[i], i, rows, totalRows)
	}

	recoverSet := make(map[string]bool)
	for _, col := range opt.RecoverColumns {
		recoverSet[strings.ToLower(col)] = true
		recoverSet[ColumnKey(col)] = true
	}

	config := &Config{
		Name:     opt.Name,
		Version:  "1.0",
		RowCount: totalRows,
	}
	if config.Name == "" {
		config.Name = "Survey Responses"
	}

	var dimensions []DimensionMeta
	var measures []MeasureMeta
	var skipped []SkippedColumn

	for _, col := range columns {
		recovered := recoverSet[strings.ToLower(col.header)] || recoverSet[col.key]

		switch col.role {
		case roleDimension:
			dimensions = append(dimensions, col.toDimension())

		case roleMeasure:
			measures = append(measures, col.toMeasure())

		case roleBoth:
			dimensions = append(dimensions, col.toDimension())
			measures = append(measures, col.toMeasure())

		case roleSkipped:
			if recovered {
				dimensions = append(dimensions, col.toDimension())
			} else {
				skipped = append(skipped, SkippedColumn{
					Column:      col.header,
					Reason:      col.skipReason,
					Recoverable: col.recoverable,
				})
			}
		}
	}

	measures = append(measures, MeasureMeta{
		Key:                "record_count",
		DisplayName:        "Responses",
		Description:        "Number of survey responses (auto-generated)",
		IsSynthetic:        true,
		Aggregations:       []string{"count"},
		DefaultAggregation: "count",
	})

	detectHierarchies(dimensions, rows, columns)

	config.Dimensions = dimensions
	config.Measures = measures
	config.SkippedColumns = skipped
	config.DiscoveredFrom = opt.Source
	if config.DiscoveredFrom == "" {
		config.DiscoveredFrom = "rows"
	}
	config.DiscoveredAt = time.Now().Format(time.RFC3339)

	return config, nil
}

// UniqueKeys maps headers to ColumnKey values, suffixing repeats with
// "_2", "_3", ... and naming blank headers "column_N".
func UniqueKeys(headers []string) []string {
	keys := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		key := ColumnKey(h)
		if key == "" {
			key = fmt.Sprintf("column_%d", i+1)
		}
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s_%d", key, n)
		}
		keys[i] = key
	}
	return keys
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnRole int

const (
	roleDimension columnRole = iota
	roleMeasure
	roleBoth
	roleSkipped
)

type columnType int

const (
	typeString columnType = iota
	typeNumeric
	typeDate
	typeBool
)

type columnAnalysis struct {
	header      string
	key         string
	index       int
	colType     columnType
	role        columnRole
	skipReason  string
	recoverable bool

	uniqueCount int
	totalCount  int
	nullCount   int
	sampleVals  []string

	isTemporal      bool
	temporalFormat  string
	hasDecimals     bool
	unit            string
	cardinalityHint string
}

// analyzeColumn inspects all values in a column and classifies it.
func analyzeColumn(header, key string, index int, rows [][]string, totalRows int) columnAnalysis {
	col := columnAnalysis{
		header:     header,
		key:        key,
		index:      index,
		totalCount: totalRows,
	}

	values := make([]string, 0, len(rows))
	uniqueSet := make(map[string]bool)

	for _, row := range rows {
		if index >= len(row) {
			col.nullCount++
			continue
		}
		val := strings.TrimSpace(row[index])
		if isNull(val) {
			col.nullCount++
			continue
		}
		values = append(values, val)
		uniqueSet[val] = true
	}

	col.uniqueCount = len(uniqueSet)

	if len(values) == 0 {
		col.role = roleSkipped
		col.skipReason = "All values are empty/null"
		col.recoverable = false
		return col
	}

	col.sampleVals = collectSamples(uniqueSet, 10)
	col.colType = detectType(values)

	if col.colType == typeNumeric {
		for _, v := range values {
			if strings.Contains(v, ".") {
				col.hasDecimals = true
				break
			}
		}
		col.unit = detectUnit(header)
	}

	if col.colType == typeString {
		col.isTemporal, col.temporalFormat = detectTemporalPattern(col.sampleVals)
	}
	if col.colType == typeDate {
		col.isTemporal = true
	}

	col.classifyRole(totalRows)

	switch {
	case col.uniqueCount <= 10:
		col.cardinalityHint = "low"
	case col.uniqueCount <= 100:
		col.cardinalityHint = "medium"
	default:
		col.cardinalityHint = "high"
	}

	return col
}

// classifyRole determines dimension vs measure vs skip. Survey answers stay
// groupable even when numeric, so coded numbers (age, year of study) are
// both a dimension and a measure.
func (col *columnAnalysis) classifyRole(totalRows int) {
	switch col.colType {

	case typeNumeric:
		if col.uniqueCount == totalRows && totalRows > 10 && !col.hasDecimals {
			col.role = roleSkipped
			col.skipReason = "Unique per row — likely an ID column"
			col.recoverable = true
			return
		}
		if col.hasDecimals {
			col.role = roleMeasure
			return
		}
		uniqueRatio := float64(col.uniqueCount) / float64(totalRows)
		if col.uniqueCount < 20 && uniqueRatio < 0.5 {
			col.role = roleBoth
			return
		}
		col.role = roleMeasure

	case typeDate:
		col.role = roleDimension
		col.isTemporal = true

	case typeBool:
		col.role = roleDimension

	case typeString:
		if col.uniqueCount == totalRows && totalRows > 10 {
			col.role = roleSkipped
			col.skipReason = "Unique per row — likely free text or an identifier"
			col.recoverable = true
			return
		}
		if col.uniqueCount > totalRows/2 && col.uniqueCount > 50 {
			col.role = roleSkipped
			col.skipReason = fmt.Sprintf("High cardinality (%d unique values) — not useful for grouping", col.uniqueCount)
			col.recoverable = true
			return
		}
		col.role = roleDimension
	}
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// detectType inspects values to determine column type.
// Requires 80%+ of non-null values to match for numeric/date/bool.
func detectType(values []string) columnType {
	if len(values) == 0 {
		return typeString
	}

	numCount := 0
	dateCount := 0
	boolCount := 0

	for _, v := range values {
		if isNumeric(v) {
			numCount++
		}
		if isDate(v) {
			dateCount++
		}
		if isBool(v) {
			boolCount++
		}
	}

	threshold := int(float64(len(values)) * 0.8)

	if boolCount >= threshold {
		return typeBool
	}
	if numCount >= threshold {
		return typeNumeric
	}
	if dateCount >= threshold {
		return typeDate
	}
	return typeString
}

func isNull(s string) bool {
	switch s {
	case "", "null", "NULL", "N/A", "n/a", "NA", "NaN", "nan", "-":
		return true
	}
	return false
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02/01/2006",
	"1/2/2006 15:04:05",
	"Jan-2006",
	"January 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// isBool accepts yes/no style answers only. "1"/"0" are left numeric so
// coded answers keep their measures.
func isBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "false" || s == "yes" || s == "no"
}

// ============================================================================
// SPECIAL PATTERN DETECTION
// ============================================================================

var unitPatterns = []struct {
	re   *regexp.Regexp
	unit string
}{
	{regexp.MustCompile(`(?i)\bgpa\b|\bcgpa\b|semester`), "gpa"},
	{regexp.MustCompile(`(?i)attendance|percent|%`), "percent"},
	{regexp.MustCompile(`(?i)\bhours?\b|\bhrs?\b`), "hours"},
	{regexp.MustCompile(`(?i)\bage\b`), "years"},
}

// detectUnit guesses a measure unit from its header.
func detectUnit(header string) string {
	for _, p := range unitPatterns {
		if p.re.MatchString(header) {
			return p.unit
		}
	}
	return ""
}

var monthPatterns = []struct {
	re     *regexp.Regexp
	format string
}{
	{regexp.MustCompile(`^[A-Z][a-z]{2}-\d{4}$`), "MMM-yyyy"}, // Jan-2026
	{regexp.MustCompile(`^\d{4}-\d{2}$`), "yyyy-MM"},           // 2026-01
	{regexp.MustCompile(`^Q[1-4]-\d{4}$`), "QN-yyyy"},          // Q1-2026
	{regexp.MustCompile(`^Q[1-4]\s+\d{4}$`), "QN yyyy"},        // Q1 2026
	{regexp.MustCompile(`^[A-Z][a-z]+ \d{4}$`), "MMMM yyyy"},   // January 2026
}

// detectTemporalPattern checks if values match known date/month/quarter patterns.
func detectTemporalPattern(samples []string) (bool, string) {
	if len(samples) == 0 {
		return false, ""
	}

	for _, pattern := range monthPatterns {
		matches := 0
		for _, s := range samples {
			if pattern.re.MatchString(strings.TrimSpace(s)) {
				matches++
			}
		}
		if float64(matches)/float64(len(samples)) >= 0.8 {
			return true, pattern.format
		}
	}

	return false, ""
}

// ============================================================================
// HIERARCHY DETECTION
// ============================================================================

// detectHierarchies finds parent/child relationships between dimensions.
// If every value of dimension B maps to exactly one value of dimension A,
// and A has fewer unique values, then A is parent of B.
// When multiple valid parents exist, picks the closest (highest cardinality).
func detectHierarchies(dimensions []DimensionMeta, rows [][]string, columns []columnAnalysis) {
	dimIndices := make(map[string]int)
	dimUniques := make(map[string]int)

	for _, col := range columns {
		if col.role == roleDimension || col.role == roleBoth {
			dimIndices[col.key] = col.index
			dimUniques[col.key] = col.uniqueCount
		}
	}

	for i := range dimensions {
		childKey := dimensions[i].Key
		childIdx, ok1 := dimIndices[childKey]
		if !ok1 {
			continue
		}

		bestParent := ""
		bestParentUniques := 0

		for j := range dimensions {
			if i == j {
				continue
			}
			parentKey := dimensions[j].Key
			parentIdx, ok2 := dimIndices[parentKey]
			if !ok2 {
				continue
			}

			if dimUniques[parentKey] >= dimUniques[childKey] {
				continue
			}

			childToParent := make(map[string]string)
			isHierarchy := true

			for _, row := range rows {
				if childIdx >= len(row) || parentIdx >= len(row) {
					continue
				}
				child := strings.TrimSpace(row[childIdx])
				parent := strings.TrimSpace(row[parentIdx])
				if child == "" || parent == "" {
					continue
				}

				if existing, ok := childToParent[child]; ok {
					if existing != parent {
						isHierarchy = false
						break
					}
				} else {
					childToParent[child] = parent
				}
			}

			if isHierarchy && len(childToParent) > 1 && dimUniques[parentKey] > bestParentUniques {
				bestParent = parentKey
				bestParentUniques = dimUniques[parentKey]
			}
		}

		if bestParent != "" {
			dimensions[i].Parent = bestParent
		}
	}
}

// ============================================================================
// CONVERSION HELPERS
// ============================================================================

func (col *columnAnalysis) toDimension() DimensionMeta {
	d := DimensionMeta{
		Key:             col.key,
		DisplayName:     toDisplayName(col.header),
		SampleValues:    col.sampleVals,
		Groupable:       true,
		Filterable:      true,
		IsTemporal:      col.isTemporal,
		TemporalFormat:  col.temporalFormat,
		IsBinary:        col.colType == typeBool,
		IsNumeric:       col.colType == typeNumeric,
		CardinalityHint: col.cardinalityHint,
		SortHint:        "value_desc",
	}
	if d.IsNumeric || d.IsTemporal {
		d.SortHint = "natural"
	}
	return d
}

func (col *columnAnalysis) toMeasure() MeasureMeta {
	return MeasureMeta{
		Key:                col.key,
		DisplayName:        toDisplayName(col.header),
		Unit:               col.unit,
		Aggregations:       []string{"avg", "sum", "min", "max", "count"},
		DefaultAggregation: "avg",
	}
}

// collectSamples picks up to maxSamples representative values.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}

	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
