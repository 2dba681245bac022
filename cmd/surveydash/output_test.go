package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spektr-org/surveydash/dashboard"
	"github.com/spektr-org/surveydash/engine"
	"github.com/spektr-org/surveydash/stats"
)

func samplePage() *dashboard.PageResult {
	return &dashboard.PageResult{
		Title: "Survey",
		Page:  dashboard.Page{ID: "overview", Title: "Overview"},
		Results: []*engine.Result{
			{
				Type: engine.ResultChart, ID: "gender", Title: "Gender distribution",
				ChartConfig: &engine.ChartConfig{
					ChartType: engine.VisualPie, XAxis: "Gender", YAxis: "Students",
					Series: []engine.ChartSeries{{Name: "Students", Data: []engine.ChartPoint{
						{Label: "Female", Value: 4}, {Label: "Male", Value: 2},
					}}},
				},
			},
			{
				Type: engine.ResultText, ID: "responses", Title: "Responses",
				Data: &engine.TextData{Label: "Responses", Value: "6", RawValue: 6, Count: 6},
			},
			{
				Type: engine.ResultWarning, ID: "missing", Title: "Missing",
				Reply:    "This chart could not be drawn with the loaded dataset.",
				Warnings: []string{`Column "Shoe size" not found in dataset`},
			},
		},
	}
}

func TestResultRows(t *testing.T) {
	tests := []struct {
		name       string
		result     *engine.Result
		wantHeader []string
		wantRows   int
		wantCell   string
	}{
		{
			name:       "single series",
			result:     samplePage().Results[0],
			wantHeader: []string{"Gender", "Students"},
			wantRows:   2,
			wantCell:   "4",
		},
		{
			name: "multi series",
			result: &engine.Result{ChartConfig: &engine.ChartConfig{
				ChartType: engine.VisualLine, XAxis: "Semester",
				Series: []engine.ChartSeries{
					{Name: "Female", Data: []engine.ChartPoint{{Label: "S1", Value: 3.25}, {Label: "S2", Value: 3.4}}},
					{Name: "Male", Data: []engine.ChartPoint{{Label: "S1", Value: 3.3}}},
				},
			}},
			wantHeader: []string{"Semester", "Female", "Male"},
			wantRows:   2,
			wantCell:   "3.25",
		},
		{
			name: "scatter",
			result: &engine.Result{ChartConfig: &engine.ChartConfig{
				ChartType: engine.VisualScatter, XAxis: "SSC", YAxis: "HSC",
				Series: []engine.ChartSeries{{Name: "All", Points: []engine.XYPoint{{X: 4.5, Y: 4.25}}}},
			}},
			wantHeader: []string{"Series", "SSC", "HSC"},
			wantRows:   1,
			wantCell:   "All",
		},
		{
			name: "box",
			result: &engine.Result{ChartConfig: &engine.ChartConfig{
				ChartType: engine.VisualBox,
				Boxes:     []engine.BoxSummary{{Label: "Female", Count: 4, Min: 3.75, Q1: 4.06, Median: 4.38, Q3: 4.63, Max: 5}},
			}},
			wantHeader: []string{"Group", "Count", "Min", "Q1", "Median", "Q3", "Max", "Outliers"},
			wantRows:   1,
			wantCell:   "Female",
		},
		{
			name: "table with summary",
			result: &engine.Result{TableData: &engine.TableData{
				Columns: []engine.Column{{Key: "gender", Label: "Gender"}, {Key: "count", Label: "Count"}},
				Rows:    [][]string{{"Female", "4"}, {"Male", "2"}},
				Summary: &engine.Summary{Label: "Total", Values: map[string]string{"count": "6"}},
			}},
			wantHeader: []string{"Gender", "Count"},
			wantRows:   3,
			wantCell:   "Total",
		},
		{
			name:       "metric",
			result:     samplePage().Results[1],
			wantHeader: []string{"Label", "Value", "Count"},
			wantRows:   1,
			wantCell:   "Responses",
		},
		{
			name:       "warning",
			result:     samplePage().Results[2],
			wantHeader: []string{"Summary"},
			wantRows:   1,
			wantCell:   "This chart could not be drawn with the loaded dataset.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, rows := resultRows(tt.result)
			if strings.Join(header, "|") != strings.Join(tt.wantHeader, "|") {
				t.Errorf("header = %v, want %v", header, tt.wantHeader)
			}
			if len(rows) != tt.wantRows {
				t.Fatalf("rows = %d, want %d: %v", len(rows), tt.wantRows, rows)
			}
			found := false
			for _, row := range rows {
				for _, cell := range row {
					if cell == tt.wantCell {
						found = true
					}
				}
			}
			if !found {
				t.Errorf("no cell %q in %v", tt.wantCell, rows)
			}
		})
	}
}

func TestMultiSeriesMissingLabelIsBlank(t *testing.T) {
	_, rows := resultRows(&engine.Result{ChartConfig: &engine.ChartConfig{
		ChartType: engine.VisualBar,
		Series: []engine.ChartSeries{
			{Name: "Female", Data: []engine.ChartPoint{{Label: "S1", Value: 3}, {Label: "S2", Value: 4}}},
			{Name: "Male", Data: []engine.ChartPoint{{Label: "S1", Value: 2}}},
		},
	}})
	if got := rows[1]; got[0] != "S2" || got[2] != "" {
		t.Errorf("row = %v, want S2 with a blank Male cell", got)
	}
}

func TestWritePageCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := writePageCSV(&buf, samplePage()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Gender distribution\nGender,Students\nFemale,4\nMale,2\n",
		"Responses\nLabel,Value,Count\nResponses,6,6\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("csv missing %q in:\n%s", want, out)
		}
	}
}

var errDiskFull = errors.New("disk full")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errDiskFull }

func TestWritersReportErrors(t *testing.T) {
	tests := []struct {
		name  string
		write func() error
	}{
		{"page csv", func() error { return writePageCSV(failingWriter{}, samplePage()) }},
		{"describe csv", func() error { return writeDescribeCSV(failingWriter{}, nil) }},
		{"json", func() error { return writeJSON(failingWriter{}, samplePage(), "pretty") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.write(); !errors.Is(err, errDiskFull) {
				t.Errorf("err = %v, want the write error", err)
			}
		})
	}
}

func TestWritePageTables(t *testing.T) {
	var buf bytes.Buffer
	writePageTables(&buf, samplePage())
	out := buf.String()
	for _, want := range []string{"Gender distribution", "Female", "Shoe size"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q", want)
		}
	}
}

func TestDescribeRows(t *testing.T) {
	header, rows := describeRows([]stats.ColumnSummary{
		{Key: "age", Label: "Age", Kind: stats.KindNumeric, Count: 6, Mean: 20.83, Min: 19, Max: 23},
		{Key: "gender", Label: "Gender", Kind: stats.KindText, Count: 6, Unique: 2, Top: "Female", Freq: 4},
	})
	if len(header) != 14 {
		t.Fatalf("header = %v", header)
	}
	for _, row := range rows {
		if len(row) != len(header) {
			t.Errorf("row %v has %d cells, want %d", row, len(row), len(header))
		}
	}
	if rows[0][4] != "20.83" || rows[0][11] != "" {
		t.Errorf("numeric row = %v", rows[0])
	}
	if rows[1][12] != "Female" || rows[1][4] != "" {
		t.Errorf("text row = %v", rows[1])
	}
}

func TestRenderCharts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	if err := renderCharts(dir, []*dashboard.PageResult{samplePage()}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "overview-gender.png" {
		t.Errorf("files = %v", entries)
	}
}

func TestExportPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overview.xlsx")
	if err := exportPages(path, []*dashboard.PageResult{samplePage()}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("workbook is not a zip container")
	}
}

func TestFmtNum(t *testing.T) {
	tests := map[float64]string{4: "4", 3.456: "3.46", -2: "-2", 0.5: "0.50"}
	for in, want := range tests {
		if got := fmtNum(in); got != want {
			t.Errorf("fmtNum(%v) = %q, want %q", in, got, want)
		}
	}
}
