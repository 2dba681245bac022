package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/spektr-org/surveydash/dashboard"
	"github.com/spektr-org/surveydash/engine"
	"github.com/spektr-org/surveydash/schema"
	"github.com/spektr-org/surveydash/stats"
)

// ============================================================================
// STYLES
// ============================================================================

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#2D3A5A")).Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0A800"))
	bannerStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

// ============================================================================
// RESULT ROWS — one grid per widget, shared by table and CSV output
// ============================================================================

// resultRows flattens a widget result into a header and rows.
func resultRows(r *engine.Result) ([]string, [][]string) {
	switch {
	case r.ChartConfig != nil && len(r.ChartConfig.Boxes) > 0:
		return boxRows(r.ChartConfig)
	case r.ChartConfig != nil && r.ChartConfig.ChartType == engine.VisualScatter:
		return scatterRows(r.ChartConfig)
	case r.ChartConfig != nil:
		return categoryRows(r.ChartConfig)
	case r.TableData != nil:
		return tableRows(r.TableData)
	case r.Data != nil:
		return []string{"Label", "Value", "Count"},
			[][]string{{r.Data.Label, r.Data.Value, strconv.Itoa(r.Data.Count)}}
	}
	reply := r.Reply
	if reply == "" {
		reply = "No data"
	}
	return []string{"Summary"}, [][]string{{reply}}
}

// categoryRows: label + one column per series.
func categoryRows(c *engine.ChartConfig) ([]string, [][]string) {
	xLabel := c.XAxis
	if xLabel == "" {
		xLabel = "Label"
	}
	header := []string{xLabel}
	if len(c.Series) == 1 {
		y := c.YAxis
		if y == "" {
			y = "Value"
		}
		header = append(header, y)
	} else {
		for _, s := range c.Series {
			header = append(header, s.Name)
		}
	}

	var labels []string
	seen := map[string]bool{}
	for _, s := range c.Series {
		for _, p := range s.Data {
			if !seen[p.Label] {
				seen[p.Label] = true
				labels = append(labels, p.Label)
			}
		}
	}

	rows := make([][]string, 0, len(labels))
	for _, label := range labels {
		row := []string{label}
		for _, s := range c.Series {
			cell := ""
			for _, p := range s.Data {
				if p.Label == label {
					cell = fmtNum(p.Value)
					break
				}
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return header, rows
}

func scatterRows(c *engine.ChartConfig) ([]string, [][]string) {
	header := []string{"Series", c.XAxis, c.YAxis}
	var rows [][]string
	for _, s := range c.Series {
		for _, p := range s.Points {
			rows = append(rows, []string{s.Name, fmtNum(p.X), fmtNum(p.Y)})
		}
	}
	return header, rows
}

func boxRows(c *engine.ChartConfig) ([]string, [][]string) {
	header := []string{"Group", "Count", "Min", "Q1", "Median", "Q3", "Max", "Outliers"}
	rows := make([][]string, 0, len(c.Boxes))
	for _, b := range c.Boxes {
		outliers := make([]string, len(b.Outliers))
		for i, o := range b.Outliers {
			outliers[i] = fmtNum(o)
		}
		rows = append(rows, []string{
			b.Label, strconv.Itoa(b.Count),
			fmtNum(b.Min), fmtNum(b.Q1), fmtNum(b.Median), fmtNum(b.Q3), fmtNum(b.Max),
			strings.Join(outliers, " "),
		})
	}
	return header, rows
}

func tableRows(t *engine.TableData) ([]string, [][]string) {
	header := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col.Label
	}
	rows := append([][]string{}, t.Rows...)
	if t.Summary != nil && len(t.Columns) > 0 {
		row := make([]string, len(t.Columns))
		row[0] = t.Summary.Label
		for i, col := range t.Columns[1:] {
			row[i+1] = t.Summary.Values[col.Key]
		}
		rows = append(rows, row)
	}
	return header, rows
}

// ============================================================================
// TABLE OUTPUT
// ============================================================================

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func writePageTables(w io.Writer, pr *dashboard.PageResult) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s · %s", pr.Title, pr.Page.Title)))
	for _, r := range pr.Results {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headingStyle.Render(r.Title))
		for _, warn := range r.Warnings {
			fmt.Fprintln(w, warnStyle.Render("⚠ "+warn))
		}
		header, rows := resultRows(r)
		table := newTable(w, header)
		table.AppendBulk(rows)
		table.Render()
	}
	fmt.Fprintln(w)
}

func writeSchemaTable(w io.Writer, sch *schema.Config) {
	fmt.Fprintln(w, titleStyle.Render(sch.Name))

	dims := newTable(w, []string{"Dimension", "Display name", "Samples", "Parent", "Sort"})
	for _, d := range sch.Dimensions {
		dims.Append([]string{d.Key, d.DisplayName, strings.Join(d.SampleValues, ", "), d.Parent, d.SortHint})
	}
	dims.Render()

	measures := newTable(w, []string{"Measure", "Display name", "Unit", "Default"})
	for _, m := range sch.Measures {
		measures.Append([]string{m.Key, m.DisplayName, m.Unit, m.DefaultAggregation})
	}
	measures.Render()

	for _, s := range sch.SkippedColumns {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("skipped %s: %s", s.Column, s.Reason)))
	}
}

// describeRows lays out summaries like a describe() table: one row per
// column, blanks where a statistic does not apply.
func describeRows(summaries []stats.ColumnSummary) ([]string, [][]string) {
	header := []string{"Column", "Kind", "Count", "Null", "Mean", "Std", "Min", "25%", "50%", "75%", "Max", "Unique", "Top", "Freq"}
	rows := make([][]string, 0, len(summaries))
	for _, c := range summaries {
		row := []string{c.Label, c.Kind, strconv.Itoa(c.Count), strconv.Itoa(c.Null)}
		if c.Kind == stats.KindNumeric {
			row = append(row, fmtNum(c.Mean), fmtNum(c.Std), fmtNum(c.Min), fmtNum(c.Q1),
				fmtNum(c.Median), fmtNum(c.Q3), fmtNum(c.Max), "", "", "")
		} else {
			row = append(row, "", "", "", "", "", "", "", strconv.Itoa(c.Unique), c.Top, strconv.Itoa(c.Freq))
		}
		rows = append(rows, row)
	}
	return header, rows
}

func writeDescribeTable(w io.Writer, summaries []stats.ColumnSummary) {
	header, rows := describeRows(summaries)
	table := newTable(w, header)
	table.AppendBulk(rows)
	table.Render()
}

// writeBanner prints the dataset banner and its first rows.
func writeBanner(w io.Writer, info *dashboard.DatasetInfo, header []string, head [][]string) {
	lines := []string{
		titleStyle.Render(info.Source),
		mutedStyle.Render(fmt.Sprintf("%d rows · %d columns · %s · loaded %s",
			info.Rows, info.Columns, info.Encoding, info.LoadedAt.Format("2006-01-02 15:04:05"))),
	}
	if info.SkippedRows > 0 {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("%d malformed rows skipped", info.SkippedRows)))
	}
	fmt.Fprintln(w, bannerStyle.Render(strings.Join(lines, "\n")))

	if len(head) > 0 {
		table := newTable(w, header)
		table.AppendBulk(head)
		table.Render()
	}
}

// ============================================================================
// CSV OUTPUT — widget data ready for Sheets
// ============================================================================

// writePageCSV writes one block per widget, separated by a blank line.
func writePageCSV(w io.Writer, pr *dashboard.PageResult) error {
	cw := csv.NewWriter(w)
	for i, r := range pr.Results {
		if i > 0 {
			cw.Write([]string{})
		}
		cw.Write([]string{r.Title})
		header, rows := resultRows(r)
		cw.Write(header)
		for _, row := range rows {
			cw.Write(row)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeDescribeCSV(w io.Writer, summaries []stats.ColumnSummary) error {
	cw := csv.NewWriter(w)
	header, rows := describeRows(summaries)
	cw.Write(header)
	return cw.WriteAll(rows)
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v interface{}, format string) error {
	var out []byte
	var err error

	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// ============================================================================
// HELPERS
// ============================================================================

func fmtNum(v float64) string {
	// Whole numbers → no decimals, fractional → 2 decimals
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
