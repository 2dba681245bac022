package render

import (
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/spektr-org/surveydash/engine"
)

// ============================================================================
// GO-CHART — pie, bar, line
// ============================================================================

func chartColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func titleStyle() chart.Style {
	return chart.Style{FontSize: 13, FontColor: chart.ColorBlack}
}

func pie(w io.Writer, cfg *engine.ChartConfig, width, height int) error {
	if len(cfg.Series) == 0 {
		return ErrNoData
	}

	var values []chart.Value
	var total float64
	for i, p := range cfg.Series[0].Data {
		if p.Value <= 0 {
			continue
		}
		total += p.Value
		values = append(values, chart.Value{
			Label: p.Label,
			Value: p.Value,
			Style: chart.Style{
				FillColor:   chartColor(colorAt(cfg, i)),
				StrokeColor: chart.ColorWhite,
				StrokeWidth: 1,
				FontSize:    10,
			},
		})
	}
	if total == 0 {
		return ErrNoData
	}

	pc := chart.PieChart{
		Title:      cfg.Title,
		TitleStyle: titleStyle(),
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		Values:     values,
	}
	return pc.Render(chart.PNG, w)
}

func bars(w io.Writer, cfg *engine.ChartConfig, width, height int) error {
	if !hasPoints(cfg.Series) {
		return ErrNoData
	}

	data := cfg.Series[0].Data
	vals := make([]chart.Value, 0, len(data))
	raw := make([]float64, 0, len(data))
	fill := chartColor(seriesColor(cfg, 0))
	for _, p := range data {
		vals = append(vals, chart.Value{
			Label: p.Label,
			Value: p.Value,
			Style: chart.Style{FillColor: fill, StrokeColor: fill, StrokeWidth: 1},
		})
		raw = append(raw, p.Value)
	}
	lo, hi := valueRange(raw, true)

	barWidth := (width - 120) / (len(vals) + 1)
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 4 {
		barWidth = 4
	}

	bc := chart.BarChart{
		Title:      cfg.Title,
		TitleStyle: titleStyle(),
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10}},
		YAxis: chart.YAxis{
			Name:  cfg.YAxis,
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: vals,
	}
	return bc.Render(chart.PNG, w)
}

func line(w io.Writer, cfg *engine.ChartConfig, width, height int) error {
	if !hasPoints(cfg.Series) {
		return ErrNoData
	}

	labels := categories(cfg.Series)
	ticks := make([]chart.Tick, len(labels))
	for i, l := range labels {
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}

	var series []chart.Series
	var all []float64
	for i, s := range cfg.Series {
		var xs, ys []float64
		for j, l := range labels {
			if v, ok := valueAt(s, l); ok {
				xs = append(xs, float64(j))
				ys = append(ys, v)
				all = append(all, v)
			}
		}
		if len(xs) == 0 {
			continue
		}
		col := chartColor(seriesColor(cfg, i))
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: col,
				StrokeWidth: 2,
				DotColor:    col,
				DotWidth:    4,
			},
		})
	}
	if len(series) == 0 {
		return ErrNoData
	}

	lo, hi := valueRange(all, false)
	xMax := float64(len(labels) - 1)
	if xMax < 1 {
		xMax = 1
	}

	ch := chart.Chart{
		Title:      cfg.Title,
		TitleStyle: titleStyle(),
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 10}},
		XAxis: chart.XAxis{
			Name:  cfg.XAxis,
			Range: &chart.ContinuousRange{Min: -0.25, Max: xMax + 0.25},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  cfg.YAxis,
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: series,
	}
	if cfg.ShowGrid {
		ch.YAxis.GridMajorStyle = chart.Style{StrokeColor: chart.ColorAlternateGray, StrokeWidth: 0.5}
	}
	if cfg.ShowLegend && len(series) > 1 {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	return ch.Render(chart.PNG, w)
}
