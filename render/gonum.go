package render

import (
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/spektr-org/surveydash/engine"
)

// ============================================================================
// GONUM/PLOT — box, scatter, grouped bars
// ============================================================================

// pixels converts an image size to vg lengths at the PNG backend's 96 dpi.
func pixels(n int) vg.Length {
	return vg.Length(n) * vg.Inch / 96
}

func newPlot(cfg *engine.ChartConfig) *plot.Plot {
	p := plot.New()
	p.Title.Text = cfg.Title
	p.Title.TextStyle.Font.Size = vg.Points(13)
	p.X.Label.Text = cfg.XAxis
	p.Y.Label.Text = cfg.YAxis
	if cfg.ShowGrid {
		p.Add(plotter.NewGrid())
	}
	return p
}

func save(w io.Writer, p *plot.Plot, width, height int) error {
	wt, err := p.WriterTo(pixels(width), pixels(height), "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

func box(w io.Writer, cfg *engine.ChartConfig, width, height int) error {
	p := newPlot(cfg)

	var names []string
	for i, b := range cfg.Boxes {
		if len(b.Values) == 0 {
			continue
		}
		bp, err := plotter.NewBoxPlot(vg.Points(28), float64(len(names)), plotter.Values(b.Values))
		if err != nil {
			return err
		}
		matchSummary(bp, b)
		bp.FillColor = parseHex(colorAt(cfg, i))
		p.Add(bp)
		names = append(names, b.Label)
	}
	if len(names) == 0 {
		return ErrNoData
	}

	p.NominalX(names...)
	return save(w, p, width, height)
}

// matchSummary makes bp draw the figures reported in the JSON result:
// quartiles, whiskers and the points beyond them.
func matchSummary(bp *plotter.BoxPlot, b engine.BoxSummary) {
	bp.Median = b.Median
	bp.Quartile1 = b.Q1
	bp.Quartile3 = b.Q3
	bp.AdjLow = b.LowerWhisker
	bp.AdjHigh = b.UpperWhisker
	bp.Outside = bp.Outside[:0]
	for i, v := range bp.Values {
		if v < b.LowerWhisker || v > b.UpperWhisker {
			bp.Outside = append(bp.Outside, i)
		}
	}
}

func scatter(w io.Writer, cfg *engine.ChartConfig, width, height int) error {
	p := newPlot(cfg)

	drawn := 0
	for i, s := range cfg.Series {
		if len(s.Points) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.Points))
		for j, pt := range s.Points {
			xys[j].X = pt.X
			xys[j].Y = pt.Y
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = parseHex(seriesColor(cfg, i))
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		if cfg.ShowLegend && s.Name != "" {
			p.Legend.Add(s.Name, sc)
		}
		drawn++
	}
	if drawn == 0 {
		return ErrNoData
	}

	p.Legend.Top = true
	return save(w, p, width, height)
}

// groupedBars draws one bar per series side by side for each category.
func groupedBars(w io.Writer, cfg *engine.ChartConfig, width, height int) error {
	if !hasPoints(cfg.Series) {
		return ErrNoData
	}

	p := newPlot(cfg)
	labels := categories(cfg.Series)

	n := len(cfg.Series)
	barWidth := vg.Points(36) / vg.Length(n)
	if barWidth < vg.Points(4) {
		barWidth = vg.Points(4)
	}

	for i, s := range cfg.Series {
		vals := make(plotter.Values, len(labels))
		for j, l := range labels {
			v, _ := valueAt(s, l)
			vals[j] = v
		}
		b, err := plotter.NewBarChart(vals, barWidth)
		if err != nil {
			return err
		}
		b.Color = parseHex(seriesColor(cfg, i))
		b.LineStyle.Width = vg.Length(0)
		b.Offset = barWidth * vg.Length(2*i-n+1) / 2
		p.Add(b)
		p.Legend.Add(s.Name, b)
	}

	p.Legend.Top = true
	p.NominalX(labels...)
	return save(w, p, width, height)
}
