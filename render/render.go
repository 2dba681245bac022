// Package render draws engine chart configs as PNG images.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/spektr-org/surveydash/engine"
)

// ============================================================================
// RENDER — ChartConfig → PNG
// ============================================================================
// Category charts (pie, single-series bar, line) are drawn with go-chart.
// Distribution charts (box, scatter) and grouped bars are drawn with
// gonum/plot, which has plotters for them.
// ============================================================================

var (
	// ErrNoData is returned when a chart has nothing to draw.
	ErrNoData = errors.New("chart has no data")
	// ErrUnsupported is returned for chart types this package cannot draw.
	ErrUnsupported = errors.New("unsupported chart type")
)

// Default image size in pixels.
const (
	DefaultWidth  = 800
	DefaultHeight = 480
)

// PNG writes cfg as a PNG image of width × height pixels.
func PNG(w io.Writer, cfg *engine.ChartConfig, width, height int) error {
	if cfg == nil {
		return ErrNoData
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	var err error
	switch cfg.ChartType {
	case engine.VisualPie:
		err = pie(w, cfg, width, height)
	case engine.VisualBar:
		if len(cfg.Series) > 1 {
			err = groupedBars(w, cfg, width, height)
		} else {
			err = bars(w, cfg, width, height)
		}
	case engine.VisualLine:
		err = line(w, cfg, width, height)
	case engine.VisualBox:
		err = box(w, cfg, width, height)
	case engine.VisualScatter:
		err = scatter(w, cfg, width, height)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupported, cfg.ChartType)
	}
	if err != nil && !errors.Is(err, ErrNoData) {
		return fmt.Errorf("render %s %q: %w", cfg.ChartType, cfg.Title, err)
	}
	return err
}

// ============================================================================
// HELPERS
// ============================================================================

// colorAt returns the i-th configured color, cycling, or a neutral grey.
func colorAt(cfg *engine.ChartConfig, i int) string {
	if len(cfg.Colors) == 0 {
		return "#6B7280"
	}
	return cfg.Colors[i%len(cfg.Colors)]
}

// seriesColor prefers the series' own color.
func seriesColor(cfg *engine.ChartConfig, i int) string {
	if i < len(cfg.Series) && cfg.Series[i].Color != "" {
		return cfg.Series[i].Color
	}
	return colorAt(cfg, i)
}

// parseHex reads "#RRGGBB" or "RRGGBB"; malformed input yields grey.
func parseHex(s string) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{R: 0x6B, G: 0x72, B: 0x80, A: 0xFF}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{R: 0x6B, G: 0x72, B: 0x80, A: 0xFF}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}

// categories returns every label across series in first-seen order.
func categories(series []engine.ChartSeries) []string {
	var labels []string
	seen := make(map[string]bool)
	for _, s := range series {
		for _, p := range s.Data {
			if !seen[p.Label] {
				seen[p.Label] = true
				labels = append(labels, p.Label)
			}
		}
	}
	return labels
}

// valueAt looks up a label in a series. Missing labels are absent (false).
func valueAt(s engine.ChartSeries, label string) (float64, bool) {
	for _, p := range s.Data {
		if p.Label == label {
			return p.Value, true
		}
	}
	return 0, false
}

func hasPoints(series []engine.ChartSeries) bool {
	for _, s := range series {
		if len(s.Data) > 0 || len(s.Points) > 0 {
			return true
		}
	}
	return false
}

// valueRange pads [min, max] so flat data still has a visible axis.
func valueRange(values []float64, fromZero bool) (float64, float64) {
	if len(values) == 0 {
		return 0, 1
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if fromZero && lo > 0 {
		lo = 0
	}
	if hi == lo {
		hi = lo + 1
		if !fromZero {
			lo--
		}
	}
	pad := (hi - lo) * 0.08
	if fromZero && lo == 0 {
		return 0, hi + pad
	}
	return lo - pad, hi + pad
}
