// Package dashboard defines the survey dashboard's pages and evaluates
// their widgets against the loaded dataset.
package dashboard

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spektr-org/surveydash/engine"
	"github.com/spektr-org/surveydash/schema"
)

// ============================================================================
// DASHBOARD DEFINITION — YAML pages of widgets
// ============================================================================

//go:embed default.yaml
var defaultYAML []byte

var (
	// ErrPageNotFound is returned for an unknown page id.
	ErrPageNotFound = errors.New("page not found")
	// ErrWidgetNotFound is returned for an unknown widget id.
	ErrWidgetNotFound = errors.New("widget not found")
	// ErrInvalid wraps every problem found while parsing a definition.
	ErrInvalid = errors.New("invalid dashboard")
)

// Dashboard is a parsed dashboard definition.
type Dashboard struct {
	Title   string           `yaml:"title" json:"title"`
	Source  Source           `yaml:"source" json:"source"`
	Dataset schema.Overrides `yaml:"dataset" json:"dataset"`
	Pages   []Page           `yaml:"pages" json:"pages"`
}

// Source says where the survey CSV lives and how long it is reused.
type Source struct {
	URL string        `yaml:"url" json:"url"`
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// Page is one screen of the dashboard.
type Page struct {
	ID          string             `yaml:"id" json:"id"`
	Title       string             `yaml:"title" json:"title"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Widgets     []engine.QuerySpec `yaml:"widgets" json:"widgets"`
}

// NavItem is one entry of the navigation bar.
type NavItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// Default returns the embedded arts faculty survey dashboard.
func Default() (*Dashboard, error) {
	return Parse(defaultYAML)
}

// Load reads a definition from path, or the embedded default when path is empty.
func Load(path string) (*Dashboard, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dashboard %s: %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes and validates a YAML definition. Missing page and widget
// ids are derived from titles.
func Parse(data []byte) (*Dashboard, error) {
	var d Dashboard
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := d.normalize(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Dashboard) normalize() error {
	if d.Title == "" {
		d.Title = "Survey Dashboard"
	}
	if len(d.Pages) == 0 {
		return fmt.Errorf("%w: at least one page is required", ErrInvalid)
	}

	hints := d.sortHints()
	pageIDs := make(map[string]bool, len(d.Pages))
	for i := range d.Pages {
		p := &d.Pages[i]
		if p.Title == "" && p.ID == "" {
			return fmt.Errorf("%w: page %d has neither id nor title", ErrInvalid, i+1)
		}
		if p.ID == "" {
			p.ID = Slug(p.Title)
		}
		if p.Title == "" {
			p.Title = p.ID
		}
		if pageIDs[p.ID] {
			return fmt.Errorf("%w: duplicate page id %q", ErrInvalid, p.ID)
		}
		pageIDs[p.ID] = true

		if err := p.normalizeWidgets(hints); err != nil {
			return err
		}
	}
	return nil
}

// sortHints maps column keys to the sort_hint set in the dataset section.
func (d *Dashboard) sortHints() map[string]string {
	hints := make(map[string]string)
	for name, c := range d.Dataset.Columns {
		if hint := strings.ToLower(strings.TrimSpace(c.SortHint)); hint != "" {
			hints[schema.ColumnKey(name)] = hint
		}
	}
	return hints
}

// normalizeWidgets fills widget defaults and ids. A widget without sort_by
// takes the sort hint of its first group_by column.
func (p *Page) normalizeWidgets(hints map[string]string) error {
	explicit := make(map[string]bool, len(p.Widgets))
	for _, w := range p.Widgets {
		if w.ID == "" {
			continue
		}
		if explicit[w.ID] {
			return fmt.Errorf("%w: page %q: duplicate widget id %q", ErrInvalid, p.ID, w.ID)
		}
		explicit[w.ID] = true
	}

	used := explicit
	for i := range p.Widgets {
		w := &p.Widgets[i]
		if w.SortBy == "" && len(w.GroupBy) > 0 {
			w.SortBy = hints[schema.ColumnKey(w.GroupBy[0])]
		}
		*w = engine.NormalizeQuerySpec(*w)
		if !knownVisual(w.Visualize) {
			return fmt.Errorf("%w: page %q: widget %q: unknown visualize %q", ErrInvalid, p.ID, w.Title, w.Visualize)
		}
		if w.ID != "" {
			continue
		}
		base := Slug(w.Title)
		if base == "" {
			base = fmt.Sprintf("widget-%d", i+1)
		}
		id := base
		for n := 2; used[id]; n++ {
			id = fmt.Sprintf("%s-%d", base, n)
		}
		w.ID = id
		used[id] = true
	}
	return nil
}

func knownVisual(v string) bool {
	switch v {
	case engine.VisualPie, engine.VisualBar, engine.VisualBox, engine.VisualScatter,
		engine.VisualLine, engine.VisualTable, engine.VisualMetric:
		return true
	}
	return false
}

// Slug turns a title into a URL-safe id: "Study Habits" → "study-habits".
func Slug(title string) string {
	return strings.ReplaceAll(schema.ColumnKey(title), "_", "-")
}

// Page returns the page with the given id.
func (d *Dashboard) Page(id string) (*Page, error) {
	for i := range d.Pages {
		if d.Pages[i].ID == id {
			return &d.Pages[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPageNotFound, id)
}

// Widget returns the widget with the given id on this page.
func (p *Page) Widget(id string) (engine.QuerySpec, error) {
	for _, w := range p.Widgets {
		if w.ID == id {
			return w, nil
		}
	}
	return engine.QuerySpec{}, fmt.Errorf("%w: %q on page %q", ErrWidgetNotFound, id, p.ID)
}

// Nav lists every page, marking the active one.
func (d *Dashboard) Nav(active string) []NavItem {
	items := make([]NavItem, len(d.Pages))
	for i, p := range d.Pages {
		items[i] = NavItem{
			ID:     p.ID,
			Title:  p.Title,
			URL:    "/pages/" + p.ID,
			Active: p.ID == active,
		}
	}
	return items
}
