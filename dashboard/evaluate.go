package dashboard

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/spektr-org/surveydash/engine"
	"github.com/spektr-org/surveydash/loader"
	"github.com/spektr-org/surveydash/schema"
)

// ============================================================================
// EVALUATION — load the dataset once, run every widget of a page
// ============================================================================
// Column problems become widget warnings and are collected on the page.
// A load failure becomes the page's Error so the front end can show it.
// ============================================================================

// DatasetInfo is the banner shown above every page.
type DatasetInfo struct {
	Source      string    `json:"source"`
	Encoding    string    `json:"encoding"`
	Rows        int       `json:"rows"`
	Columns     int       `json:"columns"`
	SkippedRows int       `json:"skippedRows"`
	LoadedAt    time.Time `json:"loadedAt"`
}

// PageResult is an evaluated page.
type PageResult struct {
	Title    string           `json:"title"`
	Page     Page             `json:"page"`
	Nav      []NavItem        `json:"nav"`
	Dataset  *DatasetInfo     `json:"dataset,omitempty"`
	Results  []*engine.Result `json:"results"`
	Warnings []string         `json:"warnings,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Service evaluates a Dashboard against its memoized dataset.
type Service struct {
	dash   *Dashboard
	loader *loader.Loader
	source string
	opts   []engine.Option

	mu       sync.Mutex
	viewOf   *loader.Dataset
	view     engine.RecordView
	schemaOf *loader.Dataset
	schema   *schema.Config
}

// NewService wires a dashboard to a loader. An empty source falls back to
// the dashboard's own source URL.
func NewService(d *Dashboard, l *loader.Loader, source string, opts ...engine.Option) *Service {
	if source == "" {
		source = d.Source.URL
	}
	return &Service{dash: d, loader: l, source: source, opts: opts}
}

// Dashboard returns the definition being served.
func (s *Service) Dashboard() *Dashboard { return s.dash }

// Source returns the dataset location.
func (s *Service) Source() string { return s.source }

// Dataset loads (or reuses) the survey CSV.
func (s *Service) Dataset(ctx context.Context) (*loader.Dataset, error) {
	if s.source == "" {
		return nil, fmt.Errorf("%w: no dataset source configured", loader.ErrFetch)
	}
	return s.loader.Load(ctx, s.source)
}

// Reload drops the memoized dataset so the next request fetches it again.
func (s *Service) Reload() {
	s.loader.Invalidate(s.source)
	s.mu.Lock()
	s.viewOf, s.view = nil, nil
	s.schemaOf, s.schema = nil, nil
	s.mu.Unlock()
	log.Printf("🔄 dataset cache cleared for %s", s.source)
}

// view returns the engine view of ds, built once per loaded dataset.
func (s *Service) viewFor(ds *loader.Dataset) engine.RecordView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewOf != ds {
		s.view = ds.View()
		s.viewOf = ds
	}
	return s.view
}

// Schema discovers the dataset's columns and applies the dashboard's
// column overrides.
func (s *Service) Schema(ctx context.Context) (*schema.Config, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schemaOf == ds {
		return s.schema, nil
	}

	draft, err := schema.DiscoverFromRows(ds.Header, ds.Rows, schema.DiscoverOptions{
		SampleSize:     0,
		Name:           s.dash.Dataset.Name,
		Source:         ds.Source,
		RecoverColumns: s.dash.Dataset.RecoverColumns(),
	})
	if err != nil {
		return nil, fmt.Errorf("discover schema: %w", err)
	}
	s.schema = schema.ApplyOverrides(draft, s.dash.Dataset)
	s.schemaOf = ds
	return s.schema, nil
}

// Evaluate runs every widget on the page. The returned PageResult is
// non-nil whenever the page exists, even if loading the dataset failed.
func (s *Service) Evaluate(ctx context.Context, pageID string) (*PageResult, error) {
	page, err := s.dash.Page(pageID)
	if err != nil {
		return nil, err
	}

	pr := &PageResult{
		Title:   s.dash.Title,
		Page:    *page,
		Nav:     s.dash.Nav(page.ID),
		Results: []*engine.Result{},
	}

	ds, err := s.Dataset(ctx)
	if err != nil {
		pr.Error = fmt.Sprintf("An error occurred while loading the data: %v", err)
		return pr, err
	}
	pr.Dataset = Info(ds)

	view := s.viewFor(ds)
	labels := s.labelOptions(ctx)
	for _, w := range page.Widgets {
		r := s.run(w, view, labels)
		for _, warn := range r.Warnings {
			pr.Warnings = append(pr.Warnings, fmt.Sprintf("%s: %s", r.Title, warn))
		}
		pr.Results = append(pr.Results, r)
	}
	return pr, nil
}

// Widget runs a single widget.
func (s *Service) Widget(ctx context.Context, pageID, widgetID string) (*engine.Result, error) {
	page, err := s.dash.Page(pageID)
	if err != nil {
		return nil, err
	}
	w, err := page.Widget(widgetID)
	if err != nil {
		return nil, err
	}
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return s.run(w, s.viewFor(ds), s.labelOptions(ctx)), nil
}

// run executes a widget; engine errors are reported as widget warnings.
func (s *Service) run(w engine.QuerySpec, view engine.RecordView, extra []engine.Option) *engine.Result {
	opts := append(append([]engine.Option{}, s.opts...), extra...)
	r, err := engine.Execute(w, view, opts...)
	if err != nil {
		log.Printf("⚠️ widget %q: %v", w.Title, err)
		return &engine.Result{
			Success:  false,
			Type:     engine.ResultWarning,
			ID:       w.ID,
			Title:    w.Title,
			Reply:    "This chart could not be drawn with the loaded dataset.",
			Warnings: []string{err.Error()},
		}
	}
	return r
}

// labelOptions passes display-name overrides to the engine.
func (s *Service) labelOptions(ctx context.Context) []engine.Option {
	if len(s.dash.Dataset.Columns) == 0 {
		return nil
	}
	sch, err := s.Schema(ctx)
	if err != nil {
		return nil
	}
	labels := make(map[string]string, len(sch.Dimensions)+len(sch.Measures))
	for _, d := range sch.Dimensions {
		labels[d.Key] = d.DisplayName
	}
	for _, m := range sch.Measures {
		labels[m.Key] = m.DisplayName
	}
	return []engine.Option{engine.WithLabels(labels)}
}

// Info summarizes a loaded dataset for the page banner.
func Info(ds *loader.Dataset) *DatasetInfo {
	return &DatasetInfo{
		Source:      ds.Source,
		Encoding:    ds.Encoding,
		Rows:        ds.Len(),
		Columns:     len(ds.Header),
		SkippedRows: ds.SkippedRows,
		LoadedAt:    ds.LoadedAt,
	}
}
