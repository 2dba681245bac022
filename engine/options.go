package engine

// ============================================================================
// ENGINE OPTIONS — Functional options for Execute()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Palette       []string          // series colors, cycled
	MaxCategories int               // pie slices beyond this collapse into "Other"
	Labels        map[string]string // column key → display name
}

// WithPalette overrides the default series colors.
func WithPalette(colors []string) Option {
	return func(c *config) {
		if len(colors) > 0 {
			c.Palette = colors
		}
	}
}

// WithMaxCategories caps the number of pie slices; the remainder is summed
// into a trailing "Other" slice. Zero disables the cap.
func WithMaxCategories(n int) Option {
	return func(c *config) {
		c.MaxCategories = n
	}
}

// WithLabels replaces column labels (axis titles, table headers) by key.
func WithLabels(labels map[string]string) Option {
	return func(c *config) {
		c.Labels = labels
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Palette:       defaultColors,
		MaxCategories: 8,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
