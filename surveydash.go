// Package surveydash serves a dashboard over a student survey CSV.
//
// The dataset is fetched once per session, decoded (UTF-8 or Latin-1) and
// kept in memory. Pages of widgets, defined in YAML, are evaluated by the
// engine package and drawn as PNG charts, tables and single figures.
//
//	d, _ := dashboard.Default()
//	svc := dashboard.NewService(d, loader.New(), "")
//	page, err := svc.Evaluate(ctx, "overview")
//
// Widgets whose columns are missing from the CSV become warnings on the
// page; they never take the page down.
package surveydash
