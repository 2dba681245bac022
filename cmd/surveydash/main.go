package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/spektr-org/surveydash/config"
	"github.com/spektr-org/surveydash/dashboard"
	"github.com/spektr-org/surveydash/engine"
	"github.com/spektr-org/surveydash/export"
	"github.com/spektr-org/surveydash/loader"
	"github.com/spektr-org/surveydash/render"
	"github.com/spektr-org/surveydash/server"
	"github.com/spektr-org/surveydash/stats"
)

// ============================================================================
// SURVEYDASH CLI — Serve or print the survey dashboard
// ============================================================================

const version = "0.3.0"

func init() {
	if _, err := os.Stat("/.dockerenv"); os.IsNotExist(err) {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Fatalf("error loading .env file: %v\n", err)
		}
	} else {
		log.Println("Running in Docker container, skipping .env file loading")
	}
	log.SetPrefix("[surveydash] ")
}

func main() {
	// ── Flags ─────────────────────────────────────────────────────────────
	serve := flag.Bool("serve", false, "Start the web dashboard")
	pageID := flag.String("page", "", "Page to evaluate (default: every page)")
	format := flag.String("format", "json", "Output format: json, pretty, table, csv")
	describe := flag.Bool("describe", false, "Print per-column statistics and exit")
	discover := flag.Bool("discover", false, "Print the discovered schema and exit")
	renderDir := flag.String("render", "", "Write every chart as PNG into this directory")
	exportFile := flag.String("export", "", "Write the page's widgets to this .xlsx file")
	configPath := flag.String("config", "", "Dashboard definition YAML (default: built-in arts faculty survey)")
	sourceURL := flag.String("url", "", "Survey CSV URL or path (overrides the dashboard source)")
	outFile := flag.String("out", "", "Write output to file instead of stdout")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `surveydash — dashboard for a student survey CSV

Usage:
  surveydash --serve
  surveydash --page overview --format table
  surveydash --page academic --format csv --out academic.csv
  surveydash --describe --format table
  surveydash --render charts/
  surveydash --page habits --export habits.xlsx

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Environment:
  PORT              Listen port for --serve (default 8080)
  SURVEY_CSV_URL    Survey CSV location
  DASHBOARD_CONFIG  Dashboard definition YAML
  CACHE_TTL         How long a loaded CSV is reused (e.g. 30m)
  FETCH_TIMEOUT     Timeout for fetching the CSV (e.g. 20s)
  GIN_MODE          debug, release or test

Formats:
  json      Full JSON output (default)
  pretty    Pretty-printed JSON
  table     Terminal tables
  csv       Widget data as CSV (ready for Sheets/Excel)
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("surveydash %s\n", version)
		os.Exit(0)
	}

	switch *format {
	case "json", "pretty", "table", "csv":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown --format %q\n", *format)
		flag.Usage()
		os.Exit(1)
	}

	// ── Settings ──────────────────────────────────────────────────────────
	settings, err := config.FromEnv()
	if err != nil {
		fatalf("Invalid environment: %v", err)
	}
	if *configPath == "" {
		*configPath = settings.DashboardPath
	}
	if *sourceURL == "" {
		*sourceURL = settings.SourceURL
	}

	dash, err := dashboard.Load(*configPath)
	if err != nil {
		fatalf("Failed to load dashboard: %v", err)
	}
	ttl := settings.CacheTTL
	if ttl == 0 {
		ttl = dash.Source.TTL
	}
	svc := dashboard.NewService(dash,
		loader.New(loader.WithTTL(ttl), loader.WithTimeout(settings.FetchTimeout)),
		*sourceURL,
	)
	log.Printf("📋 %s: %d pages, source %s", dash.Title, len(dash.Pages), svc.Source())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Serve mode ────────────────────────────────────────────────────────
	if *serve {
		gin.SetMode(settings.GinMode)
		srv := server.New(svc).HTTPServer(settings.Addr())
		if err := server.Run(ctx, srv); err != nil {
			fatalf("%v", err)
		}
		log.Println("Graceful shutdown complete.")
		return
	}

	// ── Output writer ─────────────────────────────────────────────────────
	var writer io.Writer = os.Stdout
	var out *os.File
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			fatalf("Failed to create output file: %v", err)
		}
		out = f
		writer = f
	}
	// done closes --out and exits non-zero if any write failed.
	done := func(err error) {
		if out != nil {
			if cerr := out.Close(); err == nil {
				err = cerr
			}
		}
		if err != nil {
			fatalf("Failed to write output: %v", err)
		}
	}

	// ── Discover / describe ───────────────────────────────────────────────
	if *discover {
		sch, err := svc.Schema(ctx)
		if err != nil {
			fatalf("Auto-Detect failed: %v", err)
		}
		log.Printf("🔍 Auto-Detect: %s (%d dims, %d measures, %d skipped)",
			sch.Name, len(sch.Dimensions), len(sch.Measures), len(sch.SkippedColumns))
		if *format == "table" {
			writeSchemaTable(writer, sch)
			done(nil)
		} else {
			done(writeJSON(writer, sch, *format))
		}
		return
	}

	if *describe {
		ds, err := svc.Dataset(ctx)
		if err != nil {
			fatalf("Failed to load dataset: %v", err)
		}
		summaries, err := stats.Describe(ds)
		if err != nil {
			fatalf("Describe failed: %v", err)
		}
		switch *format {
		case "table":
			writeDescribeTable(writer, summaries)
			done(nil)
		case "csv":
			done(writeDescribeCSV(writer, summaries))
		default:
			done(writeJSON(writer, summaries, *format))
		}
		return
	}

	// ── Pages ─────────────────────────────────────────────────────────────
	ids := []string{*pageID}
	if *pageID == "" {
		ids = ids[:0]
		for _, p := range dash.Pages {
			ids = append(ids, p.ID)
		}
	}

	pages := make([]*dashboard.PageResult, 0, len(ids))
	for _, id := range ids {
		pr, err := svc.Evaluate(ctx, id)
		if err != nil {
			if pr != nil && pr.Error != "" {
				fatalf("%s", pr.Error)
			}
			fatalf("Evaluation failed: %v", err)
		}
		pages = append(pages, pr)
	}

	if ds, err := svc.Dataset(ctx); err == nil {
		writeBanner(os.Stderr, dashboard.Info(ds), ds.Header, ds.Head(5))
	}

	if *renderDir != "" {
		if err := renderCharts(*renderDir, pages); err != nil {
			fatalf("Render failed: %v", err)
		}
		return
	}

	if *exportFile != "" {
		if err := exportPages(*exportFile, pages); err != nil {
			fatalf("Export failed: %v", err)
		}
		log.Printf("📄 Workbook written to %s", *exportFile)
		return
	}

	// ── Render output ─────────────────────────────────────────────────────
	switch *format {
	case "table":
		for _, pr := range pages {
			writePageTables(writer, pr)
		}
		done(nil)
	case "csv":
		var err error
		for _, pr := range pages {
			if err = writePageCSV(writer, pr); err != nil {
				break
			}
		}
		done(err)
		if *outFile != "" {
			log.Printf("📄 CSV written to %s", *outFile)
		}
	default:
		if len(pages) == 1 {
			done(writeJSON(writer, pages[0], *format))
		} else {
			done(writeJSON(writer, pages, *format))
		}
	}
}

// renderCharts writes <page>-<widget>.png for every chart widget.
func renderCharts(dir string, pages []*dashboard.PageResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	written := 0
	for _, pr := range pages {
		for _, r := range pr.Results {
			if r.ChartConfig == nil {
				continue
			}
			path := filepath.Join(dir, fmt.Sprintf("%s-%s.png", pr.Page.ID, r.ID))
			if err := writePNG(path, r.ChartConfig); err != nil {
				if errors.Is(err, render.ErrNoData) {
					log.Printf("⚠️ %s: %v", path, err)
					continue
				}
				return fmt.Errorf("%s: %w", path, err)
			}
			written++
		}
	}
	log.Printf("🖼️ %d charts written to %s", written, dir)
	return nil
}

func writePNG(path string, cfg *engine.ChartConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.PNG(f, cfg, render.DefaultWidth, render.DefaultHeight); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// exportPages writes one workbook; several pages share it in page order.
func exportPages(path string, pages []*dashboard.PageResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	title := pages[0].Title
	if len(pages) == 1 {
		title = fmt.Sprintf("%s: %s", pages[0].Title, pages[0].Page.Title)
	}
	var results []*engine.Result
	for _, pr := range pages {
		results = append(results, pr.Results...)
	}
	if err := export.Workbook(f, title, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
