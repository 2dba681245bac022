package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spektr-org/surveydash/engine"
	"github.com/spektr-org/surveydash/loader"
)

const surveyCSV = `Gender,Age,Year of Study,S.S.C (GPA),H.S.C (GPA),1st Year Semester 1,1st Year Semester 2,Average attendance on class,How many hour do you study daily?
Female,20,1st,4.50,4.25,3.20,3.40,85,2
Male,21,2nd,5.00,4.80,3.60,3.50,90,3
Female,19,1st,4.75,4.50,3.10,3.30,95,4
Female,22,3rd,3.90,3.75,2.90,3.00,70,1
Male,23,4th,4.20,4.00,3.00,3.10,60,2
Female,20,1st,5.00,5.00,3.80,3.90,100,5
`

func surveyServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Path == "/missing.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(surveyCSV))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, source string) *Service {
	t.Helper()
	d, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	return NewService(d, loader.New(), source)
}

func TestEvaluateOverview(t *testing.T) {
	srv := surveyServer(t, nil)
	s := newTestService(t, srv.URL+"/survey.csv")

	pr, err := s.Evaluate(context.Background(), "overview")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if pr.Dataset == nil || pr.Dataset.Rows != 6 || pr.Dataset.Columns != 9 || pr.Dataset.Encoding != loader.EncodingUTF8 {
		t.Errorf("Dataset = %+v", pr.Dataset)
	}
	if len(pr.Results) != len(pr.Page.Widgets) {
		t.Fatalf("got %d results for %d widgets", len(pr.Results), len(pr.Page.Widgets))
	}
	if len(pr.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", pr.Warnings)
	}

	gender := pr.Results[0]
	if gender.Type != engine.ResultChart || gender.ChartConfig.ChartType != engine.VisualPie {
		t.Fatalf("gender result = %+v", gender)
	}
	data := gender.ChartConfig.Series[0].Data
	if len(data) != 2 || data[0].Label != "Female" || data[0].Value != 4 || data[1].Value != 2 {
		t.Errorf("gender counts = %+v, want Female 4, Male 2", data)
	}

	if metric := pr.Results[1]; metric.Reply != "Responses: 6" {
		t.Errorf("metric reply = %q", metric.Reply)
	}
}

func TestEvaluateCollectsWarnings(t *testing.T) {
	srv := surveyServer(t, nil)
	s := newTestService(t, srv.URL+"/survey.csv")

	pr, err := s.Evaluate(context.Background(), "academic")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// Two of six semester columns exist: both column-group widgets still draw.
	means := pr.Results[0]
	if means.Type != engine.ResultChart {
		t.Fatalf("semester means type = %q, reply %q", means.Type, means.Reply)
	}
	if got := len(means.ChartConfig.Series[0].Data); got != 2 {
		t.Errorf("semester means has %d bars, want 2", got)
	}
	if len(means.Warnings) != 4 {
		t.Errorf("semester means warnings = %v", means.Warnings)
	}

	trend := pr.Results[1]
	if trend.Type != engine.ResultChart || len(trend.ChartConfig.Series) != 2 {
		t.Errorf("trend = %+v", trend)
	}

	if len(pr.Warnings) != 8 {
		t.Errorf("page warnings = %d, want 8: %v", len(pr.Warnings), pr.Warnings)
	}
	if !strings.Contains(pr.Warnings[0], `Column "2nd Year Semester 1" not found in dataset`) {
		t.Errorf("first warning = %q", pr.Warnings[0])
	}

	for _, r := range pr.Results[2:] {
		if r.Type == engine.ResultWarning {
			t.Errorf("%s skipped: %v", r.Title, r.Warnings)
		}
	}
}

func TestEvaluateLabelsFromOverrides(t *testing.T) {
	srv := surveyServer(t, nil)
	s := newTestService(t, srv.URL+"/survey.csv")

	r, err := s.Widget(context.Background(), "academic", "s-s-c-vs-h-s-c-gpa")
	if err != nil {
		t.Fatalf("Widget failed: %v", err)
	}
	if r.ChartConfig == nil || r.ChartConfig.XAxis != "SSC GPA" || r.ChartConfig.YAxis != "HSC GPA" {
		t.Errorf("scatter axes = %+v", r.ChartConfig)
	}
}

func TestEvaluateLoadError(t *testing.T) {
	srv := surveyServer(t, nil)
	s := newTestService(t, srv.URL+"/missing.csv")

	pr, err := s.Evaluate(context.Background(), "overview")
	if !errors.Is(err, loader.ErrFetch) {
		t.Errorf("err = %v, want ErrFetch", err)
	}
	if pr == nil || pr.Error == "" {
		t.Fatalf("page result should carry the load error: %+v", pr)
	}
	if len(pr.Nav) != 3 {
		t.Errorf("nav should still render, got %v", pr.Nav)
	}
}

func TestEvaluateUnknownPage(t *testing.T) {
	s := newTestService(t, "unused")
	if _, err := s.Evaluate(context.Background(), "nope"); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("err = %v, want ErrPageNotFound", err)
	}
	if _, err := s.Widget(context.Background(), "overview", "nope"); !errors.Is(err, ErrWidgetNotFound) {
		t.Errorf("err = %v, want ErrWidgetNotFound", err)
	}
}

func TestServiceMemoizesAndReloads(t *testing.T) {
	var hits int32
	srv := surveyServer(t, &hits)
	s := newTestService(t, srv.URL+"/survey.csv")
	ctx := context.Background()

	for _, page := range []string{"overview", "academic", "habits"} {
		if _, err := s.Evaluate(ctx, page); err != nil {
			t.Fatalf("Evaluate(%s) failed: %v", page, err)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("dataset fetched %d times, want 1", n)
	}

	s.Reload()
	if _, err := s.Evaluate(ctx, "overview"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("dataset fetched %d times after reload, want 2", n)
	}
}

func TestServiceSchema(t *testing.T) {
	srv := surveyServer(t, nil)
	s := newTestService(t, srv.URL+"/survey.csv")

	sch, err := s.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	if sch.Name != "Arts Faculty Survey" {
		t.Errorf("Name = %q", sch.Name)
	}
	if got := sch.DisplayName("how_many_hour_do_you_study_daily"); got != "Daily study hours" {
		t.Errorf("hours display name = %q", got)
	}

	again, _ := s.Schema(context.Background())
	if again != sch {
		t.Error("schema should be reused for the same dataset")
	}
}

func TestServiceDefaultSource(t *testing.T) {
	d, _ := Default()
	s := NewService(d, loader.New(), "")
	if s.Source() != d.Source.URL {
		t.Errorf("Source = %q, want dashboard URL", s.Source())
	}
}
