package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ============================================================================
// LOADER TESTS
// ============================================================================

const surveyCSV = `Gender,Age,Year of Study,S.S.C (GPA),H.S.C (GPA),Average attendance on class
Male,20,1st,4.50,4.25,85
Female,21,2nd,5.00,4.80,90%
Female,19,1st,4.75,,95
Male,22,3rd,3.90,3.75,70
`

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		text     string
		encoding string
	}{
		{"plain ascii", []byte("a,b\n1,2\n"), "a,b\n1,2\n", EncodingUTF8},
		{"utf-8 with bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("Gender\nMale\n")...), "Gender\nMale\n", EncodingUTF8},
		{"utf-8 accents", []byte("Name\nJosé\n"), "Name\nJosé\n", EncodingUTF8},
		{"latin-1 accents", []byte("Name\nJos\xe9\n"), "Name\nJosé\n", EncodingLatin1},
		{"latin-1 pound", []byte("Fee\n\xa3100\n"), "Fee\n£100\n", EncodingLatin1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, enc := Decode(tt.raw)
			if text != tt.text {
				t.Errorf("text = %q, want %q", text, tt.text)
			}
			if enc != tt.encoding {
				t.Errorf("encoding = %q, want %q", enc, tt.encoding)
			}
		})
	}
}

func TestParse(t *testing.T) {
	ds, err := Parse(surveyCSV, "test", EncodingUTF8)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if ds.Len() != 4 {
		t.Errorf("Len = %d, want 4", ds.Len())
	}
	wantKeys := []string{"gender", "age", "year_of_study", "s_s_c_gpa", "h_s_c_gpa", "average_attendance_on_class"}
	for i, k := range wantKeys {
		if ds.Keys[i] != k {
			t.Errorf("Keys[%d] = %q, want %q", i, ds.Keys[i], k)
		}
	}
	if ds.Header[3] != "S.S.C (GPA)" {
		t.Errorf("Header[3] = %q", ds.Header[3])
	}
}

func TestParseRaggedRows(t *testing.T) {
	text := "A,B,C\n1,2\n1,2,3,4\n\n\"bad,\"row\",x\n5,6,7\n"
	ds, err := Parse(text, "ragged", EncodingUTF8)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for i, row := range ds.Rows {
		if len(row) != 3 {
			t.Errorf("row %d has %d cells, want 3", i, len(row))
		}
	}
	if ds.Rows[0][2] != "" {
		t.Errorf("short row should be padded, got %q", ds.Rows[0][2])
	}
	if ds.Rows[1][2] != "3" {
		t.Errorf("long row should be truncated to header width, got %v", ds.Rows[1])
	}
	if len(ds.Rows) != 3 || ds.Rows[2][0] != "5" {
		t.Errorf("rows = %v, want the badly quoted row dropped", ds.Rows)
	}
	if ds.SkippedRows != 1 {
		t.Errorf("SkippedRows = %d, want 1", ds.SkippedRows)
	}
}

func TestParseMalformedQuotes(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		rows    int
		skipped int
		last    string
	}{
		{"unterminated quote", "Gender,Age,GPA\nMale,20,4.5\n\"Female,21,4.8\nMale,22,3.9\nFemale,19,4.1\n", 3, 1, "Female"},
		{"unterminated quote on last line", "Gender,Age,GPA\nMale,20,4.5\n\"Female,21,4.8\n", 1, 1, "Male"},
		{"bare quote", "Gender,Age,GPA\nMa\"le,20,4.5\nFemale,21,4.8\n", 1, 1, "Female"},
		{"two bad rows", "Gender,Age,GPA\n\"x\"y,1,2\nMale,20,4.5\n\"Female,21\nMale,22,3.9\n", 2, 2, "Male"},
		{"quoted newline is kept", "Gender,Comment\nMale,\"good\nteacher\"\nFemale,ok\n", 2, 0, "Female"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := Parse(tt.text, "quotes", EncodingUTF8)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(ds.Rows) != tt.rows || ds.SkippedRows != tt.skipped {
				t.Fatalf("rows = %d skipped = %d, want %d and %d (%q)", len(ds.Rows), ds.SkippedRows, tt.rows, tt.skipped, ds.Rows)
			}
			if got := ds.Rows[len(ds.Rows)-1][0]; got != tt.last {
				t.Errorf("last row starts with %q, want %q", got, tt.last)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"nothing", ""},
		{"header only", "Gender,Age\n"},
		{"blank header", ",,\n1,2,3\n"},
		{"blank rows", "Gender\n\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, "x", EncodingUTF8)
			if !errors.Is(err, ErrEmpty) {
				t.Errorf("err = %v, want ErrEmpty", err)
			}
		})
	}
}

func TestParseDuplicateHeaders(t *testing.T) {
	ds, err := Parse("Score,Score,score\n1,2,3\n", "dup", EncodingUTF8)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []string{"score", "score_2", "score_3"}
	for i := range want {
		if ds.Keys[i] != want[i] {
			t.Errorf("Keys[%d] = %q, want %q", i, ds.Keys[i], want[i])
		}
	}
}

func TestDatasetRecordsAndView(t *testing.T) {
	ds, err := Parse(surveyCSV, "test", EncodingUTF8)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	records := ds.Records()
	if got := records[0].Dimensions["gender"]; got != "Male" {
		t.Errorf("gender = %q, want Male", got)
	}
	if _, ok := records[0].Measures["gender"]; ok {
		t.Error("text cells must not become measures")
	}
	if got := records[1].Measures["average_attendance_on_class"]; got != 90 {
		t.Errorf("90%% should parse as 90, got %v", got)
	}
	if _, ok := records[2].Dimensions["h_s_c_gpa"]; ok {
		t.Error("empty cells must be absent")
	}
	if got := records[0].Dimensions["age"]; got != "20" {
		t.Errorf("numeric cells stay dimensions, got %q", got)
	}

	view := ds.View()
	if view.Len() != 4 {
		t.Fatalf("view Len = %d", view.Len())
	}
	if keys := view.DimensionKeys(); keys[0] != "gender" || keys[3] != "s_s_c_gpa" {
		t.Errorf("view keys should follow CSV order, got %v", keys)
	}
	if view.Label("s_s_c_gpa") != "S.S.C (GPA)" {
		t.Errorf("Label = %q", view.Label("s_s_c_gpa"))
	}
	if _, ok := view.Measure(2, "h_s_c_gpa"); ok {
		t.Error("missing GPA should not be a measure")
	}
}

func TestDatasetHeadAndColumn(t *testing.T) {
	ds, _ := Parse(surveyCSV, "test", EncodingUTF8)

	if got := len(ds.Head(2)); got != 2 {
		t.Errorf("Head(2) = %d rows", got)
	}
	if got := len(ds.Head(100)); got != 4 {
		t.Errorf("Head(100) = %d rows", got)
	}
	if got := len(ds.Head(0)); got != 0 {
		t.Errorf("Head(0) = %d rows", got)
	}

	col, ok := ds.Column("ssc (gpa)")
	if ok {
		t.Errorf("different spelling should not match, got %v", col)
	}
	col, ok = ds.Column("s.s.c (GPA)")
	if !ok || col[0] != "4.50" {
		t.Errorf("Column = %v, %v", col, ok)
	}
	if _, ok := ds.Column("Missing"); ok {
		t.Error("missing column reported present")
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4.5", 4.5, true},
		{" 85 ", 85, true},
		{"90%", 90, true},
		{"1,234", 1234, true},
		{"-2", -2, true},
		{"", 0, false},
		{"Male", 0, false},
		{"1st", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

// ============================================================================
// FETCH + MEMOIZATION
// ============================================================================

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(surveyCSV))
	}))
	defer srv.Close()

	data, err := Fetch(context.Background(), srv.Client(), srv.URL+"/survey.csv")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "Gender,") {
		t.Errorf("unexpected body %q", data[:20])
	}

	_, err = Fetch(context.Background(), srv.Client(), srv.URL+"/missing.csv")
	if !errors.Is(err, ErrFetch) {
		t.Errorf("404 err = %v, want ErrFetch", err)
	}
	if err != nil && !strings.Contains(err.Error(), "404") {
		t.Errorf("error should name the status: %v", err)
	}
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survey.csv")
	if err := os.WriteFile(path, []byte(surveyCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, src := range []string{path, "file://" + path} {
		data, err := Fetch(context.Background(), nil, src)
		if err != nil {
			t.Fatalf("Fetch(%q) failed: %v", src, err)
		}
		if string(data) != surveyCSV {
			t.Errorf("Fetch(%q) returned different bytes", src)
		}
	}

	if _, err := Fetch(context.Background(), nil, filepath.Join(t.TempDir(), "nope.csv")); !errors.Is(err, ErrFetch) {
		t.Errorf("missing file err = %v, want ErrFetch", err)
	}
	if _, err := Fetch(context.Background(), nil, "  "); !errors.Is(err, ErrFetch) {
		t.Errorf("empty source err = %v, want ErrFetch", err)
	}
}

func TestLoaderMemoizes(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(surveyCSV))
	}))
	defer srv.Close()

	l := New(WithTTL(time.Minute), WithHTTPClient(srv.Client()))
	src := srv.URL + "/survey.csv"

	first, err := l.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := l.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}

	if first != second {
		t.Error("second Load should return the memoized dataset")
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
	if !l.Cached(src) {
		t.Error("source should be cached")
	}

	l.Invalidate(src)
	if l.Cached(src) {
		t.Error("Invalidate should drop the dataset")
	}
	if _, err := l.Load(context.Background(), src); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("server hit %d times after invalidate, want 2", n)
	}

	l.Flush()
	if l.Cached(src) {
		t.Error("Flush should drop every dataset")
	}
}

func TestLoaderExpiresAfterTTL(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(surveyCSV))
	}))
	defer srv.Close()

	l := New(WithTTL(50*time.Millisecond), WithHTTPClient(srv.Client()))
	src := srv.URL + "/survey.csv"

	if _, err := l.Load(context.Background(), src); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := l.Load(context.Background(), src); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("server hit %d times within the TTL, want 1", n)
	}

	time.Sleep(120 * time.Millisecond)
	if l.Cached(src) {
		t.Error("dataset should have expired")
	}
	if _, err := l.Load(context.Background(), src); err != nil {
		t.Fatalf("Load after expiry failed: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("server hit %d times after the TTL, want 2", n)
	}
}

func TestLoaderDoesNotCacheFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(surveyCSV))
	}))
	defer srv.Close()

	l := New(WithHTTPClient(srv.Client()))
	src := srv.URL + "/survey.csv"

	if _, err := l.Load(context.Background(), src); !errors.Is(err, ErrFetch) {
		t.Fatalf("first Load err = %v, want ErrFetch", err)
	}
	ds, err := l.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("second Load should retry and succeed: %v", err)
	}
	if ds.Len() != 4 {
		t.Errorf("Len = %d", ds.Len())
	}
}

func TestLoaderConcurrentCallersShareFetch(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.Write([]byte(surveyCSV))
	}))
	defer srv.Close()

	l := New(WithHTTPClient(srv.Client()))
	src := srv.URL + "/survey.csv"

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Load(context.Background(), src)
			errs <- err
		}()
	}

	// Let the goroutines pile up behind the first request.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Load failed: %v", err)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}

func TestLoaderCancelledCallerDoesNotFailOthers(t *testing.T) {
	var hits int32
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			close(started)
		}
		<-release
		w.Write([]byte(surveyCSV))
	}))
	defer srv.Close()
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()

	l := New(WithHTTPClient(srv.Client()))
	src := srv.URL + "/survey.csv"

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := l.Load(ctx, src)
		first <- err
	}()
	<-started

	second := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), src)
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-first:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller should return without waiting for the fetch")
	}

	close(release)
	if err := <-second; err != nil {
		t.Errorf("waiting caller failed: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
	if !l.Cached(src) {
		t.Error("the shared load should still be memoized")
	}
}

func TestLoaderLatin1Source(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Name,Score\nJos\xe9,4.5\n"))
	}))
	defer srv.Close()

	ds, err := New(WithHTTPClient(srv.Client())).Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ds.Encoding != EncodingLatin1 {
		t.Errorf("Encoding = %q, want latin-1", ds.Encoding)
	}
	if ds.Rows[0][0] != "José" {
		t.Errorf("Rows[0][0] = %q, want José", ds.Rows[0][0])
	}
}
