package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spektr-org/surveydash/schema"
)

// ErrEmpty is returned when the CSV has no header or no data rows.
var ErrEmpty = errors.New("empty dataset")

// Parse reads CSV text into a Dataset. The first row is the header.
// Malformed rows are skipped and counted; short rows are padded with ""
// and long rows truncated so every row matches the header width.
func Parse(text, source, encoding string) (*Dataset, error) {
	reader := newReader(text)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: no header row", ErrEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if allBlank(header) {
		return nil, fmt.Errorf("%w: blank header row", ErrEmpty)
	}

	ds := &Dataset{
		Source:   source,
		Encoding: encoding,
		Header:   header,
		Keys:     schema.UniqueKeys(header),
		LoadedAt: time.Now(),
	}

	width := len(header)
	rows, skipped := readRows(reader, text)
	for _, row := range rows {
		if allBlank(row) {
			continue
		}
		ds.Rows = append(ds.Rows, fitRow(row, width))
	}
	ds.SkippedRows = skipped

	if len(ds.Rows) == 0 {
		return nil, fmt.Errorf("%w: header only", ErrEmpty)
	}
	return ds, nil
}

func newReader(text string) *csv.Reader {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader
}

// readRows reads the remaining records of reader, which reads text.
// A record with bad quoting is skipped. When the bad record spans several
// lines (an unterminated quote), only its first line is dropped and reading
// restarts on the line after it.
func readRows(reader *csv.Reader, text string) ([][]string, int) {
	var rows [][]string
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return rows, skipped
		}
		if err != nil {
			skipped++
			var perr *csv.ParseError
			if errors.As(err, &perr) && perr.Line > perr.StartLine {
				text = afterLine(text, perr.StartLine)
				reader = newReader(text)
			}
			continue
		}
		rows = append(rows, row)
	}
}

// afterLine returns text following its n-th line (1-based).
func afterLine(text string, n int) string {
	for ; n > 0; n-- {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			return ""
		}
		text = text[i+1:]
	}
	return text
}

// fitRow pads or truncates row to width cells, trimming each one.
func fitRow(row []string, width int) []string {
	out := make([]string, width)
	for i := 0; i < width && i < len(row); i++ {
		out[i] = strings.TrimSpace(row[i])
	}
	return out
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
