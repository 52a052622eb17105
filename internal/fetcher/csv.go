// Package fetcher reads tabular and vector source files: delimited text, XLSX spreadsheets,
// GeoJSON documents and ESRI shapefiles.
package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune   // default ','
	Encoding   string // WHATWG label, e.g. "gbk"; default UTF-8
	Comment    rune   // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads delimited text and sends rows, header included, to a channel.
// Caller must consume the returned row channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		decoded, err := decodeReader(r, opts.Encoding)
		if err != nil {
			errCh <- err
			return
		}

		reader := csv.NewReader(decoded)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow variable fields

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSVFile reads every row of a delimited text file.
func ReadCSVFile(ctx context.Context, path string, opts CSVOptions) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rowCh, errCh := StreamCSV(ctx, f, opts)
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, eris.Wrapf(err, "csv: %s", path)
		}
	}
	return rows, nil
}

// WriteCSVFile writes rows as UTF-8 comma-separated text.
func WriteCSVFile(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "csv: create %s", path)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "csv: write %s", path)
	}
	return eris.Wrapf(f.Close(), "csv: close %s", path)
}

// decodeReader converts r from the named encoding to UTF-8, dropping a leading BOM.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	fallback := unicode.UTF8.NewDecoder()
	if encoding != "" && !strings.EqualFold(encoding, "utf-8") && !strings.EqualFold(encoding, "utf8") {
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: unsupported encoding %q", encoding)
		}
		fallback = enc.NewDecoder()
	}
	return transform.NewReader(r, unicode.BOMOverride(fallback)), nil
}
