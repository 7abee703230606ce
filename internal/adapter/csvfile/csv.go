// Package csvfile reads and writes aftershock catalogs in the CSV template format.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/aftershock-catalog/internal/domain"
)

// ErrMalformed is wrapped by every error caused by unreadable CSV content, as
// opposed to I/O failures.
var ErrMalformed = errors.New("malformed csv")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode reads a catalog file: a header row followed by one record per row.
// Lines starting with '#' are comments. Rows shorter than the header leave the
// remaining fields empty; rows longer than the header are malformed.
func Decode(r io.Reader, name string) (domain.Submission, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("read %s: %w", name, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.Submission{}, fmt.Errorf("%w: %s has no header row", ErrMalformed, name)
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	sub := domain.Submission{Name: name, Header: header}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Submission{}, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) > len(header) {
			return domain.Submission{}, fmt.Errorf("%w: %s line %d: %d fields, header has %d",
				ErrMalformed, name, line, len(record), len(header))
		}

		row := make(domain.RawRow, len(header))
		for j, h := range header {
			if j < len(record) {
				row[h] = record[j]
			} else {
				row[h] = ""
			}
		}
		sub.Rows = append(sub.Rows, row)
		sub.Lines = append(sub.Lines, line)
	}
	return sub, nil
}

// Encode writes the header and one row per record in the given column order.
func Encode(w io.Writer, columns []string, records []domain.AftershockRecord) error {
	rows := make([]domain.RawRow, len(records))
	for i := range records {
		rows[i] = records[i].Row()
	}
	return EncodeRows(w, columns, rows)
}

// EncodeRows writes the header and raw rows as given, without checking them.
// Columns missing from a row are written empty.
func EncodeRows(w io.Writer, columns []string, rows []domain.RawRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	out := make([]string, len(columns))
	for n, row := range rows {
		for i, c := range columns {
			out[i] = row[c]
		}
		if err := cw.Write(out); err != nil {
			return fmt.Errorf("write row %d: %w", n+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTemplate writes a blank template: the schema header and no records.
func WriteTemplate(w io.Writer, schema *domain.Schema) error {
	return Encode(w, schema.Columns(), nil)
}

// CatalogName derives a catalog name from a file path: its base name without
// extension.
func CatalogName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Reader extracts a submission from a CSV file on disk.
type Reader struct {
	path string
}

func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Extract reads and decodes the file.
func (r *Reader) Extract(_ context.Context) (domain.Submission, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f, CatalogName(r.path))
}

// Writer loads validated catalogs into a CSV file on disk.
type Writer struct {
	path    string
	columns []string
}

func NewWriter(path string, schema *domain.Schema) *Writer {
	return &Writer{path: path, columns: schema.Columns()}
}

// Load writes the catalog, replacing the file if it exists. The file is
// written to a temporary name first and renamed into place.
func (w *Writer) Load(_ context.Context, catalog domain.Catalog) error {
	if !catalog.Validated() {
		return domain.ErrUnvalidatedCatalog
	}
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, w.columns, catalog.Records); err != nil {
		tmp.Close()
		return fmt.Errorf("encode catalog %s: %w", catalog.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("rename catalog: %w", err)
	}
	return nil
}

// Name identifies the loader in logs and metrics.
func (w *Writer) Name() string { return "csv" }
