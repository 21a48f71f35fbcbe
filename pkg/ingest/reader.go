// Package ingest reads platform sales exports into customer records
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

// ErrMissingColumn is returned when an export lacks a required header
var ErrMissingColumn = errors.New("missing required column")

// Result is the outcome of reading one export
type Result struct {
	Records     []models.CustomerRecord
	RowsRead    int
	RowsSkipped int
}

// Reader parses the export format of one platform
type Reader interface {
	Platform() models.Platform
	Read(ctx context.Context, r io.Reader) (*Result, error)
}

// Option configures a Reader
type Option func(*options)

type options struct {
	loc *time.Location
}

// WithLocation sets the zone of export dates without an explicit offset (default UTC)
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func newOptions(opts []Option) options {
	o := options{loc: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ReaderFor returns the reader of platform
func ReaderFor(platform models.Platform, opts ...Option) (Reader, error) {
	switch platform {
	case models.PlatformHotmart:
		return NewHotmartReader(opts...), nil
	case models.PlatformCakto:
		return NewCaktoReader(opts...), nil
	default:
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}
}

// header maps trimmed column names to their index
type header struct {
	index map[string]int
	width int
}

const bom = "\ufeff"

func newHeader(columns []string) header {
	h := header{index: make(map[string]int, len(columns)), width: len(columns)}
	for i, col := range columns {
		if i == 0 {
			col = strings.TrimPrefix(col, bom)
		}
		h.index[strings.TrimSpace(col)] = i
	}
	return h
}

func (h header) require(columns ...string) error {
	for _, col := range columns {
		if _, ok := h.index[col]; !ok {
			return errors.Wrap(ErrMissingColumn, col)
		}
	}
	return nil
}

// get returns the trimmed value of column in row, or "" when absent
func (h header) get(row []string, column string) string {
	i, ok := h.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// readRows reads every data row after the header. each is called per row and reports whether
// the row was kept.
func readRows(ctx context.Context, r io.Reader, delimiter rune, required []string, each func(h header, row []string) bool) (*Result, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	columns, err := reader.Read()
	if err == io.EOF {
		return &Result{Records: []models.CustomerRecord{}}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}

	h := newHeader(columns)
	if err := h.require(required...); err != nil {
		return nil, err
	}

	result := &Result{Records: []models.CustomerRecord{}}
	for {
		if result.RowsRead%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("failed to read row %d", result.RowsRead+2))
		}
		if blank(row) {
			continue
		}

		result.RowsRead++
		if !each(h, row) {
			result.RowsSkipped++
		}
	}

	return result, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
