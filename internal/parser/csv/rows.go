// Package csv reads delimited trip exports row by row, projecting each record
// onto a fixed list of target columns.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/config"
)

// logEveryN controls the reader heartbeat.
const logEveryN = 500_000

// RowReader pulls rows aligned to the target columns. Cells that are empty,
// missing, or belong to a target column absent from the header are nil.
//
// Options (all optional):
//   - comma (string; first rune used; default ',')
//   - has_header (bool; default true). Without a header, columns are positional.
//   - header_map (object; source name -> target name)
//   - trim_space (bool; default true)
//   - lazy_quotes (bool; default false)
type RowReader struct {
	src   io.ReadCloser
	cr    *csv.Reader
	colIx []int // colIx[target] = source index, or -1
	trim  bool
	line  int
	rows  int
}

// NewRowReader reads the header (when present) and builds the column mapping.
// It takes ownership of src; Close closes it.
func NewRowReader(src io.ReadCloser, columns []string, opt config.Options) (*RowReader, error) {
	cr := csv.NewReader(src)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1 // tolerant; short rows yield nil cells
	cr.ReuseRecord = true

	r := &RowReader{src: src, cr: cr, trim: opt.Bool("trim_space", true)}
	r.colIx = make([]int, len(columns))

	if !opt.Bool("has_header", true) {
		for i := range r.colIx {
			r.colIx[i] = i
		}
		return r, nil
	}

	r.line++
	hdr, err := cr.Read()
	if err != nil {
		src.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: empty input")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	hm := opt.StringMap("header_map")
	srcToIdx := make(map[string]int, len(hdr))
	for i, h := range hdr {
		name := resolveHeader(h, hm)
		if _, dup := srcToIdx[name]; !dup {
			srcToIdx[name] = i
		}
	}
	var missing []string
	for t, target := range columns {
		si, ok := srcToIdx[target]
		if !ok {
			si = -1
			missing = append(missing, target)
		}
		r.colIx[t] = si
	}
	if len(missing) > 0 {
		log.Printf("reader: header lacks columns %s; their cells read as null", strings.Join(missing, ", "))
	}
	return r, nil
}

// Next returns the next projected row, or io.EOF at end of input. Malformed
// records are returned as errors carrying the line number.
func (r *RowReader) Next() ([]any, error) {
	r.line++
	rec, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("csv line %d: %w", r.line, err)
	}

	row := make([]any, len(r.colIx))
	for t, si := range r.colIx {
		if si < 0 || si >= len(rec) {
			continue
		}
		v := rec[si]
		if r.trim {
			v = strings.TrimSpace(v)
		}
		if v != "" {
			row[t] = v
		}
	}

	r.rows++
	if r.rows%logEveryN == 0 {
		log.Printf("reader: line=%d emitted=%d", r.line, r.rows)
	}
	return row, nil
}

// Close closes the underlying source.
func (r *RowReader) Close() error { return r.src.Close() }
