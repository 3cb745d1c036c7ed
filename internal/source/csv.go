package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/config"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/datasource"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/datasource/file"
	csvparser "github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/parser/csv"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

func init() { Register("csv", newCSV) }

// CSV streams a delimited export such as the bulk loader's flat file.
// Malformed records are logged and skipped; they never reach the sanitizer.
type CSV struct {
	ds        datasource.Source
	opts      config.Options
	batchSize int
}

func newCSV(cfg config.Source, batchSize int) (Source, error) {
	return &CSV{ds: file.NewLocal(cfg.File.Path), opts: cfg.Options, batchSize: batchSize}, nil
}

// Open opens the file and reads its header.
func (c *CSV) Open(ctx context.Context) (Reader, error) {
	rc, err := c.ds.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	rr, err := csvparser.NewRowReader(rc, trip.SourceColumns(), c.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return newBatchReader(&csvRows{rr: rr}, c.batchSize), nil
}

type csvRows struct {
	rr      *csvparser.RowReader
	skipped int
}

func (c *csvRows) next(context.Context) ([]any, error) {
	for {
		row, err := c.rr.Next()
		if err == nil || errors.Is(err, io.EOF) {
			return row, err
		}
		var pe *csv.ParseError
		if !errors.As(err, &pe) {
			return nil, err
		}
		c.skipped++
		log.Printf("reader: skipping malformed record: %v", err)
	}
}

func (c *csvRows) malformed() int { return c.skipped }

func (c *csvRows) close() error {
	if c.skipped > 0 {
		log.Printf("reader: skipped %d malformed records", c.skipped)
	}
	return c.rr.Close()
}
