// Package source yields raw trip rows in fixed-size batches.
//
// A Source is opened once per run; each Open restarts the sequence from the
// beginning. Readers deliver batches in source order with consecutive Seq
// numbers starting at 0, no gaps and no duplicates, and return io.EOF when
// the data is exhausted. Every failure to reach or iterate the data wraps
// ErrUnavailable.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/config"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

// ErrUnavailable marks connection, query and iteration failures.
var ErrUnavailable = errors.New("source unavailable")

// Source opens a fresh Reader.
type Source interface {
	Open(ctx context.Context) (Reader, error)
}

// Reader iterates raw batches.
type Reader interface {
	// Next returns the next batch, or io.EOF once the source is exhausted.
	Next(ctx context.Context) (trip.RawBatch, error)
	Close() error
}

// MalformedCounter is implemented by readers that skip records they cannot
// parse. Skipped records never appear in a RawBatch.
type MalformedCounter interface {
	Malformed() int
}

// Factory builds a Source from configuration.
type Factory func(cfg config.Source, batchSize int) (Source, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs the Factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New builds the Source for cfg.Kind. batchSize <= 0 selects
// config.DefaultBatchSize.
func New(cfg config.Source, batchSize int) (Source, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported source.kind=%s", cfg.Kind)
	}
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}
	return f(cfg, batchSize)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// rowIter is the per-row cursor a batchReader drains. next returns io.EOF at
// the end.
type rowIter interface {
	next(ctx context.Context) ([]any, error)
	close() error
}

// batchReader groups rows from a rowIter into RawBatches of at most size rows.
type batchReader struct {
	it   rowIter
	size int
	seq  int
	done bool
}

func newBatchReader(it rowIter, size int) *batchReader {
	return &batchReader{it: it, size: size}
}

func (b *batchReader) Next(ctx context.Context) (trip.RawBatch, error) {
	if b.done {
		return trip.RawBatch{}, io.EOF
	}
	rows := make([][]any, 0, min(b.size, 4096))
	for len(rows) < b.size {
		if err := ctx.Err(); err != nil {
			return trip.RawBatch{}, err
		}
		row, err := b.it.next(ctx)
		if errors.Is(err, io.EOF) {
			b.done = true
			break
		}
		if err != nil {
			b.done = true
			return trip.RawBatch{}, fmt.Errorf("%w: batch %d: %w", ErrUnavailable, b.seq, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return trip.RawBatch{}, io.EOF
	}
	out := trip.RawBatch{Seq: b.seq, Rows: rows}
	b.seq++
	return out, nil
}

func (b *batchReader) Close() error { return b.it.close() }

// Malformed reports how many records the underlying iterator skipped so far.
func (b *batchReader) Malformed() int {
	if mc, ok := b.it.(interface{ malformed() int }); ok {
		return mc.malformed()
	}
	return 0
}
