// This file implements the chunked copy loop shared by all backends. A Load
// call hands its full row set to CopyInBatches together with a CopyFn bound to
// the backend's open transaction; the loop slices the rows into fixed-size
// chunks and logs progress after every flush.
package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultCopyBatchSize is the chunk size used by backends when copying.
const DefaultCopyBatchSize = 10000

// CopyFn inserts rows (aligned to columns) and returns the number of rows the
// backend reports as inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// CopyInBatches calls copyFn for consecutive chunks of at most batchSize rows.
// It returns the running total and the first error. Cancellation is checked
// between chunks.
func CopyInBatches(
	ctx context.Context,
	columns []string,
	rows [][]any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var total, batches int64
	start := time.Now()
	lastTS := start
	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := min(lo+batchSize, len(rows))

		n, err := copyFn(ctx, columns, rows[lo:hi])
		total += n
		if err != nil {
			log.Printf("loader: copy failed after=%d total=%d err=%v", n, total, err)
			return total, err
		}

		batches++
		now := time.Now()
		since := now.Sub(lastTS)
		rps := float64(0)
		if since > 0 {
			rps = float64(n) / since.Seconds()
		}
		log.Printf(
			"batch #%d: rps=%.0f inserted=%d total_inserted=%d elapsed=%s",
			batches, rps, n, total, now.Sub(start).Truncate(time.Millisecond),
		)
		lastTS = now
	}
	return total, nil
}
