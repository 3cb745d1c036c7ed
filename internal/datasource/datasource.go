// Package datasource abstracts where raw export bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens a byte stream. Each call to Open starts from the beginning.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
