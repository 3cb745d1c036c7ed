// Package storage contains the backend-agnostic contracts used to read trip
// rows from, and write cleaned trips to, relational databases.
//
// Concrete backends (postgres, sqlite, mssql, mysql) live in subpackages and
// register a Factory for their kind at init time. Callers import
// storage/all for side effects and then obtain a Repository via New without
// knowing which backend they are talking to.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config identifies a database connection.
type Config struct {
	// Kind selects the backend: postgres, sqlite, mssql or mysql.
	Kind string
	// DSN is passed to the backend driver unchanged.
	DSN string
}

// Rows iterates a query result. Values returns driver values normalised to
// plain Go types (time.Time, float64, int64, string, []byte, bool, nil).
type Rows interface {
	Next() bool
	Values() ([]any, error)
	Err() error
	Close()
}

// Repository is the minimal surface the pipeline needs from a database.
type Repository interface {
	// Dialect reports quoting and type naming rules for the backend.
	Dialect() Dialect

	// Query runs a read-only statement and streams its rows.
	Query(ctx context.Context, query string) (Rows, error)

	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	// Columns lists the column names of table in ordinal order. A missing
	// table yields an empty slice and no error.
	Columns(ctx context.Context, table string) ([]string, error)

	// Load executes pre (DDL such as DROP/CREATE) and bulk copies rows into
	// table, inside one transaction where the backend supports transactional
	// DDL. It returns the number of rows copied.
	Load(ctx context.Context, table string, pre []string, columns []string, rows [][]any) (int64, error)

	// Close releases the underlying pool.
	Close()
}

// Factory constructs a Repository for a backend.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the Factory for kind. Backends call it from
// their init functions.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
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
