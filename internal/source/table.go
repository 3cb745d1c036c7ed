package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/config"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

func init() { Register("table", newTable) }

// openRepo is a test hook for storage.New.
var openRepo = storage.New

// Table reads the seven source columns of a relational table through a
// registered storage backend.
type Table struct {
	db        config.DBConfig
	batchSize int
}

func newTable(cfg config.Source, batchSize int) (Source, error) {
	return &Table{db: cfg.DB, batchSize: batchSize}, nil
}

// Open connects and starts the projection query. The connection belongs to
// the returned Reader.
func (t *Table) Open(ctx context.Context) (Reader, error) {
	dsn, missing := config.ExpandDSN(t.db.DSN)
	if len(missing) > 0 {
		log.Printf("source: DSN references unset environment variables: %s", strings.Join(missing, ", "))
	}
	repo, err := openRepo(ctx, storage.Config{Kind: t.db.Kind, DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", ErrUnavailable, t.db.Kind, err)
	}
	q := repo.Dialect().SelectSQL(t.db.Table, trip.SourceColumns())
	rows, err := repo.Query(ctx, q)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("%w: query %s: %w", ErrUnavailable, t.db.Table, err)
	}
	return newBatchReader(&tableRows{repo: repo, rows: rows}, t.batchSize), nil
}

type tableRows struct {
	repo storage.Repository
	rows storage.Rows
}

func (t *tableRows) next(context.Context) ([]any, error) {
	if !t.rows.Next() {
		if err := t.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return t.rows.Values()
}

func (t *tableRows) close() error {
	t.rows.Close()
	t.repo.Close()
	return nil
}
