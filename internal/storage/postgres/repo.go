// Package postgres implements storage.Repository on pgx v5. Rows are read
// through the pool and written with COPY inside a transaction, so a replace
// (DROP + CREATE + COPY) is atomic.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // connection string for pgxpool

	// CopyBatchSize bounds the rows sent per COPY (0 = storage default).
	CopyBatchSize int
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// Dialect is the Postgres quoting and type vocabulary.
var Dialect = storage.Dialect{
	Name:       "postgres",
	QuoteIdent: pgIdent,
	Types: map[storage.ColumnType]string{
		storage.TypeTimestamp: "TIMESTAMP",
		storage.TypeFloat:     "DOUBLE PRECISION",
		storage.TypeInt:       "BIGINT",
		storage.TypeText:      "TEXT",
		storage.TypeBool:      "BOOLEAN",
		storage.TypeNumeric:   "NUMERIC",
		storage.TypeLabel:     "VARCHAR(20)",
	},
	AddColumn: "ADD COLUMN IF NOT EXISTS",
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", describe(err))
	}
	return &Repository{pool: pool, cfg: cfg}, pool.Close, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() storage.Dialect { return Dialect }

// Query streams the result of q.
func (r *Repository) Query(ctx context.Context, q string) (storage.Rows, error) {
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, describe(err)
	}
	return &pgRows{rows: rows}, nil
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.pool.Exec(ctx, sql)
	return describe(err)
}

// Columns lists table's columns from information_schema. An unqualified name
// is resolved against current_schema().
func (r *Repository) Columns(ctx context.Context, table string) ([]string, error) {
	schema, name := storage.SplitFQN(table)
	rows, err := r.pool.Query(ctx, `
		SELECT column_name
		  FROM information_schema.columns
		 WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())
		   AND table_name = $2
		 ORDER BY ordinal_position`, schema, name)
	if err != nil {
		return nil, describe(err)
	}
	cols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, describe(err)
	}
	return cols, nil
}

// Load runs pre and COPYs rows into table in one transaction.
func (r *Repository) Load(ctx context.Context, table string, pre []string, columns []string, rows [][]any) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", describe(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range pre {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("exec %q: %w", stmt, describe(err))
		}
	}

	ident := splitFQN(table)
	n, err := storage.CopyInBatches(ctx, columns, rows, r.copyBatchSize(),
		func(ctx context.Context, cols []string, chunk [][]any) (int64, error) {
			return tx.CopyFrom(ctx, ident, cols, pgx.CopyFromRows(chunk))
		})
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, describe(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", describe(err))
	}
	return n, nil
}

func (r *Repository) copyBatchSize() int {
	if r.cfg.CopyBatchSize > 0 {
		return r.cfg.CopyBatchSize
	}
	return storage.DefaultCopyBatchSize
}

// pgRows normalises pgx values. NUMERIC arrives as pgtype.Numeric and is
// converted to float64; NULL and NaN become nil.
type pgRows struct {
	rows pgx.Rows
}

func (p *pgRows) Next() bool { return p.rows.Next() }

func (p *pgRows) Values() ([]any, error) {
	vals, err := p.rows.Values()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		vals[i] = normalize(v)
	}
	return vals, nil
}

func (p *pgRows) Err() error { return describe(p.rows.Err()) }

func (p *pgRows) Close() { p.rows.Close() }

func normalize(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		if !t.Valid || t.NaN {
			return nil
		}
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	}
	return v
}

// describe folds the server-side detail of a *pgconn.PgError into the error
// text; other errors pass through unchanged.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s, sqlstate %s)", err, pgErr.Detail, pgErr.SQLState())
	}
	return err
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
