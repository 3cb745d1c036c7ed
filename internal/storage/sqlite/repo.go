// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. Writes are prepared INSERTs inside a transaction; SQLite has
// no bulk-load API like Postgres COPY, but one transaction keeps moderate
// volumes fast and makes DDL + load atomic.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage"
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// Dialect is the SQLite quoting and type vocabulary. SQLite accepts any type
// name; the names below pick the intended affinity.
var Dialect = storage.Dialect{
	Name:       "sqlite",
	QuoteIdent: sqlIdent,
	Types: map[storage.ColumnType]string{
		storage.TypeTimestamp: "TIMESTAMP",
		storage.TypeFloat:     "REAL",
		storage.TypeInt:       "INTEGER",
		storage.TypeText:      "TEXT",
		storage.TypeBool:      "BOOLEAN",
		storage.TypeNumeric:   "NUMERIC",
		storage.TypeLabel:     "VARCHAR(20)",
	},
	AddColumn: "ADD COLUMN",
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection: ":memory:" databases are per-connection, and SQLite
	// serialises writers anyway.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() storage.Dialect { return Dialect }

// Query streams the result of q.
func (r *Repository) Query(ctx context.Context, q string) (storage.Rows, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	return storage.NewSQLRows(rows)
}

// Exec executes an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// Columns lists table's columns via pragma_table_info.
func (r *Repository) Columns(ctx context.Context, table string) ([]string, error) {
	schema, name := storage.SplitFQN(table)
	if schema == "" {
		schema = "main"
	}
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?, ?) ORDER BY cid", name, schema)
	if err != nil {
		return nil, fmt.Errorf("sqlite: table info: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("sqlite: table info: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Load runs pre and inserts rows into table within one transaction.
func (r *Repository) Load(ctx context.Context, table string, pre []string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: load: columns must not be empty")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range pre {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("sqlite: exec %q: %w", stmt, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(table, columns))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	n, err := storage.CopyInBatches(ctx, columns, rows, r.copyBatchSize(),
		func(ctx context.Context, cols []string, chunk [][]any) (int64, error) {
			var inserted int64
			for _, row := range chunk {
				if len(row) != len(cols) {
					return inserted, fmt.Errorf("sqlite: row length %d != columns length %d", len(row), len(cols))
				}
				if _, err := stmt.ExecContext(ctx, row...); err != nil {
					return inserted, fmt.Errorf("sqlite: insert: %w", err)
				}
				inserted++
			}
			return inserted, nil
		})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return n, nil
}

func (r *Repository) copyBatchSize() int {
	if r.cfg.CopyBatchSize > 0 {
		return r.cfg.CopyBatchSize
	}
	return storage.DefaultCopyBatchSize
}

// insertSQL builds INSERT INTO <table> (<cols>) VALUES (?, ?, ...).
func insertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = sqlIdent(c)
		placeholders[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		Dialect.Quote(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
}

// sqlIdent quotes an identifier with double quotes, escaping embedded quotes.
func sqlIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
