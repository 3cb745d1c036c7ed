// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API. DDL and the bulk copy share one transaction.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN           string
	CopyBatchSize int
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// Dialect is the SQL Server quoting and type vocabulary. There is no BOOLEAN
// type; BIT is used instead.
var Dialect = storage.Dialect{
	Name:       "mssql",
	QuoteIdent: msIdent,
	Types: map[storage.ColumnType]string{
		storage.TypeTimestamp: "DATETIME2",
		storage.TypeFloat:     "FLOAT",
		storage.TypeInt:       "BIGINT",
		storage.TypeText:      "NVARCHAR(MAX)",
		storage.TypeBool:      "BIT",
		storage.TypeNumeric:   "NUMERIC(18, 6)",
		storage.TypeLabel:     "VARCHAR(20)",
	},
	AddColumn: "ADD",
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() storage.Dialect { return Dialect }

// Query streams the result of q. DECIMAL columns arrive as []byte text.
func (r *Repository) Query(ctx context.Context, q string) (storage.Rows, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return storage.NewSQLRows(rows)
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// Columns lists table's columns from sys.columns.
func (r *Repository) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name FROM sys.columns WHERE object_id = OBJECT_ID(@p1) ORDER BY column_id", table)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Load runs pre and bulk copies rows into table in one transaction. Each
// chunk is its own bulk copy statement.
func (r *Repository) Load(ctx context.Context, table string, pre []string, columns []string, rows [][]any) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range pre {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("exec %q: %w", stmt, err)
		}
	}

	n, err := storage.CopyInBatches(ctx, columns, rows, r.copyBatchSize(),
		func(ctx context.Context, cols []string, chunk [][]any) (int64, error) {
			return copyChunk(ctx, tx, msFQN(table), cols, chunk)
		})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func copyChunk(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (r *Repository) copyBatchSize() int {
	if r.cfg.CopyBatchSize > 0 {
		return r.cfg.CopyBatchSize
	}
	return storage.DefaultCopyBatchSize
}

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "dbo.trips" to
// "[dbo].[trips]". If no dot is present, returns a single quoted ident.
func msFQN(name string) string { return Dialect.Quote(name) }
