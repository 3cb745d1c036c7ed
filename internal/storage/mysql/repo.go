// Package mysql implements storage.Repository for MySQL using
// go-sql-driver/mysql. Rows are written with multi-row INSERT statements.
// MySQL commits DDL implicitly, so a replace is not atomic on this backend.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN           string
	CopyBatchSize int
}

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// Dialect is the MySQL quoting and type vocabulary.
var Dialect = storage.Dialect{
	Name:       "mysql",
	QuoteIdent: myIdent,
	Types: map[storage.ColumnType]string{
		storage.TypeTimestamp: "DATETIME(6)",
		storage.TypeFloat:     "DOUBLE",
		storage.TypeInt:       "BIGINT",
		storage.TypeText:      "TEXT",
		storage.TypeBool:      "BOOLEAN",
		storage.TypeNumeric:   "DECIMAL(18, 6)",
		storage.TypeLabel:     "VARCHAR(20)",
	},
	AddColumn: "ADD COLUMN",
}

// maxPlaceholders stays under MySQL's 65535 prepared-statement limit.
const maxPlaceholders = 60000

// NewRepository parses the DSN, forces parseTime so DATETIME columns scan as
// time.Time, and pings the server.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	mc.ParseTime = true
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(conn)
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

// Exec executes a single statement.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// Columns lists table's columns from information_schema; an unqualified name
// is resolved against the connection's database.
func (r *Repository) Columns(ctx context.Context, table string) ([]string, error) {
	schema, name := storage.SplitFQN(table)
	rows, err := r.db.QueryContext(ctx, `
		SELECT column_name
		  FROM information_schema.columns
		 WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		   AND table_name = ?
		 ORDER BY ordinal_position`, schema, name)
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

// Load runs pre and inserts rows in one transaction. DDL in pre commits
// implicitly on MySQL.
func (r *Repository) Load(ctx context.Context, table string, pre []string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: load: columns must not be empty")
	}
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

	n, err := storage.CopyInBatches(ctx, columns, rows, r.chunkSize(len(columns)),
		func(ctx context.Context, cols []string, chunk [][]any) (int64, error) {
			q, args, err := insertSQL(table, cols, chunk)
			if err != nil {
				return 0, err
			}
			res, err := tx.ExecContext(ctx, q, args...)
			if err != nil {
				return 0, fmt.Errorf("insert: %w", err)
			}
			return res.RowsAffected()
		})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// chunkSize caps rows per INSERT so placeholders stay under the limit.
func (r *Repository) chunkSize(ncols int) int {
	size := storage.DefaultCopyBatchSize
	if r.cfg.CopyBatchSize > 0 {
		size = r.cfg.CopyBatchSize
	}
	if limit := maxPlaceholders / ncols; size > limit {
		size = limit
	}
	return size
}

// insertSQL builds one multi-row INSERT and its flattened arguments.
func insertSQL(table string, columns []string, rows [][]any) (string, []any, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = myIdent(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", Dialect.Quote(table), strings.Join(quoted, ", "))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("mysql: row %d length %d != columns length %d", i, len(row), len(columns))
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
		args = append(args, row...)
	}
	return b.String(), args, nil
}

// myIdent quotes an identifier with backticks, escaping embedded backticks.
func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }
