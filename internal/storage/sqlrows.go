package storage

import "database/sql"

// SQLRows adapts *sql.Rows to Rows. Each row is scanned into fresh
// interface values so drivers' []byte buffers are copied.
type SQLRows struct {
	rows *sql.Rows
	n    int
}

// NewSQLRows wraps rows. The column count is read once up front.
func NewSQLRows(rows *sql.Rows) (*SQLRows, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &SQLRows{rows: rows, n: len(cols)}, nil
}

func (r *SQLRows) Next() bool { return r.rows.Next() }

func (r *SQLRows) Values() ([]any, error) {
	vals := make([]any, r.n)
	ptrs := make([]any, r.n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return vals, nil
}

func (r *SQLRows) Err() error { return r.rows.Err() }

func (r *SQLRows) Close() { _ = r.rows.Close() }
