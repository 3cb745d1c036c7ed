package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage"
)

// newRepo opens an in-memory database wrapped the same way the storage
// factory wraps it, so it can be handed to the storage helpers.
func newRepo(tb testing.TB) *wrappedRepo {
	tb.Helper()
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: ":memory:", CopyBatchSize: 2})
	if err != nil {
		tb.Fatalf("open sqlite :memory:: %v", err)
	}
	w := &wrappedRepo{Repository: r, closeFn: closeFn}
	tb.Cleanup(w.Close)
	return w
}

func mustExec(tb testing.TB, r storage.Repository, sqlStmt string) {
	tb.Helper()
	if err := r.Exec(context.Background(), sqlStmt); err != nil {
		tb.Fatalf("exec %q: %v", sqlStmt, err)
	}
}

func queryAll(tb testing.TB, r storage.Repository, q string) [][]any {
	tb.Helper()
	rows, err := r.Query(context.Background(), q)
	if err != nil {
		tb.Fatalf("query %q: %v", q, err)
	}
	defer rows.Close()
	var out [][]any
	for rows.Next() {
		v, err := rows.Values()
		if err != nil {
			tb.Fatalf("values: %v", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		tb.Fatalf("rows: %v", err)
	}
	return out
}

var testCols = []storage.Column{
	{Name: "id", Type: storage.TypeInt},
	{Name: "label", Type: storage.TypeLabel},
	{Name: "score", Type: storage.TypeFloat},
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestColumns(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	mustExec(t, r, `CREATE TABLE trips (pickup_datetime TIMESTAMP, fare_amount REAL)`)

	cols, err := r.Columns(ctx, "trips")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if !reflect.DeepEqual(cols, []string{"pickup_datetime", "fare_amount"}) {
		t.Fatalf("Columns = %v", cols)
	}

	missing, err := r.Columns(ctx, "nope")
	if err != nil || len(missing) != 0 {
		t.Fatalf("missing table: cols=%v err=%v", missing, err)
	}
}

func TestWriteTable_ReplaceAppendFail(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	rows := [][]any{
		{int64(1), "morning", 1.5},
		{int64(2), "night", 2.5},
		{int64(3), "evening", 3.5},
	}

	n, err := storage.WriteTable(ctx, r, "out", testCols, rows, storage.Replace)
	if err != nil || n != 3 {
		t.Fatalf("replace: n=%d err=%v", n, err)
	}
	n, err = storage.WriteTable(ctx, r, "out", testCols, rows[:1], storage.Replace)
	if err != nil || n != 1 {
		t.Fatalf("second replace: n=%d err=%v", n, err)
	}
	if got := queryAll(t, r, `SELECT id FROM out`); len(got) != 1 {
		t.Fatalf("replace must overwrite, got %d rows", len(got))
	}

	if _, err := storage.WriteTable(ctx, r, "out", testCols, rows, storage.Append); err != nil {
		t.Fatalf("append: %v", err)
	}
	if got := queryAll(t, r, `SELECT id FROM out`); len(got) != 4 {
		t.Fatalf("after append got %d rows, want 4", len(got))
	}

	if _, err := storage.WriteTable(ctx, r, "out", testCols, rows, storage.Fail); !errors.Is(err, storage.ErrTableExists) {
		t.Fatalf("fail mode err = %v", err)
	}
}

// TestWriteTable_ReplaceIsAtomic checks that a failed load leaves the
// previous table contents in place.
func TestWriteTable_ReplaceIsAtomic(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	good := [][]any{{int64(1), "morning", 1.5}}
	if _, err := storage.WriteTable(ctx, r, "out", testCols, good, storage.Replace); err != nil {
		t.Fatal(err)
	}

	bad := [][]any{{int64(9), "night", 9.0}, {int64(10)}}
	if _, err := storage.WriteTable(ctx, r, "out", testCols, bad, storage.Replace); err == nil {
		t.Fatal("expected error for short row")
	}

	got := queryAll(t, r, `SELECT id, label FROM out`)
	if len(got) != 1 || got[0][0] != int64(1) || got[0][1] != "morning" {
		t.Fatalf("table after failed replace = %v, want original row", got)
	}
}

func TestAddColumns_Idempotent(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	mustExec(t, r, `CREATE TABLE trips (pickup_datetime TIMESTAMP, fare_amount REAL)`)

	add := []storage.Column{
		{Name: "trip_duration", Type: storage.TypeNumeric},
		{Name: "is_weekend", Type: storage.TypeBool},
	}
	added, err := storage.AddColumns(ctx, r, "trips", add)
	if err != nil || len(added) != 2 {
		t.Fatalf("first migration: added=%v err=%v", added, err)
	}
	added, err = storage.AddColumns(ctx, r, "trips", add)
	if err != nil || len(added) != 0 {
		t.Fatalf("second migration must be a no-op: added=%v err=%v", added, err)
	}

	cols, _ := r.Columns(ctx, "trips")
	if len(cols) != 4 {
		t.Fatalf("columns after migration = %v", cols)
	}
}

func TestQuery_Values(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	mustExec(t, r, `CREATE TABLE t (a INTEGER, b REAL, c TEXT)`)
	mustExec(t, r, `INSERT INTO t VALUES (1, 2.5, 'x'), (NULL, NULL, NULL)`)

	got := queryAll(t, r, Dialect.SelectSQL("t", []string{"a", "b", "c"}))
	want := [][]any{{int64(1), 2.5, "x"}, {nil, nil, nil}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %#v, want %#v", got, want)
	}
}
