package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// WriteMode controls what WriteTable does when the target already exists.
type WriteMode string

const (
	// Replace drops and recreates the table before loading.
	Replace WriteMode = "replace"
	// Append creates the table when missing and appends rows.
	Append WriteMode = "append"
	// Fail refuses to write into an existing table.
	Fail WriteMode = "fail"
)

// ErrTableExists is returned by WriteTable in Fail mode.
var ErrTableExists = errors.New("table already exists")

// AddColumns adds each column of cols that table does not have yet. Existing
// columns are left untouched regardless of their type, so repeated calls are
// no-ops. It returns the names of the columns it added.
func AddColumns(ctx context.Context, repo Repository, table string, cols []Column) ([]string, error) {
	existing, err := repo.Columns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	if len(existing) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	have := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		have[strings.ToLower(c)] = struct{}{}
	}

	d := repo.Dialect()
	var added []string
	for _, c := range cols {
		if _, ok := have[strings.ToLower(c.Name)]; ok {
			continue
		}
		if err := repo.Exec(ctx, d.AddColumnSQL(table, c)); err != nil {
			return added, fmt.Errorf("add column %s.%s: %w", table, c.Name, err)
		}
		added = append(added, c.Name)
	}
	if len(added) > 0 {
		log.Printf("storage: migrated %s: added columns %s", table, strings.Join(added, ", "))
	}
	return added, nil
}

// WriteTable persists rows (aligned to cols) into table according to mode.
func WriteTable(ctx context.Context, repo Repository, table string, cols []Column, rows [][]any, mode WriteMode) (int64, error) {
	existing, err := repo.Columns(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("inspect %s: %w", table, err)
	}
	exists := len(existing) > 0
	d := repo.Dialect()

	var pre []string
	switch mode {
	case Replace, "":
		if exists {
			pre = append(pre, d.DropTableSQL(table))
		}
		pre = append(pre, d.CreateTableSQL(table, cols))
	case Append:
		if !exists {
			pre = append(pre, d.CreateTableSQL(table, cols))
		}
	case Fail:
		if exists {
			return 0, fmt.Errorf("%s: %w", table, ErrTableExists)
		}
		pre = append(pre, d.CreateTableSQL(table, cols))
	default:
		return 0, fmt.Errorf("unknown write mode %q", mode)
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return repo.Load(ctx, table, pre, names, rows)
}
