package storage

import (
	"fmt"
	"strings"
)

// ColumnType is a backend-neutral column type.
type ColumnType int

const (
	TypeTimestamp ColumnType = iota
	TypeFloat
	TypeInt
	TypeText
	TypeBool
	// TypeNumeric is an exact decimal; used for migrated source columns.
	TypeNumeric
	// TypeLabel is a short bounded string such as a time-of-day bucket.
	TypeLabel
)

// Column is a name plus its neutral type.
type Column struct {
	Name string
	Type ColumnType
}

// Dialect captures the SQL differences between backends that the generic
// helpers in this package care about.
type Dialect struct {
	Name string

	// QuoteIdent quotes a single identifier segment.
	QuoteIdent func(string) string

	// Types maps neutral column types to backend type names.
	Types map[ColumnType]string

	// AddColumn is the ALTER TABLE clause introducing a new column:
	// "ADD COLUMN" for most backends, "ADD" for SQL Server.
	AddColumn string
}

// Quote quotes a possibly schema-qualified name, e.g. public.trips becomes
// "public"."trips" under Postgres rules.
func (d Dialect) Quote(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// TypeName returns the backend type for t.
func (d Dialect) TypeName(t ColumnType) string {
	if s, ok := d.Types[t]; ok {
		return s
	}
	return d.Types[TypeText]
}

// SelectSQL builds SELECT <cols> FROM <table>.
func (d Dialect) SelectSQL(table string, cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = d.QuoteIdent(c)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(q, ", "), d.Quote(table))
}

// CreateTableSQL builds a CREATE TABLE statement for cols.
func (d Dialect) CreateTableSQL(table string, cols []Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = d.QuoteIdent(c.Name) + " " + d.TypeName(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(table), strings.Join(defs, ", "))
}

// DropTableSQL builds a DROP TABLE statement.
func (d Dialect) DropTableSQL(table string) string {
	return "DROP TABLE " + d.Quote(table)
}

// AddColumnSQL builds an ALTER TABLE statement adding c to table.
func (d Dialect) AddColumnSQL(table string, c Column) string {
	return fmt.Sprintf("ALTER TABLE %s %s %s %s", d.Quote(table), d.AddColumn, d.QuoteIdent(c.Name), d.TypeName(c.Type))
}

// SplitFQN splits "schema.table" into its parts. schema is empty when name
// is unqualified.
func SplitFQN(name string) (schema, table string) {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
