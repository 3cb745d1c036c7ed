// Package sink persists a cleaned ResultSet to exactly one target: a flat
// file export or a relational table.
//
// An empty ResultSet is a no-op for every target: nothing is opened,
// created, migrated or truncated.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/config"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

var (
	// ErrIO wraps file export failures.
	ErrIO = errors.New("file export failed")
	// ErrPersistence wraps table write failures.
	ErrPersistence = errors.New("table write failed")
)

// Target is FileExport or TableWrite.
type Target interface {
	fmt.Stringer
	isTarget()
}

// FileExport writes a header plus one line per record to Path, replacing any
// existing file.
type FileExport struct {
	Path string
}

func (FileExport) isTarget() {}

func (f FileExport) String() string { return "file:" + f.Path }

// TableWrite writes records into Table. When SourceTable is set, the derived
// columns are first added to it if absent.
type TableWrite struct {
	DB          storage.Config
	Table       string
	SourceTable string
	Mode        storage.WriteMode
}

func (TableWrite) isTarget() {}

func (t TableWrite) String() string { return fmt.Sprintf("%s table:%s", t.DB.Kind, t.Table) }

// Outcome reports what a write did.
type Outcome struct {
	// NoOp is true when the result was empty and nothing was touched.
	NoOp bool
	// Rows is the number of records written.
	Rows int64
	// Migrated lists columns added to the source table.
	Migrated []string
}

// TargetFromConfig selects the target from out. Selecting both or neither
// is rejected before any I/O. Table writes reuse the source database unless
// out.Table.DB is set; only then is the source table left unmigrated.
func TargetFromConfig(out config.Output, src config.Source) (Target, error) {
	switch {
	case out.File != nil && out.Table != nil:
		return nil, fmt.Errorf("%w: output.file and output.table are mutually exclusive", config.ErrInvalid)
	case out.File == nil && out.Table == nil:
		return nil, fmt.Errorf("%w: no output selected", config.ErrInvalid)
	case out.File != nil:
		if strings.TrimSpace(out.File.Path) == "" {
			return nil, fmt.Errorf("%w: output.file.path is empty", config.ErrInvalid)
		}
		return FileExport{Path: out.File.Path}, nil
	}

	t := out.Table
	tw := TableWrite{Table: t.Name, Mode: storage.WriteMode(t.IfExistsOrDefault())}
	switch {
	case t.DB != nil:
		tw.DB = storage.Config{Kind: t.DB.Kind, DSN: t.DB.DSN}
	case src.Kind == "table":
		tw.DB = storage.Config{Kind: src.DB.Kind, DSN: src.DB.DSN}
		tw.SourceTable = src.DB.Table
	default:
		return nil, fmt.Errorf("%w: table output from a %s source needs output.table.db", config.ErrInvalid, src.Kind)
	}
	if strings.TrimSpace(tw.Table) == "" {
		return nil, fmt.Errorf("%w: output.table.name is empty", config.ErrInvalid)
	}
	return tw, nil
}

// Persist writes rs to t.
func Persist(ctx context.Context, rs trip.ResultSet, t Target) (Outcome, error) {
	if rs.Empty() {
		return Outcome{NoOp: true}, nil
	}
	switch t := t.(type) {
	case FileExport:
		return writeFile(ctx, rs, t)
	case TableWrite:
		return writeTable(ctx, rs, t)
	case nil:
		return Outcome{}, errors.New("sink: nil target")
	default:
		return Outcome{}, fmt.Errorf("sink: unsupported target %T", t)
	}
}
