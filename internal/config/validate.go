// This file holds the static linter for Pipeline values. It reports every
// problem it finds as an Issue instead of stopping at the first one, so the
// CLI can print a complete list before any I/O happens.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

// ErrInvalid is wrapped by the error returned from Issues.Err.
var ErrInvalid = errors.New("invalid pipeline configuration")

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single finding. Path is a dotted path into the config,
// e.g. "output.table.name".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Issues is the result of ValidatePipeline.
type Issues []Issue

// Err returns nil when there are no error-severity issues, and otherwise an
// error wrapping ErrInvalid that lists them.
func (is Issues) Err() error {
	var msgs []string
	for _, i := range is {
		if i.Severity == SeverityError {
			msgs = append(msgs, i.Path+": "+i.Message)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

var knownDBKinds = map[string]struct{}{
	"postgres": {},
	"sqlite":   {},
	"mssql":    {},
	"mysql":    {},
}

// ValidatePipeline lints p without mutating it.
func ValidatePipeline(p Pipeline) Issues {
	var issues Issues

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics will be grouped under the default job name",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateRuntime(p.Runtime, p.Outlier)...)
	issues = append(issues, validateOutlier(p.Outlier)...)
	issues = append(issues, validateOutput(p.Output, p.Source)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	switch s.Kind {
	case "":
		return []Issue{{Severity: SeverityError, Path: "source.kind", Message: "source.kind must not be empty"}}
	case "table":
		issues = append(issues, validateDB("source.db", s.DB)...)
	case "csv":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.path",
				Message:  "csv source requires a non-empty path",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q (want table or csv)", s.Kind),
		})
	}
	return issues
}

func validateDB(path string, db DBConfig) []Issue {
	var issues []Issue
	if _, ok := knownDBKinds[db.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("unknown database kind %q (want postgres, sqlite, mssql or mysql)", db.Kind),
		})
	}
	if strings.TrimSpace(db.DSN) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: path + ".dsn", Message: "dsn must not be empty"})
	}
	if strings.TrimSpace(db.Table) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: path + ".table", Message: "table must not be empty"})
	}
	return issues
}

func validateRuntime(r RuntimeConfig, o Outlier) []Issue {
	var issues []Issue
	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	if r.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	if r.Workers > 1 && o.IsEnabled() && o.ScopeOrDefault() == ScopeGlobal {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.workers",
			Message:  "workers is ignored when outlier.scope is global",
		})
	}
	return issues
}

func validateOutlier(o Outlier) []Issue {
	var issues []Issue
	switch o.ScopeOrDefault() {
	case ScopeBatch, ScopeGlobal:
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "outlier.scope",
			Message:  fmt.Sprintf("unknown scope %q (want batch or global)", o.Scope),
		})
	}
	if o.Multiplier < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "outlier.multiplier",
			Message:  "multiplier must not be negative",
		})
	}
	if o.Fields != nil && len(o.Fields) == 0 && o.IsEnabled() {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "outlier.fields",
			Message:  "empty field list; set enabled=false to disable outlier filtering explicitly",
		})
	}
	seen := map[string]struct{}{}
	for i, f := range o.Fields {
		path := fmt.Sprintf("outlier.fields[%d]", i)
		if !trip.IsNumericColumn(f) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("%q is not a numeric trip column", f),
			})
		}
		if _, dup := seen[f]; dup {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf("%q listed twice", f)})
		}
		seen[f] = struct{}{}
	}
	return issues
}

// validateOutput enforces that exactly one persistence target is selected.
func validateOutput(o Output, src Source) []Issue {
	switch {
	case o.File != nil && o.Table != nil:
		return []Issue{{
			Severity: SeverityError,
			Path:     "output",
			Message:  "output.file and output.table are mutually exclusive; select exactly one",
		}}
	case o.File == nil && o.Table == nil:
		return []Issue{{
			Severity: SeverityError,
			Path:     "output",
			Message:  "no output selected; set output.file or output.table",
		}}
	case o.File != nil:
		if strings.TrimSpace(o.File.Path) == "" {
			return []Issue{{Severity: SeverityError, Path: "output.file.path", Message: "path must not be empty"}}
		}
		return nil
	}

	var issues []Issue
	t := o.Table
	if strings.TrimSpace(t.Name) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "output.table.name", Message: "name must not be empty"})
	}
	switch t.IfExistsOrDefault() {
	case IfExistsReplace, IfExistsAppend, IfExistsFail:
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.table.if_exists",
			Message:  fmt.Sprintf("unknown mode %q (want replace, append or fail)", t.IfExists),
		})
	}
	switch {
	case t.DB != nil:
		db := *t.DB
		if db.Table == "" {
			// Only the connection is taken from here; the table name is output.table.name.
			db.Table = t.Name
		}
		issues = append(issues, validateDB("output.table.db", db)...)
	case src.Kind != "table":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.table.db",
			Message:  "table output from a non-table source needs output.table.db",
		})
	}
	if t.DB == nil && src.Kind == "table" && strings.EqualFold(t.Name, src.DB.Table) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.table.name",
			Message:  "output table must differ from the source table",
		})
	}
	return issues
}
