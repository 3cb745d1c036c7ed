// Package config defines the JSON-serializable pipeline description for the
// trip cleaning job. Pipelines are loaded from disk (configs/pipelines/*.json),
// linted by ValidatePipeline and then passed through the program as plain
// values.
//
// Example (trimmed):
//
//	{
//	  "job":     "nyc_yellow_clean",
//	  "source":  { "kind": "table", "db": { "kind": "postgres", "dsn": "...", "table": "yellow_taxi_trips" } },
//	  "runtime": { "batch_size": 100000 },
//	  "outlier": { "fields": ["trip_distance", "fare_amount"], "scope": "batch" },
//	  "output":  { "table": { "name": "cleaned_yellow_taxi_trips", "if_exists": "replace" } }
//	}
//
// Exactly one of output.file / output.table must be present.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
)

// DefaultBatchSize is the number of source rows materialized per batch.
const DefaultBatchSize = 100000

// Outlier scopes.
const (
	ScopeBatch  = "batch"
	ScopeGlobal = "global"
)

// Table write modes, mirroring the usual if_exists vocabulary.
const (
	IfExistsReplace = "replace"
	IfExistsAppend  = "append"
	IfExistsFail    = "fail"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run for logs and metrics grouping.
	Job string `json:"job"`

	Source  Source        `json:"source"`
	Runtime RuntimeConfig `json:"runtime"`
	Outlier Outlier       `json:"outlier"`
	Output  Output        `json:"output"`
}

// RuntimeConfig controls batching and optional parallelism.
type RuntimeConfig struct {
	// BatchSize is the number of rows per source batch (0 = default).
	BatchSize int `json:"batch_size"`

	// Workers > 1 processes batches concurrently. Output order is preserved.
	Workers int `json:"workers"`
}

// Source identifies where raw trips come from.
type Source struct {
	// Kind selects the source implementation: "table" or "csv".
	Kind string `json:"kind"`

	// DB carries options for the "table" kind.
	DB DBConfig `json:"db"`

	// File carries options for the "csv" kind.
	File SourceFile `json:"file"`

	// Options is a free-form bag interpreted by the source. For CSV:
	//   comma (string), has_header (bool), header_map (object), lazy_quotes (bool)
	Options Options `json:"options"`
}

// SourceFile holds configuration for the "csv" source kind.
type SourceFile struct {
	Path string `json:"path"`
}

// DBConfig points at a relational table.
type DBConfig struct {
	// Kind selects the storage backend: postgres, sqlite, mssql or mysql.
	Kind string `json:"kind"`

	// DSN is the driver connection string. ${VAR} references are expanded from
	// the environment.
	DSN string `json:"dsn"`

	// Table is the (optionally schema-qualified) table name.
	Table string `json:"table"`
}

// Outlier configures the IQR filter.
type Outlier struct {
	// Enabled defaults to true when omitted.
	Enabled *bool `json:"enabled,omitempty"`

	// Fields lists numeric columns filtered in order. Omitted means
	// ["trip_distance", "fare_amount"].
	Fields []string `json:"fields,omitempty"`

	// Scope is "batch" (quartiles per source batch) or "global" (quartiles over
	// the whole sanitized dataset).
	Scope string `json:"scope,omitempty"`

	// Multiplier is the fence factor k in Q1-k*IQR / Q3+k*IQR (0 = 1.5).
	Multiplier float64 `json:"multiplier,omitempty"`
}

// IsEnabled reports whether outlier filtering runs.
func (o Outlier) IsEnabled() bool { return o.Enabled == nil || *o.Enabled }

// ScopeOrDefault returns the configured scope, defaulting to ScopeBatch.
func (o Outlier) ScopeOrDefault() string {
	if o.Scope == "" {
		return ScopeBatch
	}
	return o.Scope
}

// Output selects the single persistence target.
type Output struct {
	File  *FileOutput  `json:"file,omitempty"`
	Table *TableOutput `json:"table,omitempty"`
}

// FileOutput exports the result as a delimited file.
type FileOutput struct {
	Path string `json:"path"`
}

// TableOutput writes the result into a relational table.
type TableOutput struct {
	Name string `json:"name"`

	// IfExists is replace (default), append or fail.
	IfExists string `json:"if_exists,omitempty"`

	// DB optionally points the write at another database. When nil the source
	// database is used.
	DB *DBConfig `json:"db,omitempty"`
}

// IfExistsOrDefault returns the write mode, defaulting to IfExistsReplace.
func (t TableOutput) IfExistsOrDefault() string {
	if t.IfExists == "" {
		return IfExistsReplace
	}
	return t.IfExists
}

// Decode reads a Pipeline from JSON. Unknown fields are rejected so that a
// misspelled output block cannot silently select nothing.
func Decode(r io.Reader) (Pipeline, error) {
	var p Pipeline
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode pipeline: %w", err)
	}
	return p, nil
}

// Load opens and decodes a pipeline file.
func Load(path string) (Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// ExpandDSN expands $VAR / ${VAR} references in dsn from the environment and
// returns the names of referenced variables that are unset.
func ExpandDSN(dsn string) (string, []string) {
	var missing []string
	for _, m := range envRef.FindAllStringSubmatch(dsn, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if _, ok := os.LookupEnv(name); !ok {
			missing = append(missing, name)
		}
	}
	return os.ExpandEnv(dsn), missing
}
