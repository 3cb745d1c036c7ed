package trip

import (
	"encoding/binary"
	"strings"

	"github.com/zeebo/xxh3"
)

// RawBatch is a chunk of unsanitized rows as delivered by a source. Each row is
// aligned with SourceColumns; nil marks a missing value.
type RawBatch struct {
	Seq  int
	Rows [][]any
}

// Batch is a chunk of typed records. Seq is the arrival index of the raw batch
// it was produced from.
type Batch struct {
	Seq     int
	Records []Record
}

// Len returns the number of records in the batch.
func (b Batch) Len() int { return len(b.Records) }

// Bounds is an inclusive [Lower, Upper] interval.
type Bounds struct {
	Lower float64
	Upper float64
}

// Contains reports whether v lies within the bounds, inclusive on both ends.
func (b Bounds) Contains(v float64) bool { return v >= b.Lower && v <= b.Upper }

// ResultSet is the accumulated output of a run. The zero value is the canonical
// empty result: it has no records but still reports the output columns.
type ResultSet struct {
	Records []Record
}

// Columns returns the output column layout. It is defined even for an empty
// result.
func (rs ResultSet) Columns() []string { return OutputColumns() }

// Len returns the number of records.
func (rs ResultSet) Len() int { return len(rs.Records) }

// Empty reports whether the result holds no records.
func (rs ResultSet) Empty() bool { return len(rs.Records) == 0 }

// Head returns up to n leading records. A negative n yields none.
func (rs ResultSet) Head(n int) []Record {
	n = max(0, min(n, len(rs.Records)))
	return rs.Records[:n]
}

// Rows returns every record as a positional row aligned with Columns.
func (rs ResultSet) Rows() [][]any {
	out := make([][]any, len(rs.Records))
	for i, r := range rs.Records {
		out[i] = r.Values()
	}
	return out
}

// Fingerprint hashes the canonical text encoding of every record in order.
// Two results with equal fingerprints hold the same rows in the same order.
func (rs ResultSet) Fingerprint() uint64 {
	h := xxh3.New()
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(rs.Records)))
	_, _ = h.Write(n[:])
	for _, r := range rs.Records {
		_, _ = h.WriteString(strings.Join(r.Strings(), "\x1f"))
		_, _ = h.WriteString("\x1e")
	}
	return h.Sum64()
}
