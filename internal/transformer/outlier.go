package transformer

import (
	"errors"
	"fmt"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

// DefaultOutlierFields is the reference field order.
func DefaultOutlierFields() []string {
	return []string{trip.ColTripDistance, trip.ColFareAmount}
}

// FieldResult reports what the outlier stage did for one field of one batch.
type FieldResult struct {
	Field   string
	Bounds  trip.Bounds
	Removed int
	// Skipped is set when the batch was empty by the time this field was
	// reached, so no quantiles could be computed.
	Skipped bool
}

// OutlierFilter drops records lying outside the IQR fences of each configured
// numeric field. Fields are processed in order and each one sees only the
// survivors of the previous fields, so the order changes both the quantiles
// and the result.
//
// The statistics are computed over whatever batch is passed to Apply; running
// it per source chunk gives chunk-local bounds.
type OutlierFilter struct {
	fields []string
	k      float64
}

// NewOutlierFilter validates the field list. A non-positive multiplier selects
// DefaultIQRMultiplier; a nil field list selects DefaultOutlierFields.
func NewOutlierFilter(fields []string, multiplier float64) (*OutlierFilter, error) {
	if fields == nil {
		fields = DefaultOutlierFields()
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if !trip.IsNumericColumn(f) {
			return nil, fmt.Errorf("outlier field %q is not a numeric trip column", f)
		}
		if _, dup := seen[f]; dup {
			return nil, fmt.Errorf("outlier field %q listed twice", f)
		}
		seen[f] = struct{}{}
	}
	if multiplier <= 0 {
		multiplier = DefaultIQRMultiplier
	}
	return &OutlierFilter{fields: append([]string(nil), fields...), k: multiplier}, nil
}

// Fields returns the configured field order.
func (f *OutlierFilter) Fields() []string { return append([]string(nil), f.fields...) }

// Apply filters the batch field by field and returns the survivors together
// with one FieldResult per configured field, in order.
func (f *OutlierFilter) Apply(in trip.Batch) (trip.Batch, []FieldResult) {
	results := make([]FieldResult, 0, len(f.fields))
	cur := in.Records
	for _, field := range f.fields {
		values := make([]float64, len(cur))
		for i, r := range cur {
			values[i], _ = r.Numeric(field)
		}
		b, err := IQRBounds(values, f.k)
		if errors.Is(err, ErrInsufficientData) {
			results = append(results, FieldResult{Field: field, Skipped: true})
			continue
		}

		kept := make([]trip.Record, 0, len(cur))
		for i, r := range cur {
			if b.Contains(values[i]) {
				kept = append(kept, r)
			}
		}
		results = append(results, FieldResult{Field: field, Bounds: b, Removed: len(cur) - len(kept)})
		cur = kept
	}
	return trip.Batch{Seq: in.Seq, Records: cur}, results
}
