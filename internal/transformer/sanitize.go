// Package transformer implements the per-batch cleaning stages of the trip
// pipeline: null removal, IQR outlier filtering and feature derivation. Every
// stage consumes its input batch and returns a new one; none of them keep
// state across batches.
package transformer

import (
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

// Sanitize converts a raw batch into typed records, dropping every row in
// which a required field is missing or cannot be coerced to its type. It
// returns the surviving batch and the number of rows removed. It never fails;
// an empty input yields an empty output.
func Sanitize(in trip.RawBatch) (trip.Batch, int) {
	out := trip.Batch{Seq: in.Seq, Records: make([]trip.Record, 0, len(in.Rows))}
	for _, row := range in.Rows {
		rec, ok := sanitizeRow(row)
		if !ok {
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out, len(in.Rows) - len(out.Records)
}

// sanitizeRow maps a positional row (aligned with trip.SourceColumns) onto a
// Record. ok is false when any field is absent.
func sanitizeRow(row []any) (r trip.Record, ok bool) {
	if len(row) < len(trip.SourceColumns()) {
		return r, false
	}
	if r.PickupTime, ok = asTime(row[0]); !ok {
		return r, false
	}
	if r.DropoffTime, ok = asTime(row[1]); !ok {
		return r, false
	}
	if r.PassengerCount, ok = asFloat(row[2]); !ok {
		return r, false
	}
	if r.TripDistance, ok = asFloat(row[3]); !ok {
		return r, false
	}
	if r.FareAmount, ok = asFloat(row[4]); !ok {
		return r, false
	}
	if r.PaymentType, ok = asCode(row[5]); !ok {
		return r, false
	}
	if r.TotalAmount, ok = asFloat(row[6]); !ok {
		return r, false
	}
	return r, true
}
