// Package trip defines the typed trip record flowing through the cleaning
// pipeline, the batch and result containers, and the canonical column layout
// shared by every source and sink.
package trip

import (
	"strconv"
	"time"
)

// Source columns, in projection order.
const (
	ColPickup         = "pickup_datetime"
	ColDropoff        = "dropoff_datetime"
	ColPassengerCount = "passenger_count"
	ColTripDistance   = "trip_distance"
	ColFareAmount     = "fare_amount"
	ColPaymentType    = "payment_type"
	ColTotalAmount    = "total_amount"
)

// Derived columns appended by the feature stage.
const (
	ColTripDuration = "trip_duration"
	ColSpeed        = "speed"
	ColTimeOfDay    = "time_of_day"
	ColIsWeekend    = "is_weekend"
)

// TimestampLayout is the wall-clock layout used for flat-file export. Fractional
// seconds are emitted only when present.
const TimestampLayout = "2006-01-02 15:04:05.999999999"

// SourceColumns returns the projection read from the raw trip table. All of
// them are required.
func SourceColumns() []string {
	return []string{
		ColPickup,
		ColDropoff,
		ColPassengerCount,
		ColTripDistance,
		ColFareAmount,
		ColPaymentType,
		ColTotalAmount,
	}
}

// DerivedColumns returns the four feature columns in output order.
func DerivedColumns() []string {
	return []string{ColTripDuration, ColSpeed, ColTimeOfDay, ColIsWeekend}
}

// OutputColumns is SourceColumns followed by DerivedColumns.
func OutputColumns() []string {
	return append(SourceColumns(), DerivedColumns()...)
}

// TimeOfDay buckets the pickup hour.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"   // [06:00, 12:00)
	Afternoon TimeOfDay = "afternoon" // [12:00, 17:00)
	Evening   TimeOfDay = "evening"   // [17:00, 22:00)
	Night     TimeOfDay = "night"     // [22:00, 06:00)
)

// BucketHour maps an hour of day (0-23) onto its TimeOfDay.
func BucketHour(h int) TimeOfDay {
	switch {
	case h >= 6 && h < 12:
		return Morning
	case h >= 12 && h < 17:
		return Afternoon
	case h >= 17 && h < 22:
		return Evening
	default:
		return Night
	}
}

// Record is one sanitized trip observation. The derived fields are zero until
// the feature stage has run.
type Record struct {
	PickupTime     time.Time
	DropoffTime    time.Time
	PassengerCount float64
	TripDistance   float64 // miles
	FareAmount     float64
	PaymentType    int64
	TotalAmount    float64

	TripDurationMinutes float64
	SpeedMPH            float64
	TimeOfDay           TimeOfDay
	IsWeekend           bool
}

// Numeric returns the value of a numeric source column by name. ok is false for
// unknown or non-numeric columns.
func (r Record) Numeric(col string) (v float64, ok bool) {
	switch col {
	case ColPassengerCount:
		return r.PassengerCount, true
	case ColTripDistance:
		return r.TripDistance, true
	case ColFareAmount:
		return r.FareAmount, true
	case ColTotalAmount:
		return r.TotalAmount, true
	case ColPaymentType:
		return float64(r.PaymentType), true
	}
	return 0, false
}

// IsNumericColumn reports whether col can be used as an outlier field.
func IsNumericColumn(col string) bool {
	_, ok := Record{}.Numeric(col)
	return ok
}

// Values returns the record as a positional row aligned with OutputColumns,
// suitable for bulk loaders.
func (r Record) Values() []any {
	return []any{
		r.PickupTime,
		r.DropoffTime,
		r.PassengerCount,
		r.TripDistance,
		r.FareAmount,
		r.PaymentType,
		r.TotalAmount,
		r.TripDurationMinutes,
		r.SpeedMPH,
		string(r.TimeOfDay),
		r.IsWeekend,
	}
}

// Strings returns the canonical text encoding of the record aligned with
// OutputColumns. It is the encoding used by the flat-file export and by
// ResultSet.Fingerprint.
func (r Record) Strings() []string {
	return []string{
		r.PickupTime.Format(TimestampLayout),
		r.DropoffTime.Format(TimestampLayout),
		formatFloat(r.PassengerCount),
		formatFloat(r.TripDistance),
		formatFloat(r.FareAmount),
		strconv.FormatInt(r.PaymentType, 10),
		formatFloat(r.TotalAmount),
		formatFloat(r.TripDurationMinutes),
		formatFloat(r.SpeedMPH),
		string(r.TimeOfDay),
		strconv.FormatBool(r.IsWeekend),
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
