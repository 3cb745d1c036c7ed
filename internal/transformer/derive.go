package transformer

import (
	"time"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

// Derive computes trip_duration (minutes), speed (mph), time_of_day and
// is_weekend for every record. Records whose duration is exactly zero have no
// defined speed and are dropped; the second return value counts them.
//
// Derive is a pure function of the source fields: applying it to an already
// derived batch reproduces the same values. Time-of-day and weekend use the
// pickup wall clock as stored, without zone conversion.
func Derive(in trip.Batch) (trip.Batch, int) {
	out := trip.Batch{Seq: in.Seq, Records: make([]trip.Record, 0, len(in.Records))}
	for _, r := range in.Records {
		d := r.DropoffTime.Sub(r.PickupTime).Seconds() / 60
		if d == 0 {
			continue
		}
		r.TripDurationMinutes = d
		r.SpeedMPH = r.TripDistance / d * 60
		r.TimeOfDay = trip.BucketHour(r.PickupTime.Hour())
		wd := r.PickupTime.Weekday()
		r.IsWeekend = wd == time.Saturday || wd == time.Sunday
		out.Records = append(out.Records, r)
	}
	return out, len(in.Records) - len(out.Records)
}
