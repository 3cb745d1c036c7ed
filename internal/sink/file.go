package sink

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

// writeFile streams rs into a temp file next to Path and renames it into
// place, so readers never observe a partial export.
func writeFile(ctx context.Context, rs trip.ResultSet, t FileExport) (Outcome, error) {
	dir := filepath.Dir(t.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(t.Path)+".*.tmp")
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: create temp in %s: %w", ErrIO, dir, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriterSize(tmp, 1<<20)
	w := csv.NewWriter(bw)
	if err := w.Write(rs.Columns()); err != nil {
		return Outcome{}, fmt.Errorf("%w: write header: %w", ErrIO, err)
	}
	for i, r := range rs.Records {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
		}
		if err := w.Write(r.Strings()); err != nil {
			return Outcome{}, fmt.Errorf("%w: write row %d: %w", ErrIO, i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Outcome{}, fmt.Errorf("%w: flush: %w", ErrIO, err)
	}
	if err := bw.Flush(); err != nil {
		return Outcome{}, fmt.Errorf("%w: flush: %w", ErrIO, err)
	}
	if err := tmp.Chmod(exportMode(t.Path)); err != nil {
		return Outcome{}, fmt.Errorf("%w: chmod: %w", ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return Outcome{}, fmt.Errorf("%w: close: %w", ErrIO, err)
	}
	if err := os.Rename(tmpName, t.Path); err != nil {
		return Outcome{}, fmt.Errorf("%w: rename to %s: %w", ErrIO, t.Path, err)
	}
	committed = true
	return Outcome{Rows: int64(rs.Len())}, nil
}

// defaultExportMode applies when the export creates a new file.
const defaultExportMode os.FileMode = 0o644

// exportMode returns the permissions of an existing regular file at path, or
// defaultExportMode.
func exportMode(path string) os.FileMode {
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		return fi.Mode().Perm()
	}
	return defaultExportMode
}

// ReadCSV loads a file written by a FileExport back into a ResultSet.
func ReadCSV(path string) (trip.ResultSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return trip.ResultSet{}, err
	}
	defer f.Close()

	cr := csv.NewReader(bufio.NewReader(f))
	cols := trip.OutputColumns()
	cr.FieldsPerRecord = len(cols)

	hdr, err := cr.Read()
	if err != nil {
		return trip.ResultSet{}, fmt.Errorf("read header: %w", err)
	}
	for i, c := range cols {
		if hdr[i] != c {
			return trip.ResultSet{}, fmt.Errorf("header column %d is %q, want %q", i, hdr[i], c)
		}
	}

	var rs trip.ResultSet
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return trip.ResultSet{}, fmt.Errorf("line %d: %w", line, err)
		}
		r, err := parseRecord(rec)
		if err != nil {
			return trip.ResultSet{}, fmt.Errorf("line %d: %w", line, err)
		}
		rs.Records = append(rs.Records, r)
	}
	return rs, nil
}

func parseRecord(rec []string) (trip.Record, error) {
	var (
		r    trip.Record
		errs []error
	)
	ts := func(s string) time.Time {
		t, err := time.Parse(trip.TimestampLayout, s)
		errs = append(errs, err)
		return t
	}
	fl := func(s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		errs = append(errs, err)
		return v
	}
	r.PickupTime = ts(rec[0])
	r.DropoffTime = ts(rec[1])
	r.PassengerCount = fl(rec[2])
	r.TripDistance = fl(rec[3])
	r.FareAmount = fl(rec[4])
	pt, err := strconv.ParseInt(rec[5], 10, 64)
	errs = append(errs, err)
	r.PaymentType = pt
	r.TotalAmount = fl(rec[6])
	r.TripDurationMinutes = fl(rec[7])
	r.SpeedMPH = fl(rec[8])
	r.TimeOfDay = trip.TimeOfDay(rec[9])
	wk, err := strconv.ParseBool(rec[10])
	errs = append(errs, err)
	r.IsWeekend = wk

	for _, e := range errs {
		if e != nil {
			return trip.Record{}, e
		}
	}
	return r, nil
}
