package sink

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/config"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage"
	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

// openRepo is a test hook for storage.New.
var openRepo = storage.New

// outputSchema is the column layout of the cleaned table, aligned with
// trip.OutputColumns.
func outputSchema() []storage.Column {
	return []storage.Column{
		{Name: trip.ColPickup, Type: storage.TypeTimestamp},
		{Name: trip.ColDropoff, Type: storage.TypeTimestamp},
		{Name: trip.ColPassengerCount, Type: storage.TypeFloat},
		{Name: trip.ColTripDistance, Type: storage.TypeFloat},
		{Name: trip.ColFareAmount, Type: storage.TypeFloat},
		{Name: trip.ColPaymentType, Type: storage.TypeInt},
		{Name: trip.ColTotalAmount, Type: storage.TypeFloat},
		{Name: trip.ColTripDuration, Type: storage.TypeFloat},
		{Name: trip.ColSpeed, Type: storage.TypeFloat},
		{Name: trip.ColTimeOfDay, Type: storage.TypeLabel},
		{Name: trip.ColIsWeekend, Type: storage.TypeBool},
	}
}

// DerivedMigration lists the columns added to the raw trip table so it can
// hold derived features.
func DerivedMigration() []storage.Column {
	return []storage.Column{
		{Name: trip.ColTripDuration, Type: storage.TypeNumeric},
		{Name: trip.ColSpeed, Type: storage.TypeNumeric},
		{Name: trip.ColTimeOfDay, Type: storage.TypeLabel},
		{Name: trip.ColIsWeekend, Type: storage.TypeBool},
	}
}

func writeTable(ctx context.Context, rs trip.ResultSet, t TableWrite) (Outcome, error) {
	dsn, missing := config.ExpandDSN(t.DB.DSN)
	if len(missing) > 0 {
		log.Printf("sink: DSN references unset environment variables: %s", strings.Join(missing, ", "))
	}
	repo, err := openRepo(ctx, storage.Config{Kind: t.DB.Kind, DSN: dsn})
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: connect %s: %w", ErrPersistence, t.DB.Kind, err)
	}
	defer repo.Close()

	var out Outcome
	if t.SourceTable != "" {
		added, err := storage.AddColumns(ctx, repo, t.SourceTable, DerivedMigration())
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: migrate %s: %w", ErrPersistence, t.SourceTable, err)
		}
		out.Migrated = added
	}

	n, err := storage.WriteTable(ctx, repo, t.Table, outputSchema(), rs.Rows(), t.Mode)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: write %s: %w", ErrPersistence, t.Table, err)
	}
	out.Rows = n
	return out, nil
}
