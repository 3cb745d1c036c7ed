package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:trips.db?cache=shared"
	//   "trips.db" (interpreted by the driver)
	//   ":memory:"
	DSN string

	// CopyBatchSize bounds the rows inserted per progress chunk (0 = storage
	// default). All chunks share one transaction.
	CopyBatchSize int
}
