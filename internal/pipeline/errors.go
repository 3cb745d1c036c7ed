package pipeline

// Stage names carried by StageError.
const (
	StageSource = "source"
	StageSink   = "sink"
)

// StageError attributes a run failure to the stage that caused it. Use
// errors.Is on it to reach the stage's sentinel, e.g. source.ErrUnavailable.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }
