package simul

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPipeline is returned when a Pipeline is built without stages.
	ErrEmptyPipeline = errors.New("simul: pipeline has no stages")

	// ErrNilAction is returned when a policy returns neither an action nor an
	// error.
	ErrNilAction = errors.New("simul: policy returned nil action")
)

// StageError wraps a failure of one pipeline stage.
type StageError struct {
	Index int
	Name  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("simul: stage %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
