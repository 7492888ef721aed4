package explorer

import (
	"errors"
	"fmt"
)

// Stage names the executor step at which an interaction was abandoned.
type Stage string

const (
	StagePreShot Stage = "pre_shot"
	StageCompute Stage = "compute"
	StageExecute Stage = "execute"
)

// AbortError is returned when an interaction produced no record. The
// engine skips the candidate and moves on.
type AbortError struct {
	Stage Stage
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("interaction aborted at %s: %v", e.Stage, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// ErrAppReset means the target app could not be brought to the foreground.
// It ends the exploration of that app.
var ErrAppReset = errors.New("app reset failed")

// IsAbort reports whether err is an AbortError.
func IsAbort(err error) bool {
	var ae *AbortError
	return errors.As(err, &ae)
}
