package pipeline

import (
	"fmt"

	"text2shorts/types"
)

// StageError is a stage-aware error.
type StageError struct {
	Stage   types.Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RunError reports a topic run that finished with failures. It carries every
// failure, not only the first one.
type RunError struct {
	Topic  string
	Record types.FailureRecord
}

func (e *RunError) Error() string {
	return fmt.Sprintf("topic %s failed:\n%s", e.Topic, e.Record.String())
}
