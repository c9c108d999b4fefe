package persist

import "fmt"

// PersistenceError wraps a failed remote or cache operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SequenceError reports the step at which the remote starter board
// sequence stopped. Later steps were not attempted.
type SequenceError struct {
	Step string
	Err  error
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("creating starter board: %s: %v", e.Step, e.Err)
}

func (e *SequenceError) Unwrap() error { return e.Err }
