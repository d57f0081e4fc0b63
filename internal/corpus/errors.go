package corpus

import "fmt"

// LoadError represents an unreadable corpus file. It is fatal at startup.
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load corpus %s: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// RecordError describes one skipped record.
type RecordError struct {
	Index int
	ID    string
	Cause error
}

func (e *RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("record %d (%s): %v", e.Index, e.ID, e.Cause)
	}
	return fmt.Sprintf("record %d: %v", e.Index, e.Cause)
}

func (e *RecordError) Unwrap() error {
	return e.Cause
}
