package detval

import "fmt"

// ErrUnknownCategory indicates an event import carrying a category value
// outside the closed set. Import rejects it instead of coercing.
type ErrUnknownCategory struct {
	Value string
}

// Error implements error
func (e ErrUnknownCategory) Error() string {
	return fmt.Sprintf("unknown event category %q", e.Value)
}

// ErrDuplicateEventID indicates two imported events sharing an id
type ErrDuplicateEventID struct {
	ID string
}

// Error implements error
func (e ErrDuplicateEventID) Error() string {
	return fmt.Sprintf("duplicate event id %q in import", e.ID)
}

// ErrInvalidWeights indicates grading weights that do not sum to 1.0.
// Rejected at construction rather than producing a silently wrong composite.
type ErrInvalidWeights struct {
	F1, Evasion, FP float64
}

// Error implements error
func (e ErrInvalidWeights) Error() string {
	return fmt.Sprintf("grading weights must sum to 1.0, got f1=%.3f evasion=%.3f fp=%.3f (sum %.3f)",
		e.F1, e.Evasion, e.FP, e.F1+e.Evasion+e.FP)
}

// ErrInvalidRegex contextualizes broken regular expressions presented by the user
type ErrInvalidRegex struct {
	Pattern string
	Err     error
}

// Error implements error
func (e ErrInvalidRegex) Error() string {
	return fmt.Sprintf("/%s/ %s", e.Pattern, e.Err)
}

// ErrNotImplemented marks a generator hook a concrete generator did not
// provide. Meant to surface at wiring time, not per-event at runtime.
type ErrNotImplemented struct {
	Method string
}

// Error implements error
func (e ErrNotImplemented) Error() string {
	return fmt.Sprintf("%s not implemented, provide a concrete generator", e.Method)
}
