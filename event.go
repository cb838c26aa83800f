package detval

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventCategory classifies a synthetic event by the role it plays in the
// corpus. The set is closed; import rejects anything else.
type EventCategory string

const (
	// CategoryTrueAttack is attack activity the rule should fire on
	CategoryTrueAttack EventCategory = "true_attack"
	// CategoryTrueBenign is routine activity the rule should ignore
	CategoryTrueBenign EventCategory = "true_benign"
	// CategoryFPCandidate is tricky benign activity resembling the attack
	CategoryFPCandidate EventCategory = "fp_candidate"
	// CategoryEvasion is an adversarially transformed attack variant
	CategoryEvasion EventCategory = "evasion"
)

// Categories lists all valid categories in breakdown order
var Categories = []EventCategory{
	CategoryTrueAttack,
	CategoryTrueBenign,
	CategoryFPCandidate,
	CategoryEvasion,
}

// Valid reports whether the category belongs to the closed set
func (c EventCategory) Valid() bool {
	switch c {
	case CategoryTrueAttack, CategoryTrueBenign, CategoryFPCandidate, CategoryEvasion:
		return true
	}
	return false
}

// SyntheticEvent is a single synthetic log event. Created only by generators
// or the import path; never mutated after creation.
type SyntheticEvent struct {
	EventID           string                 `json:"event_id"`
	Category          EventCategory          `json:"category"`
	Description       string                 `json:"description"`
	LogData           map[string]interface{} `json:"log_data"`
	AttackTechnique   string                 `json:"attack_technique,omitempty"`
	ExpectedDetection bool                   `json:"expected_detection"`
	Notes             string                 `json:"notes,omitempty"`
	Tags              []string               `json:"tags,omitempty"`
	Severity          string                 `json:"severity,omitempty"`
}

// WriteEvents serializes an event corpus as indented JSON for reuse
func WriteEvents(w io.Writer, events []SyntheticEvent) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(events)
}

// ReadEvents loads a previously exported corpus. Unknown category values and
// duplicate event ids are rejected eagerly, not coerced.
func ReadEvents(r io.Reader) ([]SyntheticEvent, error) {
	var events []SyntheticEvent
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if !e.Category.Valid() {
			return nil, ErrUnknownCategory{Value: string(e.Category)}
		}
		if _, ok := seen[e.EventID]; ok {
			return nil, ErrDuplicateEventID{ID: e.EventID}
		}
		seen[e.EventID] = struct{}{}
	}
	return events, nil
}
