package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Answer is a selected option index, or a set of indices for multi-select
// questions. The JSON form is a bare number or an array of numbers.
type Answer struct {
	indices []int
	multi   bool
}

// SingleAnswer returns a single-choice answer.
func SingleAnswer(index int) Answer {
	return Answer{indices: []int{index}}
}

// MultiAnswer returns a multi-select answer. Duplicates are ignored.
func MultiAnswer(indices ...int) Answer {
	set := slices.Clone(indices)
	slices.Sort(set)
	return Answer{indices: slices.Compact(set), multi: true}
}

// IsMulti reports whether a is a multi-select answer.
func (a Answer) IsMulti() bool { return a.multi }

// IsZero reports whether a carries no selection.
func (a Answer) IsZero() bool { return len(a.indices) == 0 && !a.multi }

// Indices returns the selected option indices in ascending order.
func (a Answer) Indices() []int { return slices.Clone(a.indices) }

// Equal reports exact equality. A single-choice answer never equals a
// multi-select one, and multi-select answers compare as sets.
func (a Answer) Equal(b Answer) bool {
	if a.IsZero() || b.IsZero() || a.multi != b.multi {
		return false
	}
	return slices.Equal(a.indices, b.indices)
}

func (a Answer) String() string {
	if a.multi {
		return fmt.Sprint(a.indices)
	}
	if len(a.indices) == 0 {
		return "-"
	}
	return fmt.Sprint(a.indices[0])
}

// MarshalJSON implements json.Marshaler.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.multi {
		if a.indices == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.indices)
	}
	if len(a.indices) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(a.indices[0])
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = Answer{}
	case len(b) > 0 && b[0] == '[':
		var list []int
		if err := json.Unmarshal(b, &list); err != nil {
			return fmt.Errorf("answer: %w", err)
		}
		*a = MultiAnswer(list...)
	default:
		var i int
		if err := json.Unmarshal(b, &i); err != nil {
			return fmt.Errorf("answer: %w", err)
		}
		*a = SingleAnswer(i)
	}
	return nil
}
