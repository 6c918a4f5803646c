// Package ids defines the opaque identifier used for every persisted entity.
package ids

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID identifies a student, classroom, lesson, test, question, game,
// attempt or notification. IDs are compared by value after canonicalization,
// so two spellings of the same identifier are always equal.
type ID string

// ErrEmpty is returned by Parse for blank input.
var ErrEmpty = errors.New("empty identifier")

// New returns a freshly generated ID.
func New() ID {
	return ID(uuid.NewString())
}

// Parse canonicalizes s. UUIDs are rendered in lower-case hyphenated form,
// 24-character hex document IDs are lower-cased, and any other token must
// consist of letters, digits, '-' or '_'.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmpty
	}
	if u, err := uuid.Parse(s); err == nil {
		return ID(u.String()), nil
	}
	if isHex(s) && len(s) == 24 {
		return ID(strings.ToLower(s)), nil
	}
	for _, r := range s {
		if !isTokenRune(r) {
			return "", fmt.Errorf("invalid identifier %q", s)
		}
	}
	return ID(s), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// fixed fixtures.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string { return string(id) }

// IsZero reports whether id is unset.
func (id ID) IsZero() bool { return id == "" }

// Equal compares two IDs after canonicalization.
func (id ID) Equal(other ID) bool {
	a, errA := Parse(string(id))
	b, errB := Parse(string(other))
	if errA != nil || errB != nil {
		return id == other
	}
	return a == b
}

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) {
	return string(id), nil
}

// Scan implements sql.Scanner.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*id = ""
	case string:
		*id = ID(v)
	case []byte:
		*id = ID(v)
	default:
		return fmt.Errorf("ids: cannot scan %T", src)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Input is canonicalized.
func (id *ID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*id = ""
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Strings converts a slice of IDs to their string forms, for use as query
// arguments.
func Strings(list []ID) []string {
	out := make([]string, len(list))
	for i, id := range list {
		out[i] = string(id)
	}
	return out
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func isTokenRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_'
}
