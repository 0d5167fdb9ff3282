package configset

import (
	"github.com/google/uuid"
)

// ID is the permanent identity of an entry.
type ID = uuid.UUID

// NilID marks "no entry".
var NilID = uuid.Nil

// NewID returns a fresh random identity.
func NewID() ID {
	return uuid.New()
}

// ParseID parses the textual form of an identity.
func ParseID(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParseID is ParseID for well-known identities declared in code.
func MustParseID(s string) ID {
	return uuid.MustParse(s)
}
