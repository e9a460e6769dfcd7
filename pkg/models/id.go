package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Id is a unique, time-ordered identifier for messages and sessions.
// Values are comparable and safe to use as map keys.
type Id struct {
	v uuid.UUID
}

// NewId generates a fresh time-ordered Id. Ids created later sort after
// ids created earlier when compared as strings.
func NewId() Id {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return Id{v: u}
}

// ParseId parses the canonical string form produced by String.
func ParseId(s string) (Id, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Id{}, fmt.Errorf("parse id %q: %w", s, err)
	}
	return Id{v: u}, nil
}

func (id Id) String() string {
	return id.v.String()
}

// IsZero reports whether the id is the zero value.
func (id Id) IsZero() bool {
	return id.v == uuid.Nil
}

func (id Id) MarshalText() ([]byte, error) {
	return []byte(id.v.String()), nil
}

func (id *Id) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return fmt.Errorf("parse id %q: %w", string(b), err)
	}
	id.v = u
	return nil
}
