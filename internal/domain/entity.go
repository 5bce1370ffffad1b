package domain

import "fmt"

// Kind identifies one of the four administrable entity kinds.
type Kind string

const (
	KindUser      Kind = "user"
	KindUserGroup Kind = "usergroup"
	KindConn      Kind = "connection"
	KindConnGroup Kind = "connection group"
)

// SubjectType is the guacamole_entity.type discriminator for principals.
type SubjectType string

const (
	SubjectUser      SubjectType = "USER"
	SubjectUserGroup SubjectType = "USER_GROUP"
)

// Selector identifies an existing entity by display name or canonical ID,
// never both.
type Selector struct {
	Name string
	ID   int64
}

// ByName builds a name selector.
func ByName(name string) Selector { return Selector{Name: name} }

// ByID builds an ID selector.
func ByID(id int64) Selector { return Selector{ID: id} }

// String renders the selector for error messages.
func (s Selector) String() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%d", s.ID)
}

// Validate enforces the exactly-one-of contract and the positive-ID rule.
// It never touches the store.
func (s Selector) Validate(kind Kind) error {
	hasName := s.Name != ""
	hasID := s.ID != 0
	if hasName == hasID {
		return ErrUsage("exactly one of %s name or ID must be provided", kind)
	}
	if hasID && s.ID < 0 {
		return ErrUsage("%s ID must be a positive integer greater than 0", kind)
	}
	return nil
}
