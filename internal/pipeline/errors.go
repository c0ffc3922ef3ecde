package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a detector failure.
type Kind int

const (
	// UnresolvedAnchor: the landmark was not found where expected.
	UnresolvedAnchor Kind = iota + 1
	// ShapeMismatch: the anchor was found but its surroundings differ.
	ShapeMismatch
	// Collision: a singular slot matched twice, or a key was renamed twice.
	Collision
	// PrerequisiteMissing: state from an earlier detector is absent.
	PrerequisiteMissing
	// InvalidRename: a rename to the current name.
	InvalidRename
)

func (k Kind) String() string {
	switch k {
	case UnresolvedAnchor:
		return "unresolved anchor"
	case ShapeMismatch:
		return "shape mismatch"
	case Collision:
		return "collision"
	case PrerequisiteMissing:
		return "prerequisite missing"
	case InvalidRename:
		return "invalid rename"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the failure reported by a detector. Owner and Member are "*"
// when not applicable.
type Error struct {
	Kind      Kind
	Feature   string
	Owner     string
	Member    string
	Diagnosis string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s at %s.%s: %s", e.Feature, e.Kind, orStar(e.Owner), orStar(e.Member), e.Diagnosis)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func orStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries a detector failure of kind k.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// ErrOrder is returned when a detector is scheduled before a provider of one
// of its requirements.
var ErrOrder = errors.New("pipeline: detector scheduled before its prerequisite")

// ErrUnsupportedVersion is returned when the program version is outside the
// pipeline's supported range.
var ErrUnsupportedVersion = errors.New("pipeline: unsupported program version")
