package utils

import (
	"github.com/pkg/errors"
)

// The failure classes surfaced by the tree and the object set. Callers match them with errors.Is;
// the constructors below wrap them with the offending values.
var (
	// ErrInvalidState is returned when an operation needs a tree or set that is not there yet,
	// such as a closest-node search on an empty tree.
	ErrInvalidState = errors.New("invalid state")
	// ErrIndexOutOfRange is returned for node or object indices outside the current arrays,
	// including node ids issued before the last rebuild.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrDegenerateGeometry is returned for bounding boxes with inverted or NaN bounds.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

// NewInvalidStateError is used when an operation is attempted on a structure that cannot serve it.
func NewInvalidStateError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidState, format, args...)
}

// NewIndexOutOfRangeError is used when an index of the given kind falls outside [0, length).
func NewIndexOutOfRangeError(kind string, index, length int) error {
	return errors.Wrapf(ErrIndexOutOfRange, "%s index %d not in [0, %d)", kind, index, length)
}

// NewStaleIndexError is used when an index was issued by an earlier generation of a structure.
func NewStaleIndexError(kind string, index int, issued, current uint32) error {
	return errors.Wrapf(ErrIndexOutOfRange, "%s index %d is from generation %d, current generation is %d",
		kind, index, issued, current)
}

// NewDegenerateGeometryError is used when a bounding box cannot be constructed from its bounds.
func NewDegenerateGeometryError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDegenerateGeometry, format, args...)
}
