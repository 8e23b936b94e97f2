package props

import (
	"errors"
	"fmt"

	"github.com/jacentio/arbor/tree"
)

var (
	// ErrRootNotFound is returned by PropertySets when the root path itself
	// does not exist, as opposed to existing with no sets beneath it.
	ErrRootNotFound = fmt.Errorf("%w: property set root", tree.ErrNoNode)

	// ErrInvalidName is returned when a set name or property key cannot be
	// used as a single node name.
	ErrInvalidName = fmt.Errorf("%w: name", tree.ErrInvalidPath)

	// ErrNilPropertySet is returned by Store when given a nil set.
	ErrNilPropertySet = errors.New("arbor: nil property set")
)
