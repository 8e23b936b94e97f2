package tree

import (
	"context"
	"errors"
)

var (
	// ErrNoNode is returned when the addressed node does not exist.
	ErrNoNode = errors.New("arbor: no such node")

	// ErrNodeExists is returned when creating a node that is already present.
	ErrNodeExists = errors.New("arbor: node already exists")

	// ErrNotEmpty is returned when deleting a node that still has children.
	ErrNotEmpty = errors.New("arbor: node has children")

	// ErrConnectivity is returned when the session to the store is lost or unreachable.
	ErrConnectivity = errors.New("arbor: connectivity failure")

	// ErrTimeout is returned when a session could not be confirmed in time.
	ErrTimeout = errors.New("arbor: timed out waiting for session")

	// ErrClosed is returned by operations on a released session.
	ErrClosed = errors.New("arbor: session closed")

	// ErrInvalidPath is returned for malformed node paths or path segments.
	ErrInvalidPath = errors.New("arbor: invalid path")
)

// Kind classifies an error returned by a Client or by the tree algorithms.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnectivity
	KindNoNode
	KindNodeExists
	KindNotEmpty
	KindTimeout
	KindClosed
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindNoNode:
		return "no-node"
	case KindNodeExists:
		return "node-exists"
	case KindNotEmpty:
		return "not-empty"
	case KindTimeout:
		return "timeout"
	case KindClosed:
		return "closed"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// KindOf reports the Kind of err. A nil error has KindUnknown.
// Context deadline errors count as timeouts.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNoNode):
		return KindNoNode
	case errors.Is(err, ErrNodeExists):
		return KindNodeExists
	case errors.Is(err, ErrNotEmpty):
		return KindNotEmpty
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrClosed):
		return KindClosed
	case errors.Is(err, ErrInvalidPath):
		return KindInvalid
	case errors.Is(err, ErrConnectivity):
		return KindConnectivity
	default:
		return KindUnknown
	}
}
