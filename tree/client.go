package tree

import "context"

// Client exposes the node primitives of a coordination store.
// Implementations must be safe for concurrent use.
type Client interface {
	// Exists reports whether the node at path is present.
	Exists(ctx context.Context, path string) (bool, error)

	// Create creates a permanent node at path holding data.
	// Returns ErrNodeExists if the node is present and ErrNoNode if its parent is not.
	Create(ctx context.Context, path string, data []byte) error

	// Delete removes the node at path regardless of its version.
	// Returns ErrNoNode if absent and ErrNotEmpty if it has children.
	Delete(ctx context.Context, path string) error

	// Children returns the names of the direct children of path.
	// Returns ErrNoNode if path is absent.
	Children(ctx context.Context, path string) ([]string, error)

	// Data returns the payload of the node at path, which may be nil.
	// Returns ErrNoNode if path is absent.
	Data(ctx context.Context, path string) ([]byte, error)
}

// Session is a Client bound to a live connection that must be released.
type Session interface {
	Client

	// Close releases the connection. Calls after the first are no-ops.
	Close() error
}
