package tree

import (
	"context"
	"errors"
	"fmt"
)

// Outcome tags the result of an idempotent create.
type Outcome int

const (
	// Created means this call created the node.
	Created Outcome = iota

	// AlreadyPresent means the node existed, typically because a concurrent
	// creator won the race. The node was left untouched.
	AlreadyPresent
)

func (o Outcome) String() string {
	if o == Created {
		return "created"
	}
	return "already-present"
}

// Exists reports whether path is present. Connectivity failures are returned,
// never folded into false.
func Exists(ctx context.Context, c Client, path string) (bool, error) {
	return c.Exists(ctx, path)
}

// CreateIfAbsent creates path with data unless it already exists.
// ErrNodeExists is absorbed and reported as AlreadyPresent; every other
// failure, including ErrNoNode for a missing parent, is returned.
func CreateIfAbsent(ctx context.Context, c Client, path string, data []byte) (Outcome, error) {
	err := c.Create(ctx, path, data)
	if err == nil {
		return Created, nil
	}
	if errors.Is(err, ErrNodeExists) {
		return AlreadyPresent, nil
	}
	return AlreadyPresent, err
}

// CreateRecursive creates path with data, first creating every missing
// ancestor as an empty node. The root is assumed to exist.
//
// Each level is an idempotent create, so concurrent callers racing on the
// same path or its ancestors all succeed. Only the final create of path
// decides the returned Outcome. If an ancestor is removed by someone else
// between its creation and the retry, ErrNoNode is returned.
//
// On failure the ancestors created so far are left in place.
func CreateRecursive(ctx context.Context, c Client, path string, data []byte) (Outcome, error) {
	outcome, err := CreateIfAbsent(ctx, c, path, data)
	if !errors.Is(err, ErrNoNode) {
		return outcome, err
	}

	parent := Parent(path)
	if parent == Root {
		return outcome, err
	}
	if _, err := CreateRecursive(ctx, c, parent, nil); err != nil {
		return AlreadyPresent, fmt.Errorf("create parent %s: %w", parent, err)
	}
	return CreateIfAbsent(ctx, c, path, data)
}

// ChildrenOrEmpty lists the children of path, returning an empty slice
// rather than ErrNoNode when path does not exist.
func ChildrenOrEmpty(ctx context.Context, c Client, path string) ([]string, error) {
	children, err := c.Children(ctx, path)
	if errors.Is(err, ErrNoNode) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return children, nil
}

// DeleteRecursive removes path and everything beneath it, leaves first, so no
// node is deleted while it still has children. Children are removed one at a
// time. Deleting an absent path succeeds without effect, and a node removed
// concurrently by someone else counts as deleted.
//
// The first other failure aborts the walk: the subtrees removed before it stay
// removed and the rest of the subtree is left in place.
func DeleteRecursive(ctx context.Context, c Client, path string) error {
	children, err := ChildrenOrEmpty(ctx, c, path)
	if err != nil {
		return fmt.Errorf("list %s: %w", path, err)
	}

	for _, child := range children {
		if err := DeleteRecursive(ctx, c, Join(path, child)); err != nil {
			return err
		}
	}

	// Any version; a concurrent deleter may have beaten us to it.
	if err := c.Delete(ctx, path); err != nil && !errors.Is(err, ErrNoNode) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
