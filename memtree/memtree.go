// Package memtree provides an in-memory coordination tree implementing
// tree.Session. It follows the same node rules as ZooKeeper: parents must
// exist before children are created and only leaf nodes can be deleted.
package memtree

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jacentio/arbor/tree"
)

// Op names a primitive for fault injection and call accounting.
type Op string

const (
	OpExists   Op = "exists"
	OpCreate   Op = "create"
	OpDelete   Op = "delete"
	OpChildren Op = "children"
	OpData     Op = "data"
)

// FaultFunc is consulted before every primitive. A non-nil error is returned
// to the caller and the primitive is not applied. It runs under the tree's
// lock and must not call back into the Tree.
type FaultFunc func(op Op, path string) error

type znode struct {
	data     []byte
	children map[string]*znode
}

func newZnode(data []byte) *znode {
	return &znode{
		data:     cloneBytes(data),
		children: map[string]*znode{},
	}
}

// Tree is an in-memory tree. The zero value is not usable; use New.
type Tree struct {
	mu     sync.Mutex
	root   *znode
	fault  FaultFunc
	calls  map[Op]int
	closed bool
}

// New returns an empty tree holding only the root node.
func New() *Tree {
	return &Tree{
		root:  newZnode(nil),
		calls: map[Op]int{},
	}
}

// SetFault installs f as the fault hook. A nil f removes it.
func (t *Tree) SetFault(f FaultFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fault = f
}

// Calls returns how many times op was invoked, including failed calls.
func (t *Tree) Calls(op Op) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[op]
}

// ResetCalls zeroes the call counters.
func (t *Tree) ResetCalls() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = map[Op]int{}
}

// Paths returns every node path below the root in sorted order.
func (t *Tree) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var paths []string
	var walk func(prefix string, n *znode)
	walk = func(prefix string, n *znode) {
		for name, child := range n.children {
			p := tree.Join(prefix, name)
			paths = append(paths, p)
			walk(p, child)
		}
	}
	walk(tree.Root, t.root)
	sort.Strings(paths)
	return paths
}

// Exists implements tree.Client.
func (t *Tree) Exists(_ context.Context, path string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.enter(OpExists, path); err != nil {
		return false, err
	}
	return t.lookup(path) != nil, nil
}

// Create implements tree.Client.
func (t *Tree) Create(_ context.Context, path string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.enter(OpCreate, path); err != nil {
		return err
	}
	if path == tree.Root {
		return fmt.Errorf("%w: %s", tree.ErrNodeExists, path)
	}
	parent := t.lookup(tree.Parent(path))
	if parent == nil {
		return fmt.Errorf("%w: parent of %s", tree.ErrNoNode, path)
	}
	name := tree.Base(path)
	if _, ok := parent.children[name]; ok {
		return fmt.Errorf("%w: %s", tree.ErrNodeExists, path)
	}
	parent.children[name] = newZnode(data)
	return nil
}

// Delete implements tree.Client.
func (t *Tree) Delete(_ context.Context, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.enter(OpDelete, path); err != nil {
		return err
	}
	if path == tree.Root {
		return fmt.Errorf("%w: cannot delete the root", tree.ErrInvalidPath)
	}
	parent := t.lookup(tree.Parent(path))
	if parent == nil {
		return fmt.Errorf("%w: %s", tree.ErrNoNode, path)
	}
	name := tree.Base(path)
	n, ok := parent.children[name]
	if !ok {
		return fmt.Errorf("%w: %s", tree.ErrNoNode, path)
	}
	if len(n.children) > 0 {
		return fmt.Errorf("%w: %s", tree.ErrNotEmpty, path)
	}
	delete(parent.children, name)
	return nil
}

// Children implements tree.Client. Names are returned sorted.
func (t *Tree) Children(_ context.Context, path string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.enter(OpChildren, path); err != nil {
		return nil, err
	}
	n := t.lookup(path)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", tree.ErrNoNode, path)
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Data implements tree.Client.
func (t *Tree) Data(_ context.Context, path string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.enter(OpData, path); err != nil {
		return nil, err
	}
	n := t.lookup(path)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", tree.ErrNoNode, path)
	}
	return cloneBytes(n.data), nil
}

// Close implements tree.Session. Later primitives fail with tree.ErrClosed.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// enter records the call and runs the fault hook. Callers hold t.mu.
func (t *Tree) enter(op Op, path string) error {
	t.calls[op]++
	if t.closed {
		return tree.ErrClosed
	}
	if err := tree.ValidatePath(path); err != nil {
		return err
	}
	if t.fault != nil {
		return t.fault(op, path)
	}
	return nil
}

// lookup walks to path. Callers hold t.mu.
func (t *Tree) lookup(path string) *znode {
	n := t.root
	if path == tree.Root {
		return n
	}
	for _, segment := range strings.Split(path[1:], "/") {
		n = n.children[segment]
		if n == nil {
			return nil
		}
	}
	return n
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
