// Package zkclient connects arbor to a ZooKeeper ensemble.
package zkclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-zookeeper/zk"

	"github.com/jacentio/arbor/tree"
)

// flagPersistent creates a permanent, non-sequential node.
const flagPersistent int32 = 0

// conn is the subset of *zk.Conn used by Client.
type conn interface {
	Exists(path string) (bool, *zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Delete(path string, version int32) error
	Children(path string) ([]string, *zk.Stat, error)
	Get(path string) ([]byte, *zk.Stat, error)
	Close()
}

// Client is a tree.Session backed by a ZooKeeper connection.
type Client struct {
	conn   conn
	chroot string
	acl    []zk.ACL
	logger *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(c conn, chroot string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		conn:   c,
		chroot: chroot,
		acl:    zk.WorldACL(zk.PermAll),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Exists implements tree.Client.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	if err := c.enter(ctx); err != nil {
		return false, err
	}
	ok, _, err := c.conn.Exists(c.full(path))
	if err != nil {
		return false, c.mapError(path, err)
	}
	return ok, nil
}

// Create implements tree.Client. Nodes are persistent and world-writable.
func (c *Client) Create(ctx context.Context, path string, data []byte) error {
	if err := c.enter(ctx); err != nil {
		return err
	}
	_, err := c.conn.Create(c.full(path), data, flagPersistent, c.acl)
	return c.mapError(path, err)
}

// Delete implements tree.Client with "any version" semantics.
func (c *Client) Delete(ctx context.Context, path string) error {
	if err := c.enter(ctx); err != nil {
		return err
	}
	return c.mapError(path, c.conn.Delete(c.full(path), -1))
}

// Children implements tree.Client.
func (c *Client) Children(ctx context.Context, path string) ([]string, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	children, _, err := c.conn.Children(c.full(path))
	if err != nil {
		return nil, c.mapError(path, err)
	}
	return children, nil
}

// Data implements tree.Client.
func (c *Client) Data(ctx context.Context, path string) ([]byte, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	data, _, err := c.conn.Get(c.full(path))
	if err != nil {
		return nil, c.mapError(path, err)
	}
	return data, nil
}

// Close ends the session. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
	return nil
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// enter rejects calls on a closed client or a finished context. The
// underlying connection has no per-call cancellation.
func (c *Client) enter(ctx context.Context) error {
	if c.isClosed() {
		return tree.ErrClosed
	}
	return ctx.Err()
}

// full maps a tree path onto the ensemble's namespace.
func (c *Client) full(path string) string {
	if c.chroot == "" {
		return path
	}
	if path == tree.Root {
		return c.chroot
	}
	return c.chroot + path
}

// mapError translates ZooKeeper errors into the tree error taxonomy.
func (c *Client) mapError(path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, zk.ErrNoNode):
		return fmt.Errorf("%w: %s", tree.ErrNoNode, path)
	case errors.Is(err, zk.ErrNodeExists):
		return fmt.Errorf("%w: %s", tree.ErrNodeExists, path)
	case errors.Is(err, zk.ErrNotEmpty):
		return fmt.Errorf("%w: %s", tree.ErrNotEmpty, path)
	case errors.Is(err, zk.ErrInvalidPath), errors.Is(err, zk.ErrBadArguments):
		return fmt.Errorf("%w: %s: %v", tree.ErrInvalidPath, path, err)
	case c.isClosed() && (errors.Is(err, zk.ErrClosing) || errors.Is(err, zk.ErrConnectionClosed)):
		return tree.ErrClosed
	default:
		return fmt.Errorf("%w: %s: %v", tree.ErrConnectivity, path, err)
	}
}
