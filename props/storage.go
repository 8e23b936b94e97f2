package props

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jacentio/arbor/tree"
)

// Storage maps property sets onto a subtree of a coordination store.
// It is safe for concurrent use as long as its session is.
type Storage struct {
	session tree.Session
	config  Config
	logger  *slog.Logger

	closeOnce sync.Once
	closed    atomic.Bool
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for diagnostics. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Storage that owns session. The session must already be
// connected; Close releases it. The normalised root path must be a valid
// absolute path; otherwise New fails and the session is left open.
func New(session tree.Session, config Config, opts ...Option) (*Storage, error) {
	config.validate()
	if err := tree.ValidatePath(config.RootPath); err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	s := &Storage{
		session: session,
		config:  config,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RootPath returns the node under which property sets are stored.
func (s *Storage) RootPath() string {
	return s.config.RootPath
}

// Get reads the property set called name. The boolean is false, with a nil
// error, when no set of that name is persisted. A persisted set without
// properties is returned as an empty set.
//
// Properties whose node holds no payload, or disappears between listing and
// reading, are skipped.
func (s *Storage) Get(ctx context.Context, name string) (*PropertySet, bool, error) {
	path, err := s.setPath(name)
	if err != nil {
		return nil, false, err
	}

	children, err := s.session.Children(ctx, path)
	if errors.Is(err, tree.ErrNoNode) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", name, err)
	}

	set := NewPropertySet(name)
	for _, key := range children {
		data, err := s.session.Data(ctx, tree.Join(path, key))
		if errors.Is(err, tree.ErrNoNode) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("get %q: read %s: %w", name, key, err)
		}
		if data == nil {
			continue
		}
		set.Set(key, string(data))
	}
	return set, true, nil
}

// Store persists set, replacing any set of the same name. The existing
// subtree is deleted first; if that fails nothing is written. The set root is
// then recreated and one node is written per property, in key order.
//
// A failure while writing properties leaves the properties written so far in
// place and returns the error. There is no rollback.
func (s *Storage) Store(ctx context.Context, set *PropertySet) error {
	if set == nil {
		return ErrNilPropertySet
	}
	path, err := s.setPath(set.Name())
	if err != nil {
		return err
	}
	keys := set.Properties()
	for _, key := range keys {
		if err := tree.ValidateSegment(key); err != nil {
			return fmt.Errorf("store %q: %w: key %q: %v", set.Name(), ErrInvalidName, key, err)
		}
	}

	if err := tree.DeleteRecursive(ctx, s.session, path); err != nil {
		return fmt.Errorf("store %q: clear previous: %w", set.Name(), err)
	}

	if _, err := tree.CreateRecursive(ctx, s.session, path, []byte{}); err != nil {
		return fmt.Errorf("store %q: create set node: %w", set.Name(), err)
	}

	for i, key := range keys {
		value, _ := set.Property(key)
		if _, err := tree.CreateRecursive(ctx, s.session, tree.Join(path, key), []byte(value)); err != nil {
			s.logger.Warn("property set partially written",
				"set", set.Name(),
				"written", i,
				"total", len(keys),
				"error", err,
			)
			return fmt.Errorf("store %q: write %s: %w", set.Name(), key, err)
		}
	}

	s.logger.Debug("stored property set",
		"set", set.Name(),
		"path", path,
		"properties", len(keys),
	)
	return nil
}

// Delete removes the property set called name. Deleting a set that is not
// persisted succeeds without effect.
func (s *Storage) Delete(ctx context.Context, name string) error {
	path, err := s.setPath(name)
	if err != nil {
		return err
	}
	if err := tree.DeleteRecursive(ctx, s.session, path); err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	s.logger.Debug("deleted property set", "set", name, "path", path)
	return nil
}

// PropertySets returns the names of all persisted sets. When the root path
// does not exist the error is ErrRootNotFound, which callers can tell apart
// from an empty result.
func (s *Storage) PropertySets(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, tree.ErrClosed
	}
	names, err := s.session.Children(ctx, s.config.RootPath)
	if errors.Is(err, tree.ErrNoNode) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, s.config.RootPath)
	}
	if err != nil {
		return nil, fmt.Errorf("list property sets: %w", err)
	}
	return names, nil
}

// Close releases the session. It is safe to call more than once and never
// fails; errors from the session are logged.
func (s *Storage) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if err := s.session.Close(); err != nil {
			s.logger.Warn("failed to close session", "error", err)
		}
	})
	return nil
}

// setPath validates name and returns the path of its set node.
func (s *Storage) setPath(name string) (string, error) {
	if s.closed.Load() {
		return "", tree.ErrClosed
	}
	if err := tree.ValidateSegment(name); err != nil {
		return "", fmt.Errorf("%w: set %q: %v", ErrInvalidName, name, err)
	}
	return tree.Join(s.config.RootPath, name), nil
}
