package props

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jacentio/arbor/tree"
)

// Dialer establishes a session with a coordination store.
type Dialer interface {
	// Dial returns a connected session, or an error if the session could not
	// be confirmed.
	Dial(ctx context.Context) (tree.Session, error)
}

// DialerFunc adapts a function to a Dialer.
type DialerFunc func(ctx context.Context) (tree.Session, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context) (tree.Session, error) {
	return f(ctx)
}

// Factory creates connected Storage instances.
type Factory struct {
	dialer Dialer
	config Config
	logger *slog.Logger
}

// NewFactory creates a Factory dialing with dialer and storing sets under
// DefaultRootPath.
func NewFactory(dialer Dialer) *Factory {
	return &Factory{
		dialer: dialer,
		config: DefaultConfig(),
	}
}

// WithRootPath overrides the root path of created storages.
func (f *Factory) WithRootPath(rootPath string) *Factory {
	f.config.RootPath = rootPath
	return f
}

// WithLogger sets the logger handed to created storages.
func (f *Factory) WithLogger(logger *slog.Logger) *Factory {
	f.logger = logger
	return f
}

// Config returns the configuration created storages will use.
func (f *Factory) Config() Config {
	c := f.config
	c.validate()
	return c
}

// Create dials a new session and wraps it in a Storage. The caller owns the
// Storage and must Close it.
func (f *Factory) Create(ctx context.Context) (*Storage, error) {
	cfg := f.Config()
	if err := tree.ValidatePath(cfg.RootPath); err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	session, err := f.dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	storage, err := New(session, cfg, WithLogger(f.logger))
	if err != nil {
		session.Close()
		return nil, err
	}
	return storage, nil
}
