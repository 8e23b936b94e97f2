package zkclient

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/jacentio/arbor/props"
	"github.com/jacentio/arbor/tree"
)

// Dialer opens ZooKeeper sessions. It implements props.Dialer.
type Dialer struct {
	config Config
	logger *slog.Logger
}

// NewDialer creates a Dialer for config.
func NewDialer(config Config, logger *slog.Logger) *Dialer {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialer{
		config: config,
		logger: logger,
	}
}

// NewFactory returns a props.Factory connecting to the ensemble named by
// connectString, for example "zk1:2181,zk2:2181". Use WithRootPath on the
// result to store sets somewhere other than props.DefaultRootPath.
func NewFactory(connectString string) *props.Factory {
	return props.NewFactory(NewDialer(ParseConnectString(connectString), nil))
}

// Dial connects and blocks until the ensemble confirms a session, the
// connect timeout elapses (tree.ErrTimeout) or ctx is done. A connection
// that does not reach a session is closed before returning.
func (d *Dialer) Dial(ctx context.Context) (tree.Session, error) {
	conn, events, err := zk.Connect(d.config.Servers, d.config.SessionTimeout,
		zk.WithLogger(zkLogger{logger: d.logger}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tree.ErrConnectivity, err)
	}

	timer := time.NewTimer(d.config.ConnectTimeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				conn.Close()
				return nil, fmt.Errorf("%w: event stream closed before session", tree.ErrConnectivity)
			}
			switch ev.State {
			case zk.StateHasSession:
				client := newClient(conn, d.config.Chroot, d.logger)
				go client.watchSession(events)
				d.logger.Debug("zookeeper session established",
					"servers", d.config.Servers,
					"sessionTimeout", d.config.SessionTimeout,
				)
				return client, nil
			case zk.StateAuthFailed:
				conn.Close()
				return nil, fmt.Errorf("%w: authentication failed", tree.ErrConnectivity)
			}
		case <-timer.C:
			conn.Close()
			return nil, fmt.Errorf("%w: no session with %v after %s",
				tree.ErrTimeout, d.config.Servers, d.config.ConnectTimeout)
		case <-ctx.Done():
			conn.Close()
			return nil, ctx.Err()
		}
	}
}

// watchSession logs session state changes until the client is closed.
func (c *Client) watchSession(events <-chan zk.Event) {
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != zk.EventSession {
				continue
			}
			switch ev.State {
			case zk.StateDisconnected, zk.StateExpired:
				c.logger.Warn("zookeeper session state changed", "state", ev.State.String())
			default:
				c.logger.Debug("zookeeper session state changed", "state", ev.State.String())
			}
		}
	}
}

// zkLogger routes the library's printf logging into slog.
type zkLogger struct {
	logger *slog.Logger
}

func (l zkLogger) Printf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "zookeeper")
}
