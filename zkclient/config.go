package zkclient

import (
	"strings"
	"time"
)

const (
	// DefaultSessionTimeout is the session timeout negotiated with the ensemble.
	DefaultSessionTimeout = 10 * time.Second

	// DefaultConnectTimeout bounds the wait for the first session.
	DefaultConnectTimeout = 10 * time.Second
)

// Config holds configuration for a ZooKeeper session.
type Config struct {
	// Servers lists the ensemble members as host:port. A port-less entry
	// uses 2181.
	Servers []string

	// Chroot, if set, is prefixed to every path sent to the ensemble.
	// Example: "/apps/billing"
	Chroot string

	// SessionTimeout is the requested session timeout.
	// Default: 10s
	SessionTimeout time.Duration

	// ConnectTimeout is how long Dial waits for the session to be
	// established before failing with tree.ErrTimeout.
	// Default: 10s
	ConnectTimeout time.Duration
}

// DefaultConfig returns a configuration for a local single-node ensemble.
func DefaultConfig() Config {
	return Config{
		Servers:        []string{"127.0.0.1:2181"},
		SessionTimeout: DefaultSessionTimeout,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// ParseConnectString splits a ZooKeeper connect string such as
// "zk1:2181,zk2:2181/apps/billing" into a Config.
func ParseConnectString(connectString string) Config {
	cfg := DefaultConfig()
	cfg.Servers = nil

	hosts := strings.TrimSpace(connectString)
	if pos := strings.Index(hosts, "/"); pos >= 0 {
		cfg.Chroot = hosts[pos:]
		hosts = hosts[:pos]
	}
	for _, server := range strings.Split(hosts, ",") {
		if server = strings.TrimSpace(server); server != "" {
			cfg.Servers = append(cfg.Servers, server)
		}
	}
	cfg.validate()
	return cfg
}

// validate ensures config values are usable.
func (c *Config) validate() {
	if len(c.Servers) == 0 {
		c.Servers = []string{"127.0.0.1:2181"}
	}
	c.Chroot = strings.TrimRight(c.Chroot, "/")
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
}
