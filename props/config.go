package props

import "strings"

// DefaultRootPath is where property sets live unless configured otherwise.
const DefaultRootPath = "/etc/property-sets"

// Config holds configuration for a Storage.
type Config struct {
	// RootPath is the node under which each property set is a child.
	// Default: "/etc/property-sets"
	RootPath string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		RootPath: DefaultRootPath,
	}
}

// validate normalises config values.
func (c *Config) validate() {
	if c.RootPath == "" {
		c.RootPath = DefaultRootPath
	}
	if !strings.HasPrefix(c.RootPath, "/") {
		c.RootPath = "/" + c.RootPath
	}
	for len(c.RootPath) > 1 && strings.HasSuffix(c.RootPath, "/") {
		c.RootPath = strings.TrimSuffix(c.RootPath, "/")
	}
}
