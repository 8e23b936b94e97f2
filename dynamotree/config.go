package dynamotree

import "github.com/jacentio/arbor/internal/shard"

// Config holds configuration for a DynamoDB-backed tree.
type Config struct {
	// NodeTable is the name of the node table (hash key "parent_pk",
	// range key "name").
	// Default: "arbor_nodes"
	NodeTable string

	// NumShards spreads the children of one node over several partition
	// keys. Listing children queries every shard in parallel. Every writer
	// and reader of a table must use the same value.
	// Default: 1 (single query)
	// Max: 256
	NumShards int

	// Endpoint overrides the DynamoDB endpoint, e.g. for DynamoDB Local.
	Endpoint string
}

// DefaultConfig returns sensible defaults for small trees.
func DefaultConfig() Config {
	return Config{
		NodeTable: "arbor_nodes",
		NumShards: 1,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.NodeTable == "" {
		c.NodeTable = "arbor_nodes"
	}
	if c.NumShards < 1 {
		c.NumShards = 1
	}
	if c.NumShards > shard.MaxShards {
		c.NumShards = shard.MaxShards
	}
}
