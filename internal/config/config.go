// Package config loads the file configuration shared by the arbor tools.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"gopkg.in/yaml.v3"

	"github.com/jacentio/arbor/dynamotree"
	"github.com/jacentio/arbor/props"
	"github.com/jacentio/arbor/zkclient"
)

// Backend names.
const (
	BackendZooKeeper = "zookeeper"
	BackendDynamoDB  = "dynamodb"
)

// FileConfig is the structure of a configuration file.
type FileConfig struct {
	Backend   string          `yaml:"backend" json:"backend"`
	RootPath  string          `yaml:"root_path" json:"root_path"`
	ZooKeeper ZooKeeperConfig `yaml:"zookeeper" json:"zookeeper"`
	DynamoDB  DynamoDBConfig  `yaml:"dynamodb" json:"dynamodb"`
}

// ZooKeeperConfig configures the ZooKeeper backend.
type ZooKeeperConfig struct {
	Connect        string `yaml:"connect" json:"connect"`
	SessionTimeout string `yaml:"session_timeout" json:"session_timeout"`
	ConnectTimeout string `yaml:"connect_timeout" json:"connect_timeout"`
}

// DynamoDBConfig configures the DynamoDB backend.
type DynamoDBConfig struct {
	Table    string `yaml:"table" json:"table"`
	Shards   int    `yaml:"shards" json:"shards"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Region   string `yaml:"region" json:"region"`
	Profile  string `yaml:"profile" json:"profile"`
}

// Default returns the configuration used when no file is given: a local
// ZooKeeper and the default root path.
func Default() *FileConfig {
	return &FileConfig{
		Backend:  BackendZooKeeper,
		RootPath: props.DefaultRootPath,
		ZooKeeper: ZooKeeperConfig{
			Connect: "127.0.0.1:2181",
		},
	}
}

// LoadFile reads a YAML or JSON configuration file, chosen by extension.
// Values missing from the file keep their defaults.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	cfg := Default()
	cfg.Merge(&loaded)
	return cfg, nil
}

// Merge applies non-zero values from source into c.
func (c *FileConfig) Merge(source *FileConfig) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}
	if source.RootPath != "" {
		c.RootPath = source.RootPath
	}

	if source.ZooKeeper.Connect != "" {
		c.ZooKeeper.Connect = source.ZooKeeper.Connect
	}
	if source.ZooKeeper.SessionTimeout != "" {
		c.ZooKeeper.SessionTimeout = source.ZooKeeper.SessionTimeout
	}
	if source.ZooKeeper.ConnectTimeout != "" {
		c.ZooKeeper.ConnectTimeout = source.ZooKeeper.ConnectTimeout
	}

	if source.DynamoDB.Table != "" {
		c.DynamoDB.Table = source.DynamoDB.Table
	}
	if source.DynamoDB.Shards > 0 {
		c.DynamoDB.Shards = source.DynamoDB.Shards
	}
	if source.DynamoDB.Endpoint != "" {
		c.DynamoDB.Endpoint = source.DynamoDB.Endpoint
	}
	if source.DynamoDB.Region != "" {
		c.DynamoDB.Region = source.DynamoDB.Region
	}
	if source.DynamoDB.Profile != "" {
		c.DynamoDB.Profile = source.DynamoDB.Profile
	}
}

// ToZooKeeperConfig converts the ZooKeeper section to a zkclient.Config.
func (c *FileConfig) ToZooKeeperConfig() (zkclient.Config, error) {
	cfg := zkclient.ParseConnectString(c.ZooKeeper.Connect)

	if c.ZooKeeper.SessionTimeout != "" {
		d, err := time.ParseDuration(c.ZooKeeper.SessionTimeout)
		if err != nil {
			return cfg, fmt.Errorf("invalid session timeout: %w", err)
		}
		cfg.SessionTimeout = d
	}
	if c.ZooKeeper.ConnectTimeout != "" {
		d, err := time.ParseDuration(c.ZooKeeper.ConnectTimeout)
		if err != nil {
			return cfg, fmt.Errorf("invalid connect timeout: %w", err)
		}
		cfg.ConnectTimeout = d
	}
	return cfg, nil
}

// ToDynamoDBConfig converts the DynamoDB section to a dynamotree.Config and
// the AWS load options it implies.
func (c *FileConfig) ToDynamoDBConfig() (dynamotree.Config, []func(*awsconfig.LoadOptions) error) {
	cfg := dynamotree.DefaultConfig()
	if c.DynamoDB.Table != "" {
		cfg.NodeTable = c.DynamoDB.Table
	}
	if c.DynamoDB.Shards > 0 {
		cfg.NumShards = c.DynamoDB.Shards
	}
	cfg.Endpoint = c.DynamoDB.Endpoint

	var loadFns []func(*awsconfig.LoadOptions) error
	if c.DynamoDB.Region != "" {
		loadFns = append(loadFns, awsconfig.WithRegion(c.DynamoDB.Region))
	}
	if c.DynamoDB.Profile != "" {
		loadFns = append(loadFns, awsconfig.WithSharedConfigProfile(c.DynamoDB.Profile))
	}
	return cfg, loadFns
}

// Factory builds a props.Factory for the configured backend.
func (c *FileConfig) Factory(logger *slog.Logger) (*props.Factory, error) {
	var dialer props.Dialer

	switch c.Backend {
	case BackendZooKeeper:
		zkCfg, err := c.ToZooKeeperConfig()
		if err != nil {
			return nil, err
		}
		dialer = zkclient.NewDialer(zkCfg, logger)
	case BackendDynamoDB:
		ddbCfg, loadFns := c.ToDynamoDBConfig()
		dialer = dynamotree.NewDialer(ddbCfg, logger, loadFns...)
	default:
		return nil, fmt.Errorf("unsupported backend: %q", c.Backend)
	}

	return props.NewFactory(dialer).
		WithRootPath(c.RootPath).
		WithLogger(logger), nil
}
