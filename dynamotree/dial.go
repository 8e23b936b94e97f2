package dynamotree

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/arbor/props"
	"github.com/jacentio/arbor/tree"
)

// Dialer builds DynamoDB-backed sessions from the default AWS credential
// chain. It implements props.Dialer.
type Dialer struct {
	config  Config
	logger  *slog.Logger
	loadFns []func(*awsconfig.LoadOptions) error
}

// NewDialer creates a Dialer. loadFns are passed to config.LoadDefaultConfig,
// e.g. config.WithRegion or config.WithSharedConfigProfile.
func NewDialer(config Config, logger *slog.Logger, loadFns ...func(*awsconfig.LoadOptions) error) *Dialer {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialer{
		config:  config,
		logger:  logger,
		loadFns: loadFns,
	}
}

// NewFactory returns a props.Factory storing sets in the DynamoDB table
// named by config.
func NewFactory(config Config, loadFns ...func(*awsconfig.LoadOptions) error) *props.Factory {
	return props.NewFactory(NewDialer(config, nil, loadFns...))
}

// Client loads AWS configuration and returns a DynamoDB client honouring
// the configured endpoint override.
func (d *Dialer) Client(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, d.loadFns...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", tree.ErrConnectivity, err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if d.config.Endpoint != "" {
			o.BaseEndpoint = aws.String(d.config.Endpoint)
		}
	}), nil
}

// Dial implements props.Dialer. DynamoDB is reached over stateless HTTP, so
// there is no session handshake to wait for.
func (d *Dialer) Dial(ctx context.Context) (tree.Session, error) {
	client, err := d.Client(ctx)
	if err != nil {
		return nil, err
	}
	return New(client, d.config, d.logger), nil
}
