package dynamotree

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CreateTable creates the node table with a keys-only stream, then waits up to
// wait for it to become active. An existing table is left as is.
func CreateTable(ctx context.Context, client *dynamodb.Client, config Config, wait time.Duration) error {
	config.validate()

	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(config.NodeTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrParentPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(attrName), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrParentPK), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrName), AttributeType: types.ScalarAttributeTypeS},
		},
		StreamSpecification: &types.StreamSpecification{
			StreamEnabled:  aws.Bool(true),
			StreamViewType: types.StreamViewTypeKeysOnly,
		},
		BillingMode: types.BillingModePayPerRequest,
	})

	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create table %s: %w", config.NodeTable, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(config.NodeTable),
	}, wait); err != nil {
		return fmt.Errorf("wait for table %s: %w", config.NodeTable, err)
	}
	return nil
}

// DeleteTable removes the node table.
func DeleteTable(ctx context.Context, client *dynamodb.Client, config Config) error {
	config.validate()
	_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(config.NodeTable),
	})
	if err != nil {
		return fmt.Errorf("delete table %s: %w", config.NodeTable, err)
	}
	return nil
}
