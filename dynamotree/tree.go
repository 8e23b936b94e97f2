// Package dynamotree stores a coordination tree in a DynamoDB table.
//
// Every node is one item keyed by its parent's (optionally sharded) path and
// its own name, so the children of a node share a partition key. Existence
// checks, payload reads and child listings all read the base table with
// strongly consistent reads.
//
// Creating a node checks that its parent exists in the same transaction.
// Deleting a node first checks for children and then deletes it with a
// condition on its existence; a child created between those two calls can
// be orphaned. The stream package sweeps such orphans.
package dynamotree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/arbor/internal/shard"
	"github.com/jacentio/arbor/tree"
)

// API is the subset of *dynamodb.Client used by Tree.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	dynamodb.QueryAPIClient
}

// Tree implements tree.Session on DynamoDB.
type Tree struct {
	client API
	config Config
	logger *slog.Logger
}

// New creates a Tree using client.
func New(client API, config Config, logger *slog.Logger) *Tree {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Tree{
		client: client,
		config: config,
		logger: logger,
	}
}

// Exists implements tree.Client.
func (t *Tree) Exists(ctx context.Context, path string) (bool, error) {
	if path == tree.Root {
		return true, nil
	}
	result, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(t.config.NodeTable),
		Key:                  nodeKey(path, t.config.NumShards),
		ConsistentRead:       aws.Bool(true),
		ProjectionExpression: aws.String("#path"),
		ExpressionAttributeNames: map[string]string{
			"#path": attrPath,
		},
	})
	if err != nil {
		return false, connectivity(path, err)
	}
	return result.Item != nil, nil
}

// Create implements tree.Client. The parent's existence and the node's
// absence are checked in one transaction.
func (t *Tree) Create(ctx context.Context, path string, data []byte) error {
	if path == tree.Root {
		return fmt.Errorf("%w: %s", tree.ErrNodeExists, path)
	}

	parent := tree.Parent(path)
	name := tree.Base(path)
	item, err := marshalNode(nodeRecord{
		Path:      path,
		ParentPK:  shard.ParentPK(parent, name, t.config.NumShards),
		Name:      name,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("marshal node %s: %w", path, err)
	}

	items := []types.TransactWriteItem{}

	// Track item indices for error mapping
	parentCheckIndex := -1
	if parent != tree.Root {
		parentCheckIndex = len(items)
		items = append(items, types.TransactWriteItem{
			ConditionCheck: &types.ConditionCheck{
				TableName:           aws.String(t.config.NodeTable),
				Key:                 nodeKey(parent, t.config.NumShards),
				ConditionExpression: aws.String("attribute_exists(#path)"),
				ExpressionAttributeNames: map[string]string{
					"#path": attrPath,
				},
			},
		})
	}

	putIndex := len(items)
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(t.config.NodeTable),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(#path)"),
			ExpressionAttributeNames: map[string]string{
				"#path": attrPath,
			},
		},
	})

	_, err = t.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if isTransactionConflict(err) {
		return t.resolveConflict(ctx, path, err)
	}
	return mapCreateTransactionError(path, err, parentCheckIndex, putIndex)
}

// resolveConflict decides the outcome of a create that collided with another
// transaction on the same items. If the node now exists a concurrent creator
// won and the create reports ErrNodeExists.
func (t *Tree) resolveConflict(ctx context.Context, path string, cause error) error {
	exists, err := t.Exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		t.logger.Debug("create lost race to concurrent creator", "path", path)
		return fmt.Errorf("%w: %s", tree.ErrNodeExists, path)
	}
	return connectivity(path, cause)
}

// Delete implements tree.Client. Any version is deleted; nodes with children
// are refused with ErrNotEmpty.
func (t *Tree) Delete(ctx context.Context, path string) error {
	if path == tree.Root {
		return fmt.Errorf("%w: cannot delete the root", tree.ErrInvalidPath)
	}

	hasChildren, err := t.hasChildren(ctx, path)
	if err != nil {
		return err
	}
	if hasChildren {
		return fmt.Errorf("%w: %s", tree.ErrNotEmpty, path)
	}

	_, err = t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(t.config.NodeTable),
		Key:                 nodeKey(path, t.config.NumShards),
		ConditionExpression: aws.String("attribute_exists(#path)"),
		ExpressionAttributeNames: map[string]string{
			"#path": attrPath,
		},
	})

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return fmt.Errorf("%w: %s", tree.ErrNoNode, path)
	}
	if err != nil {
		return connectivity(path, err)
	}
	return nil
}

// Children implements tree.Client. Names are returned sorted.
func (t *Tree) Children(ctx context.Context, path string) ([]string, error) {
	exists, err := t.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", tree.ErrNoNode, path)
	}

	names, err := t.queryChildren(ctx, path, 0)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	sort.Strings(names)
	return names, nil
}

// Data implements tree.Client.
func (t *Tree) Data(ctx context.Context, path string) ([]byte, error) {
	if path == tree.Root {
		return nil, nil
	}
	result, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.config.NodeTable),
		Key:            nodeKey(path, t.config.NumShards),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, connectivity(path, err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%w: %s", tree.ErrNoNode, path)
	}
	rec, err := unmarshalNode(result.Item)
	if err != nil {
		return nil, fmt.Errorf("unmarshal node %s: %w", path, err)
	}
	return rec.Data, nil
}

// Close implements tree.Session. The HTTP client holds no session.
func (t *Tree) Close() error {
	return nil
}

func (t *Tree) hasChildren(ctx context.Context, path string) (bool, error) {
	names, err := t.queryChildren(ctx, path, 1)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// queryChildren collects child names of path from every shard. A positive
// limit stops each shard after that many names.
func (t *Tree) queryChildren(ctx context.Context, path string, limit int32) ([]string, error) {
	pks := shard.ParentPKs(path, t.config.NumShards)

	// Fast path for single shard (default)
	if len(pks) == 1 {
		return t.queryShard(ctx, pks[0], limit)
	}

	// Multi-shard fan-out
	var mu sync.Mutex
	var all []string
	var wg sync.WaitGroup
	errs := make(chan error, len(pks))

	for _, pk := range pks {
		wg.Add(1)
		go func(pk string) {
			defer wg.Done()

			names, err := t.queryShard(ctx, pk, limit)
			if err != nil {
				errs <- err
				return
			}

			mu.Lock()
			all = append(all, names...)
			mu.Unlock()
		}(pk)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return all, nil
}

func (t *Tree) queryShard(ctx context.Context, pk string, limit int32) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(t.config.NodeTable),
		ConsistentRead:         aws.Bool(true),
		KeyConditionExpression: aws.String("#parent_pk = :pk"),
		ProjectionExpression:   aws.String("#name"),
		ExpressionAttributeNames: map[string]string{
			"#parent_pk": attrParentPK,
			"#name":      attrName,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	var names []string
	paginator := dynamodb.NewQueryPaginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, connectivity(pk, err)
		}
		for _, item := range page.Items {
			if v, ok := item[attrName].(*types.AttributeValueMemberS); ok {
				names = append(names, v.Value)
			}
		}
		if limit > 0 && len(names) >= int(limit) {
			break
		}
	}
	return names, nil
}

// mapCreateTransactionError maps DynamoDB transaction errors for Create.
// parentCheckIndex is the index of the parent check item (-1 if none).
// putIndex is the index of the node put item.
func mapCreateTransactionError(path string, err error, parentCheckIndex, putIndex int) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				if i == parentCheckIndex {
					return fmt.Errorf("%w: parent of %s", tree.ErrNoNode, path)
				}
				if i == putIndex {
					return fmt.Errorf("%w: %s", tree.ErrNodeExists, path)
				}
			}
		}
	}

	return connectivity(path, err)
}

// isTransactionConflict reports whether err was caused by a concurrent
// transaction touching the same items.
func isTransactionConflict(err error) bool {
	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return false
	}
	for _, reason := range txErr.CancellationReasons {
		if reason.Code != nil && *reason.Code == "TransactionConflict" {
			return true
		}
	}
	return false
}

// connectivity classifies an unexpected DynamoDB failure.
func connectivity(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", tree.ErrConnectivity, path, err)
}

// OrphansOf lists the names of nodes still indexed under path without
// requiring path itself to exist. After path has been deleted, any names
// returned are orphans.
func (t *Tree) OrphansOf(ctx context.Context, path string) ([]string, error) {
	names, err := t.queryChildren(ctx, path, 0)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
