package dynamotree

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeTable is an in-memory node table implementing API. It evaluates the
// condition expressions Tree issues. Strongly consistent base table queries
// see every write; eventually consistent or index queries read a replica
// that, while lagging is set, stops receiving writes.
type fakeTable struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	replica map[string]map[string]types.AttributeValue
	lagging bool

	// err, if set, is returned by every call.
	err error
	// txErrs are returned, in order, by TransactWriteItems before it
	// evaluates anything.
	txErrs []error

	transactions []*dynamodb.TransactWriteItemsInput
	queries      map[string]int
}

func newFakeTable() *fakeTable {
	return &fakeTable{
		items:   map[string]map[string]types.AttributeValue{},
		replica: map[string]map[string]types.AttributeValue{},
		queries: map[string]int{},
	}
}

func keyOf(key map[string]types.AttributeValue) string {
	var pk, name string
	if v, ok := key[attrParentPK].(*types.AttributeValueMemberS); ok {
		pk = v.Value
	}
	if v, ok := key[attrName].(*types.AttributeValueMemberS); ok {
		name = v.Value
	}
	return pk + "\x00" + name
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

// put stores item directly, bypassing conditions.
func (f *fakeTable) put(item map[string]types.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.write(keyOf(item), item)
}

// write stores or, for a nil item, removes key. Callers hold f.mu.
func (f *fakeTable) write(key string, item map[string]types.AttributeValue) {
	if item == nil {
		delete(f.items, key)
	} else {
		f.items[key] = copyItem(item)
	}
	if f.lagging {
		return
	}
	if item == nil {
		delete(f.replica, key)
	} else {
		f.replica[key] = copyItem(item)
	}
}

// setLagging freezes or, when turned off, catches up the replica.
func (f *fakeTable) setLagging(lagging bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lagging = lagging
	if !lagging {
		f.replica = map[string]map[string]types.AttributeValue{}
		for k, v := range f.items {
			f.replica[k] = copyItem(v)
		}
	}
}

func (f *fakeTable) has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if v, ok := item[attrPath].(*types.AttributeValueMemberS); ok && v.Value == path {
			return true
		}
	}
	return false
}

func (f *fakeTable) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: copyItem(f.items[keyOf(params.Key)])}, nil
}

func (f *fakeTable) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := keyOf(params.Key)
	if _, ok := f.items[key]; !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	f.write(key, nil)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeTable) TransactWriteItems(_ context.Context, params *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions = append(f.transactions, params)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.txErrs) > 0 {
		err := f.txErrs[0]
		f.txErrs = f.txErrs[1:]
		return nil, err
	}

	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, item := range params.TransactItems {
		reasons[i].Code = aws.String("None")
		switch {
		case item.ConditionCheck != nil:
			if _, ok := f.items[keyOf(item.ConditionCheck.Key)]; !ok {
				reasons[i].Code = aws.String("ConditionalCheckFailed")
				failed = true
			}
		case item.Put != nil:
			if _, ok := f.items[keyOf(item.Put.Item)]; ok {
				reasons[i].Code = aws.String("ConditionalCheckFailed")
				failed = true
			}
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, item := range params.TransactItems {
		if item.Put != nil {
			f.write(keyOf(item.Put.Item), item.Put.Item)
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeTable) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	pk := params.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	f.queries[pk]++

	source := f.replica
	if params.IndexName == nil && params.ConsistentRead != nil && *params.ConsistentRead {
		source = f.items
	}

	var out []map[string]types.AttributeValue
	for _, item := range source {
		if v, ok := item[attrParentPK].(*types.AttributeValueMemberS); !ok || v.Value != pk {
			continue
		}
		out = append(out, map[string]types.AttributeValue{attrName: item[attrName]})
		if params.Limit != nil && len(out) >= int(*params.Limit) {
			break
		}
	}
	return &dynamodb.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

var _ API = (*fakeTable)(nil)
