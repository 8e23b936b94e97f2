package dynamotree

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/arbor/internal/shard"
	"github.com/jacentio/arbor/tree"
)

// Attribute names of a node item.
const (
	attrPath      = "path"
	attrParentPK  = "parent_pk"
	attrName      = "name"
	attrData      = "data"
	attrCreatedAt = "created_at"
)

// nodeRecord is the item stored for every node. The payload is kept out of
// the struct so that a nil payload (no "data" attribute) stays distinct from
// an empty one.
type nodeRecord struct {
	Path      string `dynamodbav:"path"`
	ParentPK  string `dynamodbav:"parent_pk"`
	Name      string `dynamodbav:"name"`
	CreatedAt string `dynamodbav:"created_at"`

	Data []byte `dynamodbav:"-"`
}

// marshalNode converts a record to a DynamoDB item.
func marshalNode(rec nodeRecord) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, err
	}
	if rec.Data != nil {
		item[attrData] = &types.AttributeValueMemberB{Value: rec.Data}
	}
	return item, nil
}

// unmarshalNode converts a DynamoDB item to a record.
func unmarshalNode(item map[string]types.AttributeValue) (nodeRecord, error) {
	var rec nodeRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return rec, err
	}
	if v, ok := item[attrData].(*types.AttributeValueMemberB); ok {
		rec.Data = v.Value
		if rec.Data == nil {
			rec.Data = []byte{}
		}
	}
	return rec, nil
}

// nodeKey returns the primary key of the node at path: the sharded path of
// its parent and its own name.
func nodeKey(path string, numShards int) map[string]types.AttributeValue {
	name := tree.Base(path)
	return map[string]types.AttributeValue{
		attrParentPK: &types.AttributeValueMemberS{Value: shard.ParentPK(tree.Parent(path), name, numShards)},
		attrName:     &types.AttributeValueMemberS{Value: name},
	}
}
