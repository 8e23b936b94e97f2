// Package shard provides partition key generation for the DynamoDB child index.
package shard

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// MaxShards is the largest supported shard count.
const MaxShards = 256

// ParentPK computes the sharded partition key under which a child node is
// indexed below parentPath.
// With numShards=1, every child goes to shard "00".
// With numShards>1, children are spread across shards by a hash of their name.
func ParentPK(parentPath, childName string, numShards int) string {
	if numShards <= 1 {
		return fmt.Sprintf("%s#00", parentPath)
	}
	h := fnv.New32a()
	h.Write([]byte(childName))
	shard := h.Sum32() % uint32(numShards)
	return fmt.Sprintf("%s#%02x", parentPath, shard)
}

// ParentPKs returns every partition key that may hold children of parentPath,
// in shard order.
func ParentPKs(parentPath string, numShards int) []string {
	if numShards < 1 {
		numShards = 1
	}
	pks := make([]string, numShards)
	for i := range pks {
		pks[i] = fmt.Sprintf("%s#%02x", parentPath, i)
	}
	return pks
}

// ParentPath returns the parent path encoded in a key produced by ParentPK.
func ParentPath(pk string) string {
	if pos := strings.LastIndex(pk, "#"); pos >= 0 {
		return pk[:pos]
	}
	return pk
}
