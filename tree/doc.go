// Package tree provides recursive algorithms over a hierarchical coordination
// store such as ZooKeeper.
//
// The store is reached through a [Client] exposing five node primitives.
// The algorithms in this package are stateless and hold no locks; they rely
// on the store making each single-node create or delete atomic. A recursive
// operation over many nodes is NOT atomic as a whole.
//
// # Operations
//
//   - [Exists] reports presence, propagating connectivity failures
//   - [CreateIfAbsent] creates a node, absorbing "already exists"
//   - [CreateRecursive] creates missing ancestors as empty nodes first
//   - [ChildrenOrEmpty] lists children, treating a missing node as empty
//   - [DeleteRecursive] removes a node and its descendants leaves-first
//
// # Partial failure
//
// Any primitive failure other than the two tolerated conditions
// ([ErrNodeExists] on create, [ErrNoNode] on delete) aborts the walk where it
// happened. Nodes created or deleted before that point stay created or
// deleted; nothing is rolled back.
//
// # Errors
//
// Clients report failures with the sentinels of this package, wrapped with
// %w so that [KindOf] and errors.Is classify them:
//
//   - [ErrNoNode] - node does not exist
//   - [ErrNodeExists] - node already exists
//   - [ErrNotEmpty] - node still has children
//   - [ErrConnectivity] - session lost or store unreachable
//   - [ErrTimeout] - session not confirmed in time
//   - [ErrClosed] - session already released
//   - [ErrInvalidPath] - malformed path
package tree
