// Package stream provides DynamoDB Streams handlers for the dynamotree node
// table.
//
// The node table must have a stream enabled (dynamotree.CreateTable uses
// KEYS_ONLY). [Handler.HandleOrphanSweep] reacts to REMOVE records: unless
// the removed node has been recreated in the meantime, every node still
// stored under its path is deleted recursively. Replays and concurrent
// sweeps are harmless because recursive deletion treats already-missing
// nodes as deleted.
package stream
