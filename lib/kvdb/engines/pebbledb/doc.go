// Package pebbledb adapts an LSM storage engine
// (github.com/cockroachdb/pebble) behind the kvdb.Store contract.
//
// Write transactions are staged in an indexed batch, whose reads observe
// the batch's own writes and deletions before the committed state — the
// contract's read-your-writes and tombstone semantics come from pebble
// natively. Commit applies the whole batch atomically with a synced WAL
// write. Read transactions run against a pebble snapshot, a stable view
// for the callback's entire duration.
//
// Pebble allows concurrent batches, so the adapter serializes write
// transactions itself to honor the one-writer discipline of the contract.
// Note that pebble's Open creates missing directories rather than failing;
// callers that need a failing Open on unusable paths should use the boltdb
// engine.
package pebbledb
