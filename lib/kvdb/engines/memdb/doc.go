// Package memdb implements the pure in-process reference engine for the
// kvdb.Store contract. It fully implements commit, rollback and isolation
// without relying on any external storage engine, and is the behavioral
// baseline the durable adapters are held to by the shared conformance
// suite.
//
// The package focuses on:
//   - A committed base store owned exclusively by one engine instance
//   - A per-transaction staging overlay (pending values and tombstones)
//     that is merged atomically on commit and discarded on rollback
//   - Read-your-writes visibility inside an in-flight write transaction
//   - Stable snapshots for read transactions
//
// Key Components:
//
//   - memdbImpl: the engine. The base store is a map guarded by an RWMutex;
//     a commit holds the write lock while merging, so concurrent readers
//     see all of a transaction's writes or none of them. A separate mutex
//     serializes write transactions: a second write transaction blocks
//     until the first completes.
//
//   - memTxn: the write transaction handle. Reads check the overlay first
//     (tombstones shadow committed entries), then fall through to the base
//     store. The handle is invalidated when its callback returns, so a
//     leaked handle cannot touch a later transaction's state.
//
//   - memSnapshot: the read transaction handle, holding a shallow clone of
//     the base store taken at transaction start. Cloning is cheap because
//     committed values are immutable — they are only ever replaced, never
//     mutated in place.
//
// Open is a no-op for this engine; data does not survive Close.
package memdb
