// Package kvdb provides a transactional key-value storage abstraction with
// interchangeable backing engines. It defines the Store interface that all
// engines implement, the transaction handle types, and the classified error
// model every engine funnels its failures through.
//
// The package focuses on:
//   - A unified contract for key-value operations and transactions
//   - All-or-nothing commit semantics with read-your-writes visibility
//     inside an in-flight write transaction
//   - A single error taxonomy (KeyError, BackendError, ConditionError)
//     unifying heterogeneous backend failures
//   - Feature discovery through capability flags
//
// Key Components:
//
//   - Store Interface: the core interface that all engine implementations
//     must satisfy. It provides direct operations (Read, Write, Remove),
//     callback-scoped transactions (WriteTransaction, ReadTransaction),
//     and lifecycle operations (Open, Close).
//
//   - Transaction / Reader Handles: a write transaction callback receives a
//     Transaction handle whose reads observe the transaction's own staged
//     writes before commit. A read transaction callback receives a Reader,
//     a distinct type without Write/Remove, so mutation inside a read
//     transaction cannot compile.
//
//   - Error Model: Error carries a Kind and a diagnostic message. Callers
//     branch only on the kind; KeyError (lookup miss) is expected and
//     recoverable, BackendError is an engine failure surfaced verbatim,
//     and ConditionError wraps opaque native failure conditions.
//
// Guarantees common to all engines:
//   - Atomicity: at any observation point the committed state reflects all
//     of a committed transaction's staged writes or none of them.
//   - Isolation: a staging overlay is never visible to any other
//     transaction; a read transaction observes a stable view for its
//     entire duration.
//   - Serial writers: at most one write transaction is in flight per
//     engine instance; a second one blocks until the first completes.
//   - Resource release: the overlay and any backend lock are released on
//     every exit path from the callback, including panics.
//
// Related Packages:
//
// The engines/memdb package provides the pure in-process reference engine.
// The engines/boltdb package adapts a memory-mapped B-tree file database
// (go.etcd.io/bbolt) behind the same contract. The engines/pebbledb package
// does the same for an LSM engine (github.com/cockroachdb/pebble).
//
// The testing package (github.com/ValentinKolb/tKV/lib/kvdb/testing)
// provides a standardized conformance suite and benchmarks that every
// engine runs via a factory function.
package kvdb
