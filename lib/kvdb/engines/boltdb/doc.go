// Package boltdb adapts a memory-mapped B-tree file database
// (go.etcd.io/bbolt) behind the kvdb.Store contract.
//
// The wrapped engine owns durability entirely: page format, file locking
// and crash recovery are bbolt's responsibility. This adapter maps the
// contract's transactions onto bbolt's native Update/View primitives and
// translates native errors into the kvdb taxonomy at the boundary, e.g.
// an OS "no such file or directory" during Open becomes a BackendError
// carrying that text.
//
// Open exclusively acquires the backing file (flock), creating it if
// absent; a second process opening the same file fails after a bounded
// lock timeout instead of hanging. bbolt serializes write transactions
// natively and gives read transactions an MVCC snapshot, so the contract's
// write/read disciplines hold without extra locking here.
package boltdb
