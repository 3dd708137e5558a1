package memdb

import (
	"sync"

	"github.com/ValentinKolb/tKV/lib/kvdb"
)

// --------------------------------------------------------------------------
// Core memdb structure
// --------------------------------------------------------------------------

// memdbImpl is the pure in-process reference engine. The base store is a
// plain map guarded by an RWMutex: commits take the write lock, so any
// concurrent reader observes either the fully pre-commit or the fully
// post-commit state, never an interleaved one.
type memdbImpl struct {
	mu      sync.RWMutex      // guards data (held exclusively during commit)
	writeMu sync.Mutex        // serializes write transactions
	data    map[string][]byte // the committed base store

	closedMu sync.Mutex
	closed   bool
}

// NewMemStore creates a new in-memory engine with an empty base store.
//
// Thread-safety: the returned store is safe for concurrent use. Reads and
// read transactions never block each other; write transactions are
// serialized (a second one blocks until the first completes).
func NewMemStore() kvdb.Store {
	return &memdbImpl{
		data: make(map[string][]byte),
	}
}

// errClosed is the failure every operation on a closed engine reports.
func errClosed() error {
	return kvdb.MakeError(kvdb.BackendError, "store is closed")
}

// isClosed reports whether Close has been called.
func (m *memdbImpl) isClosed() bool {
	m.closedMu.Lock()
	defer m.closedMu.Unlock()
	return m.closed
}

// --------------------------------------------------------------------------
// Direct Operations
// --------------------------------------------------------------------------

// Read returns the committed value for key straight from the base store.
//
// Thread-safety: may be called concurrently with any other operation.
func (m *memdbImpl) Read(key []byte) ([]byte, error) {
	if m.isClosed() {
		return nil, errClosed()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[string(key)]
	if !ok {
		return nil, kvdb.MakeError(kvdb.KeyError, "Key Not found")
	}

	// Copy so callers can never alias the base store.
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Write stores value under key as an atomic single-operation transaction.
func (m *memdbImpl) Write(key, value []byte) error {
	return m.WriteTransaction(func(txn kvdb.Transaction) error {
		return txn.Write(key, value)
	})
}

// Remove deletes key as an atomic single-operation transaction. Removing
// an absent key is not an error.
func (m *memdbImpl) Remove(key []byte) error {
	return m.WriteTransaction(func(txn kvdb.Transaction) error {
		return txn.Remove(key)
	})
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// WriteTransaction runs fn against a fresh staging overlay and commits the
// overlay into the base store if and only if fn returns nil. On any other
// exit path (error or panic) the overlay is discarded untouched.
//
// Thread-safety: holders of writeMu are the only writers, so overlays of
// two uncommitted transactions can never interleave against the same base.
func (m *memdbImpl) WriteTransaction(fn func(txn kvdb.Transaction) error) error {
	if m.isClosed() {
		return errClosed()
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	// Close may have won the race for writeMu between the check above and
	// the lock; committing would land in a released base store.
	if m.isClosed() {
		return errClosed()
	}

	txn := &memTxn{
		db:      m,
		overlay: make(map[string]overlayEntry),
	}
	// Rollback is the default outcome: the overlay is dropped with the
	// handle unless commit below is reached.
	defer txn.invalidate()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.commit()
}

// ReadTransaction runs fn against a stable snapshot of the base store taken
// at transaction start. The base store is never mutated, regardless of what
// fn does; fn's error is returned unchanged.
//
// Thread-safety: read transactions never block on, nor are blocked by,
// each other or plain reads.
func (m *memdbImpl) ReadTransaction(fn func(txn kvdb.Reader) error) error {
	if m.isClosed() {
		return errClosed()
	}

	// A shallow clone is a consistent snapshot: committed values are never
	// mutated in place, only replaced wholesale by a later commit.
	m.mu.RLock()
	snapshot := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		snapshot[k] = v
	}
	m.mu.RUnlock()

	return fn(&memSnapshot{data: snapshot})
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Open is a no-op for the in-memory engine: there is no backing storage to
// initialize and the path is ignored.
func (m *memdbImpl) Open(_ string) error {
	if m.isClosed() {
		return errClosed()
	}
	return nil
}

// Close releases the base store. Further operations fail with BackendError.
//
// Thread-safety: Close waits for an in-flight write transaction to finish
// before releasing the base store, so its commit never targets a released
// map. closedMu is dropped first; the transaction's callback may read
// through the engine, and reads take closedMu.
func (m *memdbImpl) Close() error {
	m.closedMu.Lock()
	if m.closed {
		m.closedMu.Unlock()
		return nil
	}
	m.closed = true
	m.closedMu.Unlock()

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}

// SupportsFeature checks if this engine supports a specific feature.
func (m *memdbImpl) SupportsFeature(feature kvdb.Feature) bool {
	supported := kvdb.FeatureStableReads | kvdb.FeatureSerialWriters
	return supported&feature == feature
}
