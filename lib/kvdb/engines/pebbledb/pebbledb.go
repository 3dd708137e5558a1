package pebbledb

import (
	"errors"
	"sync"

	"github.com/ValentinKolb/tKV/lib/kvdb"
	"github.com/cockroachdb/pebble"
)

// --------------------------------------------------------------------------
// Core pebbledb adapter structure
// --------------------------------------------------------------------------

// pebbleImpl adapts an LSM storage engine (pebble) behind the kvdb.Store
// contract. Write transactions map onto indexed batches (atomic commit,
// read-your-writes), read transactions onto snapshots (stable view).
//
// Unlike bbolt, pebble's Open creates missing directories, so the failing
// Open contract is exercised by the boltdb engine only.
type pebbleImpl struct {
	mu sync.RWMutex // guards db across Open/Close
	db *pebble.DB

	// pebble allows concurrent batches; the contract allows at most one
	// write transaction in flight per engine instance, so we serialize
	// them ourselves.
	writeMu sync.Mutex
}

// NewPebbleStore creates a new pebble-backed engine. The returned store is
// unusable until Open succeeds.
func NewPebbleStore() kvdb.Store {
	return &pebbleImpl{}
}

func (s *pebbleImpl) handle() (*pebble.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, kvdb.MakeError(kvdb.BackendError, "store is not open")
	}
	return s.db, nil
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Open acquires the pebble directory at path, creating it if absent.
func (s *pebbleImpl) Open(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return kvdb.MakeError(kvdb.BackendError, "store is already open")
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return kvdb.MakeError(kvdb.BackendError, err.Error())
	}

	s.db = db
	return nil
}

// Close releases the pebble directory and its lock.
func (s *pebbleImpl) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil

	if err := db.Close(); err != nil {
		return kvdb.MakeError(kvdb.BackendError, err.Error())
	}
	return nil
}

// SupportsFeature checks if this engine supports a specific feature.
func (s *pebbleImpl) SupportsFeature(feature kvdb.Feature) bool {
	supported := kvdb.FeatureDurable |
		kvdb.FeatureOpen |
		kvdb.FeatureStableReads |
		kvdb.FeatureSerialWriters
	return supported&feature == feature
}

// --------------------------------------------------------------------------
// Direct Operations
// --------------------------------------------------------------------------

// Read returns the committed value for key.
func (s *pebbleImpl) Read(key []byte) ([]byte, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	value, closer, err := db.Get(key)
	if err != nil {
		return nil, translateGetError(err)
	}
	defer closer.Close()

	// The buffer is only valid until the closer is released.
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Write stores value under key, synced to disk before returning.
func (s *pebbleImpl) Write(key, value []byte) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	if err := db.Set(key, value, pebble.Sync); err != nil {
		return kvdb.MakeError(kvdb.BackendError, err.Error())
	}
	return nil
}

// Remove deletes key. Removing an absent key writes a harmless tombstone
// and is not an error.
func (s *pebbleImpl) Remove(key []byte) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	if err := db.Delete(key, pebble.Sync); err != nil {
		return kvdb.MakeError(kvdb.BackendError, err.Error())
	}
	return nil
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// WriteTransaction stages fn's writes in an indexed batch and commits it
// atomically if fn returns nil. The batch is closed on every exit path.
func (s *pebbleImpl) WriteTransaction(fn func(txn kvdb.Transaction) error) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	batch := db.NewIndexedBatch()
	defer batch.Close()

	if err := fn(&pebbleTxn{batch: batch}); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return kvdb.MakeError(kvdb.BackendError, err.Error())
	}
	return nil
}

// ReadTransaction runs fn against a pebble snapshot taken at transaction
// start; the view is stable for the callback's entire duration.
func (s *pebbleImpl) ReadTransaction(fn func(txn kvdb.Reader) error) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	snapshot := db.NewSnapshot()
	defer snapshot.Close()

	return fn(&pebbleSnapshot{snapshot: snapshot})
}

// --------------------------------------------------------------------------
// Transaction Handles
// --------------------------------------------------------------------------

// pebbleTxn wraps one indexed batch. Batch reads observe the batch's own
// staged writes and deletions before falling through to the committed
// state, which is exactly the overlay semantics of the contract.
type pebbleTxn struct {
	batch *pebble.Batch
}

func (t *pebbleTxn) Read(key []byte) ([]byte, error) {
	value, closer, err := t.batch.Get(key)
	if err != nil {
		return nil, translateGetError(err)
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (t *pebbleTxn) Write(key, value []byte) error {
	if err := t.batch.Set(key, value, nil); err != nil {
		return kvdb.MakeError(kvdb.BackendError, err.Error())
	}
	return nil
}

func (t *pebbleTxn) Remove(key []byte) error {
	if err := t.batch.Delete(key, nil); err != nil {
		return kvdb.MakeError(kvdb.BackendError, err.Error())
	}
	return nil
}

// pebbleSnapshot wraps one native snapshot for read transactions.
type pebbleSnapshot struct {
	snapshot *pebble.Snapshot
}

func (s *pebbleSnapshot) Read(key []byte) ([]byte, error) {
	value, closer, err := s.snapshot.Get(key)
	if err != nil {
		return nil, translateGetError(err)
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// translateGetError maps pebble's lookup errors onto the kvdb taxonomy.
func translateGetError(err error) error {
	if errors.Is(err, pebble.ErrNotFound) {
		return kvdb.MakeError(kvdb.KeyError, "Key Not found")
	}
	return kvdb.MakeError(kvdb.BackendError, err.Error())
}
