package boltdb

import (
	"sync"
	"time"

	"github.com/ValentinKolb/tKV/lib/kvdb"
	bolt "go.etcd.io/bbolt"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// fileMode is the permission the backing file is created with.
	fileMode = 0600

	// lockTimeout bounds how long Open waits for the exclusive file lock
	// held by another process before failing with BackendError.
	lockTimeout = 1 * time.Second
)

// bucketName is the single bucket all entries live in. The store imposes no
// layout beyond key/value byte-sequence semantics, so one flat namespace
// is enough.
var bucketName = []byte("kv")

// --------------------------------------------------------------------------
// Core boltdb adapter structure
// --------------------------------------------------------------------------

// boltImpl adapts a memory-mapped B-tree file database (bbolt) behind the
// kvdb.Store contract. The wrapped engine owns its own page format, locking
// and recovery; this adapter only maps the contract onto bbolt's native
// transaction primitives and translates native errors into the kvdb
// taxonomy.
type boltImpl struct {
	mu sync.RWMutex // guards db across Open/Close
	db *bolt.DB
}

// NewBoltStore creates a new bbolt-backed engine. The returned store is
// unusable until Open succeeds.
//
// Thread-safety: the returned store is safe for concurrent use. bbolt
// natively serializes write transactions and gives read transactions an
// MVCC snapshot that never blocks writers.
func NewBoltStore() kvdb.Store {
	return &boltImpl{}
}

// handle returns the open database or a BackendError.
func (s *boltImpl) handle() (*bolt.DB, error) {
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

// Open exclusively acquires the backing file at path, creating it if
// absent. An unusable path (e.g. a missing parent directory) yields a
// BackendError whose message carries the native OS diagnostic.
func (s *boltImpl) Open(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return kvdb.MakeError(kvdb.BackendError, "store is already open")
	}

	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return kvdb.MakeError(kvdb.BackendError, err.Error())
	}

	// Ensure the bucket exists so every later transaction can rely on it.
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return kvdb.MakeError(kvdb.BackendError, err.Error())
	}

	s.db = db
	return nil
}

// Close releases the backing file and its lock.
func (s *boltImpl) Close() error {
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
func (s *boltImpl) SupportsFeature(feature kvdb.Feature) bool {
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
func (s *boltImpl) Read(key []byte) ([]byte, error) {
	var value []byte
	err := s.ReadTransaction(func(txn kvdb.Reader) error {
		var err error
		value, err = txn.Read(key)
		return err
	})
	return value, err
}

// Write stores value under key as an atomic single-operation transaction.
func (s *boltImpl) Write(key, value []byte) error {
	return s.WriteTransaction(func(txn kvdb.Transaction) error {
		return txn.Write(key, value)
	})
}

// Remove deletes key as an atomic single-operation transaction.
func (s *boltImpl) Remove(key []byte) error {
	return s.WriteTransaction(func(txn kvdb.Transaction) error {
		return txn.Remove(key)
	})
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// WriteTransaction maps the contract onto a native bbolt update: fn's error
// rolls the native transaction back and is returned unchanged; a native
// commit failure is returned as BackendError in place of success.
func (s *boltImpl) WriteTransaction(fn func(txn kvdb.Transaction) error) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	var cbErr error
	err = db.Update(func(tx *bolt.Tx) error {
		cbErr = fn(&boltTxn{bucket: tx.Bucket(bucketName)})
		return cbErr
	})
	if err == nil {
		return nil
	}
	if err == cbErr {
		// The callback failed: bbolt rolled back, the error passes through
		// identity-preserved.
		return err
	}
	return kvdb.MakeError(kvdb.BackendError, err.Error())
}

// ReadTransaction runs fn against a native bbolt view: a stable MVCC
// snapshot that cannot persist any mutation.
func (s *boltImpl) ReadTransaction(fn func(txn kvdb.Reader) error) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	var cbErr error
	err = db.View(func(tx *bolt.Tx) error {
		cbErr = fn(&boltTxn{bucket: tx.Bucket(bucketName)})
		return cbErr
	})
	if err == nil {
		return nil
	}
	if err == cbErr {
		return err
	}
	return kvdb.MakeError(kvdb.BackendError, err.Error())
}

// --------------------------------------------------------------------------
// Transaction Handle
// --------------------------------------------------------------------------

// boltTxn wraps one native bbolt transaction's bucket. bbolt gives write
// transactions read-your-writes and tombstone semantics natively, so the
// handle only copies values (bbolt buffers are only valid inside the
// transaction) and translates errors.
type boltTxn struct {
	bucket *bolt.Bucket
}

func (t *boltTxn) Read(key []byte) ([]byte, error) {
	value := t.bucket.Get(key)
	if value == nil {
		return nil, kvdb.MakeError(kvdb.KeyError, "Key Not found")
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (t *boltTxn) Write(key, value []byte) error {
	// bbolt requires the value to stay valid until commit; stage a copy so
	// the caller may reuse its buffer.
	staged := make([]byte, len(value))
	copy(staged, value)

	if err := t.bucket.Put(key, staged); err != nil {
		return kvdb.MakeError(kvdb.BackendError, err.Error())
	}
	return nil
}

func (t *boltTxn) Remove(key []byte) error {
	// Delete of an absent key is a no-op for bbolt, matching the contract.
	if err := t.bucket.Delete(key); err != nil {
		return kvdb.MakeError(kvdb.BackendError, err.Error())
	}
	return nil
}
