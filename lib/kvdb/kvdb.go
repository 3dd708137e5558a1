package kvdb

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMemDB    Implementation = "memdb"
	ImplBoltDB   Implementation = "boltdb"
	ImplPebbleDB Implementation = "pebbledb"
)

// Feature represents store features as bit flags
type Feature uint64

const (
	FeatureDurable       Feature = 1 << iota // Data survives Close and process restart
	FeatureOpen                              // Open(path) performs real backend initialization
	FeatureStableReads                       // Read transactions observe a stable snapshot
	FeatureSerialWriters                     // A second write transaction blocks until the first completes
)

func (f Feature) String() string {
	switch f {
	case FeatureDurable:
		return "Durable"
	case FeatureOpen:
		return "Open"
	case FeatureStableReads:
		return "StableReads"
	case FeatureSerialWriters:
		return "SerialWriters"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Transaction Handles
// --------------------------------------------------------------------------

// Reader is the read-only view of a store. It is the full capability set
// handed to read-transaction callbacks: Write and Remove are excluded at
// the type level, so persisted mutation inside a read transaction is a
// compile-time error rather than a silent no-op.
type Reader interface {
	// Read returns the value stored under key, as a copy that is safe to
	// retain and modify. If the key is absent from the transaction's view,
	// the error has kind KeyError.
	Read(key []byte) (value []byte, err error)
}

// Transaction is the handle bound to one in-flight write transaction.
// It must not be retained beyond the callback it was created for.
//
// Reads observe the transaction's own uncommitted writes (and removals)
// before falling through to the committed state as of transaction start.
type Transaction interface {
	Reader

	// Write stages value under key. Nothing is persisted until commit.
	// Overwrites any previously staged or committed value.
	Write(key, value []byte) (err error)

	// Remove stages a deletion of key. Nothing is persisted until commit.
	// Staging a deletion of an absent key is not an error.
	Remove(key []byte) (err error)
}

// --------------------------------------------------------------------------
// Store Interface
// --------------------------------------------------------------------------

// Store is the contract every storage engine implements. Callers hold only
// this interface, never a concrete engine type, so a durable engine can be
// swapped in without code changes.
//
// Keys and values are opaque byte sequences; equality is byte-exact and
// values are stored and returned verbatim. All operations are synchronous
// and complete (or fail) before returning.
type Store interface {
	Reader

	// Write durably stores value under key as an atomic single-operation
	// transaction, overwriting any existing value.
	Write(key, value []byte) (err error)

	// Remove deletes key as an atomic single-operation transaction. It
	// succeeds even if the key was already absent, unless the backend
	// reports a lower-level failure.
	Remove(key []byte) (err error)

	// WriteTransaction begins a write transaction and invokes fn with a
	// handle scoped to it. If fn returns nil the staged state is committed
	// atomically: after the call every staged write and removal is visible,
	// or (on commit failure) none of them are. If fn returns an error the
	// transaction rolls back and that exact error is returned unchanged.
	// A commit failure is returned in place of success.
	//
	// At most one write transaction is in flight per engine instance; a
	// second caller blocks until the first completes.
	WriteTransaction(fn func(txn Transaction) error) (err error)

	// ReadTransaction invokes fn with a consistent read-only view of the
	// store as of transaction start. The base state is never mutated,
	// regardless of what fn does. fn's error is returned unchanged.
	// Read transactions never block one another.
	ReadTransaction(fn func(txn Reader) error) (err error)

	// Open performs backend-specific initialization for the given path.
	// It is a no-op for engines without backing storage. Engines with a
	// backing file must acquire it exclusively, creating it if absent, and
	// fail with a BackendError carrying the native OS diagnostic when the
	// path is unusable.
	Open(path string) (err error)

	// Close releases engine resources. Operations on a closed store fail
	// with BackendError.
	Close() (err error)

	// SupportsFeature checks if the engine supports the specified feature.
	// Multiple features can be checked at once using bitwise OR.
	SupportsFeature(feature Feature) (ok bool)
}
