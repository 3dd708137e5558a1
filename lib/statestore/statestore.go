package statestore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/ValentinKolb/tKV/lib/kvdb"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// SchemaVersion tags every stored snapshot. Load rejects snapshots
	// written by a newer schema instead of misinterpreting them.
	SchemaVersion = 1

	// DefaultMaxStoreCount bounds how many times state may be saved
	// between ResetStoreCount calls. An agent crash-looping through the
	// same states keeps saving, so a runaway loop hits this bound and
	// surfaces as an error instead of spinning forever.
	DefaultMaxStoreCount = 30

	// storeCountKey tracks the save counter. Kept out of the caller's key
	// namespace by the prefix.
	storeCountKey = "tkv-internal/state-store-count"
)

// --------------------------------------------------------------------------
// Envelope
// --------------------------------------------------------------------------

// envelope is the persisted form of one state snapshot.
type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// --------------------------------------------------------------------------
// State Store
// --------------------------------------------------------------------------

// Store persists JSON-encoded, schema-versioned agent state on top of any
// kvdb.Store. Each Save commits the snapshot and the save counter in one
// write transaction, so a snapshot and its bookkeeping can never diverge.
//
// A read-through cache keeps hot Load paths off the engine; it is updated
// write-through on Save and invalidated on Remove. cacheMu orders each
// cache update with the engine operation it reflects, so a Remove that
// interleaves with a Save can never leave a deleted snapshot behind in the
// cache. Cache hits take no lock.
type Store struct {
	kv            kvdb.Store
	cache         *xsync.MapOf[string, []byte]
	cacheMu       sync.Mutex
	maxStoreCount uint64
}

// New creates a state store over kv with the default save bound.
//
// Thread-safety: safe for concurrent use; writes are serialized by the
// underlying engine's write transaction discipline.
func New(kv kvdb.Store) *Store {
	return &Store{
		kv:            kv,
		cache:         xsync.NewMapOf[string, []byte](),
		maxStoreCount: DefaultMaxStoreCount,
	}
}

// NewWithMaxStoreCount creates a state store with a custom save bound.
// A bound of 0 means unbounded.
func NewWithMaxStoreCount(kv kvdb.Store, maxStoreCount uint64) *Store {
	s := New(kv)
	s.maxStoreCount = maxStoreCount
	return s
}

// Save marshals v and commits it under name together with the incremented
// save counter, all-or-nothing. It fails with ConditionError once the save
// bound is reached, without touching the stored state.
func (s *Store) Save(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return kvdb.MakeError(kvdb.ConditionError, fmt.Sprintf("marshaling state %q: %v", name, err))
	}
	raw, err := json.Marshal(envelope{Version: SchemaVersion, Data: data})
	if err != nil {
		return kvdb.MakeError(kvdb.ConditionError, fmt.Sprintf("marshaling state %q: %v", name, err))
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	err = s.kv.WriteTransaction(func(txn kvdb.Transaction) error {
		count, err := readStoreCount(txn)
		if err != nil {
			return err
		}
		if s.maxStoreCount > 0 && count >= s.maxStoreCount {
			return kvdb.MakeError(kvdb.ConditionError,
				fmt.Sprintf("reached maximum number of state saves (%d)", s.maxStoreCount))
		}

		if err := txn.Write([]byte(name), raw); err != nil {
			return err
		}
		return txn.Write([]byte(storeCountKey), []byte(strconv.FormatUint(count+1, 10)))
	})
	if err != nil {
		return err
	}

	s.cache.Store(name, raw)
	return nil
}

// Load reads the snapshot stored under name into v. A missing snapshot
// yields KeyError; a snapshot written by a newer schema yields
// ConditionError.
func (s *Store) Load(name string, v any) error {
	raw, ok := s.cache.Load(name)
	if !ok {
		// The fill takes cacheMu so a concurrent Remove cannot slip
		// between the engine read and the cache insert.
		s.cacheMu.Lock()
		var err error
		raw, err = s.kv.Read([]byte(name))
		if err != nil {
			s.cacheMu.Unlock()
			return err
		}
		s.cache.Store(name, raw)
		s.cacheMu.Unlock()
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return kvdb.MakeError(kvdb.ConditionError, fmt.Sprintf("unmarshaling state %q: %v", name, err))
	}
	if env.Version > SchemaVersion {
		return kvdb.MakeError(kvdb.ConditionError,
			fmt.Sprintf("state %q has unsupported schema version %d", name, env.Version))
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return kvdb.MakeError(kvdb.ConditionError, fmt.Sprintf("unmarshaling state %q: %v", name, err))
	}
	return nil
}

// Remove deletes the snapshot stored under name. Removing an absent
// snapshot is not an error.
func (s *Store) Remove(name string) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if err := s.kv.Remove([]byte(name)); err != nil {
		return err
	}
	s.cache.Delete(name)
	return nil
}

// --------------------------------------------------------------------------
// Save Counter
// --------------------------------------------------------------------------

// StoreCount returns how many times Save has committed since the last
// ResetStoreCount.
func (s *Store) StoreCount() (uint64, error) {
	var count uint64
	err := s.kv.ReadTransaction(func(txn kvdb.Reader) error {
		var err error
		count, err = readStoreCount(txn)
		return err
	})
	return count, err
}

// ResetStoreCount zeroes the save counter. The agent calls this when it
// reaches a stable state, e.g. after an update is committed, so regular
// progress never trips the save bound.
func (s *Store) ResetStoreCount() error {
	return s.kv.Remove([]byte(storeCountKey))
}

// readStoreCount parses the counter out of the given view; an absent
// counter reads as zero.
func readStoreCount(r kvdb.Reader) (uint64, error) {
	raw, err := r.Read([]byte(storeCountKey))
	if kvdb.IsKeyError(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, kvdb.MakeError(kvdb.ConditionError, fmt.Sprintf("corrupt state store counter: %v", err))
	}
	return count, nil
}

// Close closes the underlying engine.
func (s *Store) Close() error {
	s.cache.Clear()
	return s.kv.Close()
}
