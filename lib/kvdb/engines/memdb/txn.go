package memdb

import (
	"github.com/ValentinKolb/tKV/lib/kvdb"
)

// --------------------------------------------------------------------------
// Staging Overlay
// --------------------------------------------------------------------------

// overlayEntry is one staged mutation: either a pending value or a
// tombstone marking the key for deletion on commit. A tombstone is distinct
// from "no entry" — it shadows a committed value during overlay reads.
type overlayEntry struct {
	value     []byte
	tombstone bool
}

// memTxn is the handle bound to one in-flight write transaction. It holds
// a reference to the engine's base store plus an exclusive staging overlay.
// The handle must not outlive the callback it was created for; after the
// callback returns the engine invalidates it.
type memTxn struct {
	db      *memdbImpl
	overlay map[string]overlayEntry
}

// Read looks up key in the overlay first: a tombstone yields KeyError, a
// pending value is returned immediately (read-your-writes). Otherwise the
// lookup falls through to the committed base store.
func (t *memTxn) Read(key []byte) ([]byte, error) {
	if t.overlay == nil {
		return nil, errHandleExpired()
	}

	if entry, ok := t.overlay[string(key)]; ok {
		if entry.tombstone {
			return nil, kvdb.MakeError(kvdb.KeyError, "Key Not found")
		}
		out := make([]byte, len(entry.value))
		copy(out, entry.value)
		return out, nil
	}

	return t.db.Read(key)
}

// Write stages value under key. The base store is untouched.
func (t *memTxn) Write(key, value []byte) error {
	if t.overlay == nil {
		return errHandleExpired()
	}

	staged := make([]byte, len(value))
	copy(staged, value)
	t.overlay[string(key)] = overlayEntry{value: staged}
	return nil
}

// Remove stages a tombstone for key. The base store is untouched.
func (t *memTxn) Remove(key []byte) error {
	if t.overlay == nil {
		return errHandleExpired()
	}

	t.overlay[string(key)] = overlayEntry{tombstone: true}
	return nil
}

// commit merges the overlay into the base store under the exclusive lock:
// pending values become stored entries, tombstones delete entries. Readers
// observe either the fully pre-commit or fully post-commit base store.
//
// The in-memory merge itself cannot fail; the error return exists so the
// engine propagates commit failures the same way durable backends do.
func (t *memTxn) commit() error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	for key, entry := range t.overlay {
		if entry.tombstone {
			delete(t.db.data, key)
		} else {
			t.db.data[key] = entry.value
		}
	}
	return nil
}

// invalidate discards the overlay and expires the handle, so a callback
// that leaked it cannot stage or read anything afterwards.
func (t *memTxn) invalidate() {
	t.overlay = nil
}

func errHandleExpired() error {
	return kvdb.MakeError(kvdb.BackendError, "transaction handle used outside its callback")
}

// --------------------------------------------------------------------------
// Read Snapshot
// --------------------------------------------------------------------------

// memSnapshot is the read-only handle for read transactions. It owns a
// stable view of the base store taken at transaction start, so concurrent
// commits cannot change what the callback observes mid-transaction.
type memSnapshot struct {
	data map[string][]byte
}

// Read returns the value for key as of transaction start.
func (s *memSnapshot) Read(key []byte) ([]byte, error) {
	value, ok := s.data[string(key)]
	if !ok {
		return nil, kvdb.MakeError(kvdb.KeyError, "Key Not found")
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}
