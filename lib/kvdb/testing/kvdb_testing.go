package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/tKV/lib/kvdb"
)

// StoreFactory is a function that creates a new, empty instance of a Store
// implementation. Durable engines use the passed testing handle for
// temporary directories and cleanup.
type StoreFactory func(t testing.TB) kvdb.Store

// RunStoreTests runs a comprehensive conformance suite for a Store
// implementation. Every engine must pass the full suite unchanged; engine
// specific behavior (Open failures, reopen persistence) belongs in the
// engine's own test files.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("ReadMissing", func(t *testing.T) {
			testReadMissing(t, factory(t))
		})

		t.Run("WriteReadRoundTrip", func(t *testing.T) {
			testWriteReadRoundTrip(t, factory(t))
		})

		t.Run("WriteRemoveRead", func(t *testing.T) {
			testWriteRemoveRead(t, factory(t))
		})

		t.Run("BinaryKeysAndValues", func(t *testing.T) {
			testBinaryKeysAndValues(t, factory(t))
		})

		t.Run("WriteTransactionCommit", func(t *testing.T) {
			testWriteTransactionCommit(t, factory(t))
		})

		t.Run("WriteTransactionRollback", func(t *testing.T) {
			testWriteTransactionRollback(t, factory(t))
		})

		t.Run("ReadYourWrites", func(t *testing.T) {
			testReadYourWrites(t, factory(t))
		})

		t.Run("TombstoneInTransaction", func(t *testing.T) {
			testTombstoneInTransaction(t, factory(t))
		})

		t.Run("AtomicCommit", func(t *testing.T) {
			testAtomicCommit(t, factory(t))
		})

		t.Run("ReadTransaction", func(t *testing.T) {
			testReadTransaction(t, factory(t))
		})

		t.Run("ReadTransactionFailure", func(t *testing.T) {
			testReadTransactionFailure(t, factory(t))
		})

		t.Run("ConcurrentReaders", func(t *testing.T) {
			testConcurrentReaders(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// expectValue fails the test unless Read(key) returns exactly want.
func expectValue(t testing.TB, r kvdb.Reader, key string, want string) {
	t.Helper()
	value, err := r.Read([]byte(key))
	if err != nil {
		t.Errorf("Read(%q) failed: %v", key, err)
		return
	}
	if !bytes.Equal(value, []byte(want)) {
		t.Errorf("Read(%q) = %q, want %q", key, value, want)
	}
}

// expectMissing fails the test unless Read(key) returns a KeyError.
func expectMissing(t testing.TB, r kvdb.Reader, key string) {
	t.Helper()
	_, err := r.Read([]byte(key))
	if err == nil {
		t.Errorf("Read(%q) succeeded, want KeyError", key)
		return
	}
	if !kvdb.IsKeyError(err) {
		t.Errorf("Read(%q) returned kind %s, want KeyError: %v", key, kvdb.KindOf(err), err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testReadMissing(t *testing.T, store kvdb.Store) {
	defer store.Close()

	expectMissing(t, store, "never-written")
}

func testWriteReadRoundTrip(t *testing.T, store kvdb.Store) {
	defer store.Close()

	if err := store.Write([]byte("key"), []byte("val")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	expectValue(t, store, "key", "val")

	// Overwrite
	if err := store.Write([]byte("key"), []byte("val2")); err != nil {
		t.Fatalf("Write (overwrite) failed: %v", err)
	}
	expectValue(t, store, "key", "val2")

	// Read must return a copy, not a reference to the stored value
	retrieved, err := store.Read([]byte("key"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	retrieved[0] = 'X'
	expectValue(t, store, "key", "val2")
}

func testWriteRemoveRead(t *testing.T, store kvdb.Store) {
	defer store.Close()

	if err := store.Write([]byte("key"), []byte("val")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	expectValue(t, store, "key", "val")

	if err := store.Remove([]byte("key")); err != nil {
		t.Errorf("Remove failed: %v", err)
	}
	expectMissing(t, store, "key")

	// Removing an absent key is not an error
	if err := store.Remove([]byte("key")); err != nil {
		t.Errorf("Remove of absent key failed: %v", err)
	}
}

func testBinaryKeysAndValues(t *testing.T, store kvdb.Store) {
	defer store.Close()

	key := []byte{0x00, 0xff, 0xfe, '\n', 0x80}
	value := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x00}

	if err := store.Write(key, value); err != nil {
		t.Fatalf("Write of binary key failed: %v", err)
	}

	got, err := store.Read(key)
	if err != nil {
		t.Fatalf("Read of binary key failed: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Errorf("binary round trip: got %x, want %x", got, value)
	}

	// A prefix of the key is a different key
	_, err = store.Read(key[:3])
	if !kvdb.IsKeyError(err) {
		t.Errorf("Read of key prefix returned %v, want KeyError", err)
	}
}

func testWriteTransactionCommit(t *testing.T, store kvdb.Store) {
	defer store.Close()

	err := store.WriteTransaction(func(txn kvdb.Transaction) error {
		expectMissing(t, txn, "foo")

		if err := txn.Write([]byte("foo"), []byte("bar")); err != nil {
			t.Errorf("txn.Write failed: %v", err)
		}

		// Staged write is visible inside the transaction before commit
		expectValue(t, txn, "foo", "bar")

		if err := txn.Write([]byte("test"), []byte("val")); err != nil {
			t.Errorf("txn.Write failed: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WriteTransaction failed: %v", err)
	}

	expectValue(t, store, "foo", "bar")
	expectValue(t, store, "test", "val")
	expectMissing(t, store, "bogus")
}

func testWriteTransactionRollback(t *testing.T, store kvdb.Store) {
	defer store.Close()

	if err := store.WriteTransaction(func(txn kvdb.Transaction) error {
		return txn.Write([]byte("foo"), []byte("bar"))
	}); err != nil {
		t.Fatalf("WriteTransaction failed: %v", err)
	}

	simulated := kvdb.MakeError(kvdb.ConditionError, "Some test error from I/O")
	err := store.WriteTransaction(func(txn kvdb.Transaction) error {
		if err := txn.Write([]byte("test"), []byte("val")); err != nil {
			t.Errorf("txn.Write failed: %v", err)
		}
		return simulated
	})
	if err != simulated {
		t.Errorf("WriteTransaction returned %v, want the callback's error unchanged", err)
	}

	// The first transaction's data persisted, the second's rolled back
	expectValue(t, store, "foo", "bar")
	expectMissing(t, store, "test")
}

func testReadYourWrites(t *testing.T, store kvdb.Store) {
	defer store.Close()

	if err := store.Write([]byte("base"), []byte("old")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	err := store.WriteTransaction(func(txn kvdb.Transaction) error {
		// Committed state is visible through the handle
		expectValue(t, txn, "base", "old")

		// A staged overwrite shadows the committed value immediately
		if err := txn.Write([]byte("base"), []byte("new")); err != nil {
			return err
		}
		expectValue(t, txn, "base", "new")

		// Re-staging replaces the previous staged value
		if err := txn.Write([]byte("base"), []byte("newer")); err != nil {
			return err
		}
		expectValue(t, txn, "base", "newer")

		// Nothing is committed yet: abort and verify below
		return kvdb.MakeError(kvdb.ConditionError, "abort")
	})
	if err == nil {
		t.Fatal("WriteTransaction succeeded, want the abort error")
	}

	expectValue(t, store, "base", "old")
}

func testTombstoneInTransaction(t *testing.T, store kvdb.Store) {
	defer store.Close()

	if err := store.Write([]byte("key"), []byte("val")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Staged removal shadows the committed value, then a re-write revives it
	err := store.WriteTransaction(func(txn kvdb.Transaction) error {
		if err := txn.Remove([]byte("key")); err != nil {
			return err
		}
		expectMissing(t, txn, "key")

		if err := txn.Write([]byte("key"), []byte("revived")); err != nil {
			return err
		}
		expectValue(t, txn, "key", "revived")

		// Back to a tombstone, committed below
		return txn.Remove([]byte("key"))
	})
	if err != nil {
		t.Fatalf("WriteTransaction failed: %v", err)
	}
	expectMissing(t, store, "key")

	// A rolled back tombstone leaves the committed value intact
	if err := store.Write([]byte("key2"), []byte("val2")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	abort := kvdb.MakeError(kvdb.ConditionError, "abort")
	if err := store.WriteTransaction(func(txn kvdb.Transaction) error {
		if err := txn.Remove([]byte("key2")); err != nil {
			return err
		}
		return abort
	}); err != abort {
		t.Errorf("WriteTransaction returned %v, want the abort error", err)
	}
	expectValue(t, store, "key2", "val2")
}

func testAtomicCommit(t *testing.T, store kvdb.Store) {
	defer store.Close()

	// Success: both staged writes land
	if err := store.WriteTransaction(func(txn kvdb.Transaction) error {
		if err := txn.Write([]byte("k1"), []byte("v1")); err != nil {
			return err
		}
		return txn.Write([]byte("k2"), []byte("v2"))
	}); err != nil {
		t.Fatalf("WriteTransaction failed: %v", err)
	}
	expectValue(t, store, "k1", "v1")
	expectValue(t, store, "k2", "v2")

	// Failure: none of the staged writes land
	abort := kvdb.MakeError(kvdb.ConditionError, "abort")
	if err := store.WriteTransaction(func(txn kvdb.Transaction) error {
		if err := txn.Write([]byte("k1"), []byte("changed")); err != nil {
			return err
		}
		if err := txn.Write([]byte("k3"), []byte("v3")); err != nil {
			return err
		}
		return abort
	}); err != abort {
		t.Errorf("WriteTransaction returned %v, want the abort error", err)
	}
	expectValue(t, store, "k1", "v1")
	expectMissing(t, store, "k3")
}

func testReadTransaction(t *testing.T, store kvdb.Store) {
	defer store.Close()

	if err := store.Write([]byte("foo"), []byte("bar")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := store.Write([]byte("test"), []byte("val")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	err := store.ReadTransaction(func(txn kvdb.Reader) error {
		expectValue(t, txn, "foo", "bar")
		expectValue(t, txn, "test", "val")
		expectMissing(t, txn, "bogus")
		return nil
	})
	if err != nil {
		t.Errorf("ReadTransaction failed: %v", err)
	}
}

// A failing read transaction has no effect and returns the exact error.
func testReadTransactionFailure(t *testing.T, store kvdb.Store) {
	defer store.Close()

	if err := store.Write([]byte("foo"), []byte("bar")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	simulated := kvdb.MakeError(kvdb.KeyError, "Some error")
	err := store.ReadTransaction(func(txn kvdb.Reader) error {
		expectValue(t, txn, "foo", "bar")
		return simulated
	})
	if err != simulated {
		t.Errorf("ReadTransaction returned %v, want the callback's error unchanged", err)
	}

	// Purity: the committed state is untouched
	expectValue(t, store, "foo", "bar")
}

func testConcurrentReaders(t *testing.T, store kvdb.Store) {
	defer store.Close()

	const numKeys = 64
	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		value := []byte(fmt.Sprintf("value-%d", i))
		if err := store.Write(key, value); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	// Plain reads and read transactions may run concurrently with each
	// other without blocking; each observes consistent values.
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < numKeys; i++ {
				expectValue(t, store, fmt.Sprintf("key-%d", i), fmt.Sprintf("value-%d", i))
			}
		}()
		go func() {
			defer wg.Done()
			err := store.ReadTransaction(func(txn kvdb.Reader) error {
				for i := 0; i < numKeys; i++ {
					expectValue(t, txn, fmt.Sprintf("key-%d", i), fmt.Sprintf("value-%d", i))
				}
				return nil
			})
			if err != nil {
				t.Errorf("ReadTransaction failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
