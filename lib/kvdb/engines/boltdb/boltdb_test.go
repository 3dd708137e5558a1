package boltdb

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ValentinKolb/tKV/lib/kvdb"
)

// Open with a missing parent directory must fail with a BackendError whose
// message carries the native OS diagnostic.
func TestOpenNonExistingPath(t *testing.T) {
	store := NewBoltStore()

	err := store.Open("/non-existing-junk-path/leaf")
	if err == nil {
		t.Fatal("Open of an unusable path succeeded")
	}
	if kvdb.KindOf(err) != kvdb.BackendError {
		t.Errorf("Open returned kind %s, want BackendError: %v", kvdb.KindOf(err), err)
	}
	if !strings.Contains(err.Error(), "no such file or directory") {
		t.Errorf("Open error %q does not carry the OS diagnostic", err.Error())
	}
}

// Open creates the backing file if absent; committed data survives a
// close/reopen cycle.
func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tkv-store")

	store := NewBoltStore()
	if err := store.Open(path); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backing file was not created: %v", err)
	}

	err := store.WriteTransaction(func(txn kvdb.Transaction) error {
		if err := txn.Write([]byte("foo"), []byte("bar")); err != nil {
			return err
		}
		return txn.Write([]byte("gone"), []byte("soon"))
	})
	if err != nil {
		t.Fatalf("WriteTransaction failed: %v", err)
	}
	if err := store.Remove([]byte("gone")); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := NewBoltStore()
	if err := reopened.Open(path); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	value, err := reopened.Read([]byte("foo"))
	if err != nil {
		t.Fatalf("Read after reopen failed: %v", err)
	}
	if !bytes.Equal(value, []byte("bar")) {
		t.Errorf("Read after reopen = %q, want %q", value, "bar")
	}
	if _, err := reopened.Read([]byte("gone")); !kvdb.IsKeyError(err) {
		t.Errorf("removed key resurfaced after reopen: %v", err)
	}
}

// A rolled back transaction leaves nothing in the file.
func TestRollbackIsNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tkv-store")

	store := NewBoltStore()
	if err := store.Open(path); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	abort := kvdb.MakeError(kvdb.ConditionError, "Some test error from I/O")
	if err := store.WriteTransaction(func(txn kvdb.Transaction) error {
		if err := txn.Write([]byte("test"), []byte("val")); err != nil {
			return err
		}
		return abort
	}); err != abort {
		t.Errorf("WriteTransaction returned %v, want the abort error", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := NewBoltStore()
	if err := reopened.Open(path); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.Read([]byte("test")); !kvdb.IsKeyError(err) {
		t.Errorf("rolled back write resurfaced after reopen: %v", err)
	}
}

// The backing file is acquired exclusively: a second instance fails with
// BackendError after the lock timeout instead of hanging.
func TestExclusiveFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tkv-store")

	first := NewBoltStore()
	if err := first.Open(path); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer first.Close()

	second := NewBoltStore()
	err := second.Open(path)
	if err == nil {
		second.Close()
		t.Fatal("second Open of a locked file succeeded")
	}
	if kvdb.KindOf(err) != kvdb.BackendError {
		t.Errorf("second Open returned kind %s, want BackendError: %v", kvdb.KindOf(err), err)
	}
}

// Operations before Open and after Close fail with BackendError.
func TestLifecycleErrors(t *testing.T) {
	store := NewBoltStore()

	if _, err := store.Read([]byte("key")); kvdb.KindOf(err) != kvdb.BackendError {
		t.Errorf("Read before Open returned %v, want BackendError", err)
	}

	path := filepath.Join(t.TempDir(), "tkv-store")
	if err := store.Open(path); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Open(path); kvdb.KindOf(err) != kvdb.BackendError {
		t.Errorf("double Open returned %v, want BackendError", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := store.Write([]byte("key"), []byte("val")); kvdb.KindOf(err) != kvdb.BackendError {
		t.Errorf("Write after Close returned %v, want BackendError", err)
	}
}

func TestFeatures(t *testing.T) {
	store := NewBoltStore()

	want := kvdb.FeatureDurable |
		kvdb.FeatureOpen |
		kvdb.FeatureStableReads |
		kvdb.FeatureSerialWriters
	if !store.SupportsFeature(want) {
		t.Error("expected all durable engine features to be supported")
	}
}
