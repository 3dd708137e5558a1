package statestore

import (
	"testing"
	"time"

	"github.com/ValentinKolb/tKV/lib/kvdb"
	"github.com/ValentinKolb/tKV/lib/kvdb/engines/memdb"
)

// commitHookStore lets a test pause a Save between its engine commit and
// the cache update that follows it.
type commitHookStore struct {
	kvdb.Store
	afterCommit func()
}

func (s *commitHookStore) WriteTransaction(fn func(txn kvdb.Transaction) error) error {
	err := s.Store.WriteTransaction(fn)
	if err == nil && s.afterCommit != nil {
		s.afterCommit()
	}
	return err
}

// agentState mimics the state snapshot an update agent persists.
type agentState struct {
	Name         string `json:"name"`
	ArtifactName string `json:"artifact_name"`
	Attempts     int    `json:"attempts"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := New(memdb.NewMemStore())
	defer store.Close()

	saved := agentState{Name: "ArtifactInstall", ArtifactName: "release-42", Attempts: 3}
	if err := store.Save("update-state", &saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var loaded agentState
	if err := store.Load("update-state", &loaded); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != saved {
		t.Errorf("Load = %+v, want %+v", loaded, saved)
	}

	// Overwrite and reload
	saved.Attempts = 4
	if err := store.Save("update-state", &saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Load("update-state", &loaded); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Attempts != 4 {
		t.Errorf("Load.Attempts = %d, want 4", loaded.Attempts)
	}
}

func TestLoadMissing(t *testing.T) {
	store := New(memdb.NewMemStore())
	defer store.Close()

	var state agentState
	if err := store.Load("never-saved", &state); !kvdb.IsKeyError(err) {
		t.Errorf("Load returned %v, want KeyError", err)
	}
}

func TestRemove(t *testing.T) {
	store := New(memdb.NewMemStore())
	defer store.Close()

	if err := store.Save("update-state", &agentState{Name: "Idle"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Remove("update-state"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	var state agentState
	if err := store.Load("update-state", &state); !kvdb.IsKeyError(err) {
		t.Errorf("Load after Remove returned %v, want KeyError", err)
	}

	// Removing an absent snapshot is not an error
	if err := store.Remove("update-state"); err != nil {
		t.Errorf("Remove of absent snapshot failed: %v", err)
	}
}

func TestLoadBypassesCacheAfterDirectWrite(t *testing.T) {
	kv := memdb.NewMemStore()
	store := New(kv)
	defer store.Close()

	if err := store.Save("update-state", &agentState{Name: "Idle"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Remove("update-state"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	// After invalidation the Load goes back to the engine
	var state agentState
	if err := store.Load("update-state", &state); !kvdb.IsKeyError(err) {
		t.Errorf("Load returned %v, want KeyError", err)
	}
}

// A Remove that runs while a Save sits between its engine commit and its
// cache update must not leave the removed snapshot behind in the cache.
func TestRemoveDoesNotResurrectCachedSnapshot(t *testing.T) {
	hook := &commitHookStore{Store: memdb.NewMemStore()}
	store := New(hook)
	defer store.Close()

	committed := make(chan struct{})
	proceed := make(chan struct{})
	hook.afterCommit = func() {
		close(committed)
		<-proceed
	}

	saveDone := make(chan error, 1)
	go func() {
		saveDone <- store.Save("update-state", &agentState{Name: "Sync"})
	}()
	<-committed

	removeDone := make(chan error, 1)
	go func() {
		removeDone <- store.Remove("update-state")
	}()

	// The Remove must wait until the Save has finished its cache update.
	select {
	case err := <-removeDone:
		t.Fatalf("Remove finished before Save's cache update (err=%v)", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(proceed)
	if err := <-saveDone; err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := <-removeDone; err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	var state agentState
	if err := store.Load("update-state", &state); !kvdb.IsKeyError(err) {
		t.Errorf("Load after Remove returned %v, want KeyError", err)
	}
}

func TestStoreCountGuard(t *testing.T) {
	store := NewWithMaxStoreCount(memdb.NewMemStore(), 3)
	defer store.Close()

	for i := 0; i < 3; i++ {
		if err := store.Save("update-state", &agentState{Attempts: i}); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	count, err := store.StoreCount()
	if err != nil {
		t.Fatalf("StoreCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("StoreCount = %d, want 3", count)
	}

	// The bound is reached: Save fails and changes nothing
	err = store.Save("update-state", &agentState{Attempts: 99})
	if kvdb.KindOf(err) != kvdb.ConditionError {
		t.Fatalf("Save past the bound returned %v, want ConditionError", err)
	}
	var state agentState
	if err := store.Load("update-state", &state); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state.Attempts != 2 {
		t.Errorf("state.Attempts = %d, want the last successful save", state.Attempts)
	}

	// Reset re-arms the bound
	if err := store.ResetStoreCount(); err != nil {
		t.Fatalf("ResetStoreCount failed: %v", err)
	}
	if err := store.Save("update-state", &agentState{Attempts: 100}); err != nil {
		t.Errorf("Save after reset failed: %v", err)
	}
	count, err = store.StoreCount()
	if err != nil {
		t.Fatalf("StoreCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("StoreCount after reset = %d, want 1", count)
	}
}

func TestUnsupportedSchemaVersion(t *testing.T) {
	kv := memdb.NewMemStore()
	store := New(kv)
	defer store.Close()

	// A snapshot written by a future schema version
	future := []byte(`{"version": 9000, "data": {}}`)
	if err := kv.Write([]byte("update-state"), future); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var state agentState
	err := store.Load("update-state", &state)
	if kvdb.KindOf(err) != kvdb.ConditionError {
		t.Errorf("Load returned %v, want ConditionError", err)
	}
}

func TestSaveIsAtomicWithCounter(t *testing.T) {
	kv := memdb.NewMemStore()
	store := NewWithMaxStoreCount(kv, 1)
	defer store.Close()

	if err := store.Save("update-state", &agentState{Attempts: 1}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The rejected save must bump neither the snapshot nor the counter
	_ = store.Save("update-state", &agentState{Attempts: 2})

	count, err := store.StoreCount()
	if err != nil {
		t.Fatalf("StoreCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("StoreCount = %d, want 1 after a rejected save", count)
	}
}
