package kvdb

import (
	"testing"

	"github.com/VictoriaMetrics/metrics"
)

// stubStore lets the wrapper tests steer exactly which errors surface.
type stubStore struct {
	err error
}

func (s *stubStore) Read(_ []byte) ([]byte, error)                 { return nil, s.err }
func (s *stubStore) Write(_, _ []byte) error                       { return s.err }
func (s *stubStore) Remove(_ []byte) error                         { return s.err }
func (s *stubStore) WriteTransaction(func(Transaction) error) error { return s.err }
func (s *stubStore) ReadTransaction(func(Reader) error) error      { return s.err }
func (s *stubStore) Open(_ string) error                           { return s.err }
func (s *stubStore) Close() error                                  { return s.err }
func (s *stubStore) SupportsFeature(_ Feature) bool                { return true }

func counterValue(t *testing.T, name string) uint64 {
	t.Helper()
	return metrics.GetOrCreateCounter(name).Get()
}

func TestInstrumentedStoreCountsOps(t *testing.T) {
	stub := &stubStore{}
	store := NewInstrumentedStore(stub, "ops-test")

	_, _ = store.Read([]byte("key"))
	_ = store.Write([]byte("key"), []byte("val"))
	_ = store.Write([]byte("key"), []byte("val"))
	_ = store.Remove([]byte("key"))
	_ = store.WriteTransaction(func(txn Transaction) error { return nil })
	_ = store.ReadTransaction(func(txn Reader) error { return nil })

	for op, want := range map[string]uint64{
		"read":      1,
		"write":     2,
		"remove":    1,
		"write_txn": 1,
		"read_txn":  1,
	} {
		got := counterValue(t, `tkv_store_ops_total{op="`+op+`",store="ops-test"}`)
		if got != want {
			t.Errorf("op %q counted %d times, want %d", op, got, want)
		}
	}
}

func TestInstrumentedStoreClassifiesErrors(t *testing.T) {
	stub := &stubStore{}
	store := NewInstrumentedStore(stub, "err-test")

	// A lookup miss counts as a miss, not a fault
	stub.err = MakeError(KeyError, "Key Not found")
	if _, err := store.Read([]byte("key")); !IsKeyError(err) {
		t.Errorf("Read returned %v, want the KeyError unchanged", err)
	}

	// A backend failure counts as a fault
	stub.err = MakeError(BackendError, "io failure")
	if err := store.Write([]byte("key"), []byte("val")); KindOf(err) != BackendError {
		t.Errorf("Write returned %v, want the BackendError unchanged", err)
	}

	if got := counterValue(t, `tkv_store_key_misses_total{store="err-test"}`); got != 1 {
		t.Errorf("miss counter = %d, want 1", got)
	}
	if got := counterValue(t, `tkv_store_faults_total{store="err-test"}`); got != 1 {
		t.Errorf("fault counter = %d, want 1", got)
	}
}

func TestInstrumentedStorePassesFeaturesThrough(t *testing.T) {
	store := NewInstrumentedStore(&stubStore{}, "feat-test")
	if !store.SupportsFeature(FeatureDurable) {
		t.Error("feature query was not delegated to the wrapped store")
	}
}
