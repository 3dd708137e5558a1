package kvdb

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Instrumented Store Wrapper
// --------------------------------------------------------------------------

// instrumentedStore wraps another Store and counts operations and failures.
// KeyError results are counted separately from real faults since a lookup
// miss is expected behavior, not a failure.
type instrumentedStore struct {
	next Store

	reads     *metrics.Counter
	writes    *metrics.Counter
	removes   *metrics.Counter
	writeTxns *metrics.Counter
	readTxns  *metrics.Counter
	misses    *metrics.Counter
	faults    *metrics.Counter
}

// NewInstrumentedStore wraps next with VictoriaMetrics counters. The name
// labels the metrics so multiple engine instances can be told apart.
//
// Thread-safety: the wrapper adds no locking of its own; the counters are
// safe for concurrent use and all guarantees of next carry over.
func NewInstrumentedStore(next Store, name string) Store {
	counter := func(op string) *metrics.Counter {
		return metrics.GetOrCreateCounter(fmt.Sprintf(`tkv_store_ops_total{op=%q,store=%q}`, op, name))
	}
	return &instrumentedStore{
		next:      next,
		reads:     counter("read"),
		writes:    counter("write"),
		removes:   counter("remove"),
		writeTxns: counter("write_txn"),
		readTxns:  counter("read_txn"),
		misses:    metrics.GetOrCreateCounter(fmt.Sprintf(`tkv_store_key_misses_total{store=%q}`, name)),
		faults:    metrics.GetOrCreateCounter(fmt.Sprintf(`tkv_store_faults_total{store=%q}`, name)),
	}
}

// track classifies err into the miss or fault counter. The error itself is
// always passed through unchanged.
func (s *instrumentedStore) track(err error) error {
	switch KindOf(err) {
	case NoError:
	case KeyError:
		s.misses.Inc()
	default:
		s.faults.Inc()
	}
	return err
}

// --------------------------------------------------------------------------
// Interface Methods (docu see kvdb.go)
// --------------------------------------------------------------------------

func (s *instrumentedStore) Read(key []byte) ([]byte, error) {
	s.reads.Inc()
	value, err := s.next.Read(key)
	return value, s.track(err)
}

func (s *instrumentedStore) Write(key, value []byte) error {
	s.writes.Inc()
	return s.track(s.next.Write(key, value))
}

func (s *instrumentedStore) Remove(key []byte) error {
	s.removes.Inc()
	return s.track(s.next.Remove(key))
}

func (s *instrumentedStore) WriteTransaction(fn func(txn Transaction) error) error {
	s.writeTxns.Inc()
	return s.track(s.next.WriteTransaction(fn))
}

func (s *instrumentedStore) ReadTransaction(fn func(txn Reader) error) error {
	s.readTxns.Inc()
	return s.track(s.next.ReadTransaction(fn))
}

func (s *instrumentedStore) Open(path string) error {
	return s.track(s.next.Open(path))
}

func (s *instrumentedStore) Close() error {
	return s.track(s.next.Close())
}

func (s *instrumentedStore) SupportsFeature(feature Feature) bool {
	return s.next.SupportsFeature(feature)
}
