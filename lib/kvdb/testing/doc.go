// Package testing provides standardised tests and benchmarks for storage
// engines that satisfy the kvdb.Store interface.
//
// The package contains:
//   - testing: a conformance suite validating the transactional contract
//     (atomic commit, rollback, read-your-writes, tombstones, stable read
//     transactions, error passthrough)
//   - benchmark: performance tests for measuring throughput of common
//     store operations
//
// Every engine runs the same suite through a factory function, so the
// in-memory reference engine and the durable adapters are held to
// identical externally observable behavior.
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func(t testing.TB) kvdb.Store {
//		return NewMyStore()
//	}
//
//	// Running the standard test suite
//	kvdbtesting.RunStoreTests(t, "MyStore", factory)
//
//	// Running performance benchmarks
//	kvdbtesting.RunStoreBenchmarks(b, "MyStore", factory)
package testing
