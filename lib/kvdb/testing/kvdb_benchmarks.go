package testing

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/tKV/lib/kvdb"
)

// RunStoreBenchmarks runs all benchmarks for a Store implementation.
func RunStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {
	b.Run("Write", func(b *testing.B) {
		benchmarkWrite(b, factory(b))
	})

	b.Run("WriteExisting", func(b *testing.B) {
		benchmarkWriteExisting(b, factory(b))
	})

	b.Run("Read", func(b *testing.B) {
		benchmarkRead(b, factory(b))
	})

	b.Run("Read(not)", func(b *testing.B) {
		benchmarkReadMissing(b, factory(b))
	})

	b.Run("Remove", func(b *testing.B) {
		benchmarkRemove(b, factory(b))
	})

	b.Run("WriteTransaction", func(b *testing.B) {
		benchmarkWriteTransaction(b, factory(b))
	})

	b.Run("ReadTransaction", func(b *testing.B) {
		benchmarkReadTransaction(b, factory(b))
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory(b))
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkWrite(b *testing.B, store kvdb.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		value := []byte(fmt.Sprintf("test-value-%d", i))
		if err := store.Write(key, value); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}
}

func benchmarkWriteExisting(b *testing.B, store kvdb.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	key := []byte("test-key")
	if err := store.Write(key, []byte("initial")); err != nil {
		b.Fatalf("Write failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		value := []byte(fmt.Sprintf("test-value-%d", i))
		if err := store.Write(key, value); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}
}

func benchmarkRead(b *testing.B, store kvdb.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	const numKeys = 1024
	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		value := []byte(fmt.Sprintf("test-value-%d", i))
		if err := store.Write(key, value); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := []byte(fmt.Sprintf("test-key-%d", counter%numKeys))
			if _, err := store.Read(key); err != nil {
				b.Errorf("Read failed: %v", err)
			}
			counter++
		}
	})
}

func benchmarkReadMissing(b *testing.B, store kvdb.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := store.Read([]byte("bogus")); !kvdb.IsKeyError(err) {
				b.Errorf("Read returned %v, want KeyError", err)
			}
		}
	})
}

func benchmarkRemove(b *testing.B, store kvdb.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		if err := store.Write(key, []byte("test-value")); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		if err := store.Remove(key); err != nil {
			b.Fatalf("Remove failed: %v", err)
		}
	}
}

// benchmarkWriteTransaction commits a small batch of staged writes per
// iteration, the dominant usage pattern of the state store layer.
func benchmarkWriteTransaction(b *testing.B, store kvdb.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	const batchSize = 8

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := store.WriteTransaction(func(txn kvdb.Transaction) error {
			for j := 0; j < batchSize; j++ {
				key := []byte(fmt.Sprintf("test-key-%d", j))
				value := []byte(fmt.Sprintf("test-value-%d-%d", i, j))
				if err := txn.Write(key, value); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.Fatalf("WriteTransaction failed: %v", err)
		}
	}
}

func benchmarkReadTransaction(b *testing.B, store kvdb.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	const numKeys = 64
	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i))
		if err := store.Write(key, []byte("test-value")); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			err := store.ReadTransaction(func(txn kvdb.Reader) error {
				_, err := txn.Read([]byte(fmt.Sprintf("test-key-%d", counter%numKeys)))
				return err
			})
			if err != nil {
				b.Errorf("ReadTransaction failed: %v", err)
			}
			counter++
		}
	})
}

func benchmarkMixedUsage(b *testing.B, store kvdb.Store) {
	b.Cleanup(func() {
		store.Close()
	})

	const numKeys = 256

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-key-%d", i%numKeys))
		switch i % 4 {
		case 0:
			if err := store.Write(key, []byte("test-value")); err != nil {
				b.Fatalf("Write failed: %v", err)
			}
		case 1, 2:
			// A miss is expected for keys not yet written in this round
			if _, err := store.Read(key); err != nil && !kvdb.IsKeyError(err) {
				b.Fatalf("Read failed: %v", err)
			}
		case 3:
			if err := store.Remove(key); err != nil {
				b.Fatalf("Remove failed: %v", err)
			}
		}
	}
}
