package storage

import (
	"fmt"
	"testing"

	"github.com/cespare/xxhash/v2"
)

// BenchmarkStorageGet benchmarks Get operations with different scenarios
func BenchmarkStorageGet(b *testing.B) {
	scenarios := []struct {
		name string
		size int
		key  string
	}{
		{"Hit_Small", 5, "key"},
		{"Hit_Medium", 1024, "key"},
		{"Hit_Large", 1024 * 1024, "key"},
		{"Miss", 5, "nonexistent"},
	}

	for _, sc := range scenarios {
		b.Run(sc.name, func(b *testing.B) {
			s := NewMemory()
			_ = s.Set("key", make([]byte, sc.size))

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				_, _, _ = s.Get(sc.key)
			}
		})
	}
}

// BenchmarkStorageSet benchmarks Set operations with different value sizes
func BenchmarkStorageSet(b *testing.B) {
	scenarios := []struct {
		name string
		size int
	}{
		{"Small_16B", 16},
		{"Medium_1KB", 1024},
		{"Large_64KB", 64 * 1024},
	}

	for _, sc := range scenarios {
		b.Run(sc.name, func(b *testing.B) {
			s := NewMemory()
			data := make([]byte, sc.size)
			keys := benchKeys(1000)

			b.ResetTimer()
			b.ReportAllocs()
			b.SetBytes(int64(sc.size))

			for i := 0; i < b.N; i++ {
				_ = s.Set(keys[i%len(keys)], data)
			}
		})
	}
}

// BenchmarkStorageHash benchmarks the hash namespace
func BenchmarkStorageHash(b *testing.B) {
	s := NewMemory()
	fields := benchKeys(16)
	pairs := make([]FieldValue, len(fields))
	for i, f := range fields {
		pairs[i] = FieldValue{Field: f, Value: []byte("value")}
	}
	_, _ = s.HSet("hash", pairs...)

	b.Run("HSet", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_, _ = s.HSet("hash", pairs[i%len(pairs)])
		}
	})

	b.Run("HMGet_4", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_, _ = s.HMGet("hash", fields[0], fields[5], "missing", fields[10])
		}
	})
}

// BenchmarkStorageSAdd benchmarks adding new and existing members
func BenchmarkStorageSAdd(b *testing.B) {
	members := benchKeys(1024)

	b.Run("Existing", func(b *testing.B) {
		s := NewMemory()
		_, _ = s.SAdd("set", members...)

		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_, _ = s.SAdd("set", members[i%len(members)])
		}
	})

	b.Run("Fresh", func(b *testing.B) {
		s := NewMemory()

		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_, _ = s.SAdd(members[i%len(members)], "member")
		}
	})
}

// BenchmarkStorageConcurrentMixed benchmarks parallel mixed workloads
func BenchmarkStorageConcurrentMixed(b *testing.B) {
	for _, shards := range []int{1, 16, 64, 256} {
		b.Run(fmt.Sprintf("Shards_%d", shards), func(b *testing.B) {
			s := NewMemory(WithShardCount(shards))
			keys := benchKeys(1000)
			for _, key := range keys {
				_ = s.Set(key, []byte("value"))
			}

			b.ResetTimer()
			b.ReportAllocs()

			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					key := keys[i%len(keys)]
					if i%4 == 0 {
						_ = s.Set(key, []byte("value"))
					} else {
						_, _, _ = s.Get(key)
					}
					i++
				}
			})
		})
	}
}

// BenchmarkStorageKeys benchmarks pattern scans over the whole keyspace
func BenchmarkStorageKeys(b *testing.B) {
	s := NewMemory()
	for _, key := range benchKeys(10000) {
		_ = s.Set(key, []byte("value"))
	}

	for _, pattern := range []string{"*", "key:1*", "key:[0-4]?5"} {
		b.Run(pattern, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = s.Keys(pattern)
			}
		})
	}
}

// BenchmarkShardSelection benchmarks hashing a key to its shard
func BenchmarkShardSelection(b *testing.B) {
	s := NewMemory(WithShardCount(256))
	keys := benchKeys(1000)

	b.Run("keyHash", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = s.keyHash(keys[i%len(keys)])
		}
	})

	b.Run("xxhash", func(b *testing.B) {
		shardMask := uint64(255)
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = xxhash.Sum64String(keys[i%len(keys)]) & shardMask
		}
	})
}

func benchKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("key:%d", i)
	}
	return keys
}
