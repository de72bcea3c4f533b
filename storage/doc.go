// Package storage provides the typed keyspace behind the server.
//
// Keys live in one of three namespaces: plain strings, hashes (field to
// value) and sets (unique members). MemoryStorage spreads keys over
// independently locked shards, so every single-key operation is atomic and
// operations on keys in different shards proceed in parallel.
//
// Basic usage:
//
//	stor := storage.NewMemory()
//	defer stor.Close()
//
//	_ = stor.Set("key", []byte("value"))
//	value, exists, err := stor.Get("key")
//
//	added, err := stor.SAdd("tags", "a", "b", "a") // added == 2
//	_, err = stor.HGet("tags", "a")                // err == ErrWrongType
package storage
