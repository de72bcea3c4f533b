package storage

import "errors"

// ErrWrongType is returned when a key is used from a namespace other than
// the one that holds it
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// FieldValue is one field/value pair written to a hash
type FieldValue struct {
	Field string
	Value []byte
}

// Storage defines the interface for data storage operations.
//
// A key lives in exactly one namespace at a time. Hash and set operations
// on a key of another type fail with ErrWrongType and change nothing.
// Missing keys, fields and members are never errors.
type Storage interface {
	// String operations
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error

	// Key operations
	Del(keys ...string) int64
	Exists(keys ...string) int64
	Type(key string) ValueType
	Keys(pattern string) []string
	KeyCount() int64
	FlushAll() error

	// Hash operations
	HSet(key string, pairs ...FieldValue) (int64, error)
	HGet(key, field string) ([]byte, bool, error)
	HMGet(key string, fields ...string) ([][]byte, error)
	HGetAll(key string) (map[string][]byte, error)
	HDel(key string, fields ...string) (int64, error)
	HLen(key string) (int64, error)

	// Set operations
	SAdd(key string, members ...string) (int64, error)
	SIsMember(key, member string) (bool, error)
	SMembers(key string) ([]string, error)
	SCard(key string) (int64, error)
	SRem(key string, members ...string) (int64, error)

	// Info and stats
	Info() map[string]interface{}

	// Shutdown
	Close() error
}
