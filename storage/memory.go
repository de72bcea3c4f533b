package storage

import (
	"runtime"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// defaultShardCount is the number of shards used when none is configured
const defaultShardCount = 64

// shard represents a single shard of data with its own lock
type shard struct {
	mu   sync.RWMutex
	data map[string]*Value
}

// MemoryStorage implements an in-memory storage engine
type MemoryStorage struct {
	// Sharding configuration
	shards    []shard
	shardMask uint64
}

// MemoryOption is a function that configures a MemoryStorage instance
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	shardCount int
}

// WithShardCount sets the number of shards for the storage
// The number is automatically rounded up to the next power of 2 for optimal performance
func WithShardCount(count int) MemoryOption {
	return func(c *memoryConfig) {
		if count > 0 {
			c.shardCount = nextPowerOf2(count)
		}
	}
}

// NewMemory creates a new in-memory storage instance with default number of shards (64)
func NewMemory(opts ...MemoryOption) *MemoryStorage {
	cfg := memoryConfig{shardCount: defaultShardCount}

	// Apply options
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &MemoryStorage{
		shards:    make([]shard, cfg.shardCount),
		shardMask: uint64(cfg.shardCount - 1),
	}
	for i := range s.shards {
		s.shards[i].data = make(map[string]*Value)
	}

	return s
}

// nextPowerOf2 returns the next power of 2 >= n
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// ShardCount returns the number of shards
func (s *MemoryStorage) ShardCount() int {
	return len(s.shards)
}

// keyHash computes the hash for a key and returns the shard index
func (s *MemoryStorage) keyHash(key string) uint64 {
	return xxhash.Sum64String(key) & s.shardMask
}

func (s *MemoryStorage) shardFor(key string) *shard {
	return &s.shards[s.keyHash(key)]
}

// lookup returns the value at key if it has type vt. A missing key yields
// (nil, nil).
func (sh *shard) lookup(key string, vt ValueType) (*Value, error) {
	value, exists := sh.data[key]
	if !exists {
		return nil, nil
	}
	if value.Type != vt {
		return nil, ErrWrongType
	}
	return value, nil
}

// Get retrieves a string value by key
func (s *MemoryStorage) Get(key string) ([]byte, bool, error) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, err := sh.lookup(key, ValueTypeString)
	if err != nil || value == nil {
		return nil, false, err
	}

	// Copy the data while holding the read lock
	return cloneBytes(value.Data.(*StringValue).Data), true, nil
}

// Set stores a string value, replacing whatever the key held before
func (s *MemoryStorage) Set(key string, value []byte) error {
	newValue := newStringValue(value)

	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.data[key] = newValue
	sh.mu.Unlock()

	return nil
}

// groupByShard groups keys by shard index to minimize lock contention
func (s *MemoryStorage) groupByShard(keys []string) map[uint64][]string {
	keysByShard := make(map[uint64][]string)
	for _, key := range keys {
		shardIdx := s.keyHash(key)
		keysByShard[shardIdx] = append(keysByShard[shardIdx], key)
	}
	return keysByShard
}

// Del deletes one or more keys of any type
func (s *MemoryStorage) Del(keys ...string) int64 {
	deleted := int64(0)

	// Delete keys shard by shard
	for shardIdx, shardKeys := range s.groupByShard(keys) {
		sh := &s.shards[shardIdx]
		sh.mu.Lock()
		for _, key := range shardKeys {
			if _, exists := sh.data[key]; exists {
				delete(sh.data, key)
				deleted++
			}
		}
		sh.mu.Unlock()
	}

	return deleted
}

// Exists counts how many of the given keys exist. A key named twice is
// counted twice.
func (s *MemoryStorage) Exists(keys ...string) int64 {
	count := int64(0)

	// Check existence shard by shard
	for shardIdx, shardKeys := range s.groupByShard(keys) {
		sh := &s.shards[shardIdx]
		sh.mu.RLock()
		for _, key := range shardKeys {
			if _, exists := sh.data[key]; exists {
				count++
			}
		}
		sh.mu.RUnlock()
	}

	return count
}

// Type returns the type of a key, ValueTypeNone if it does not exist
func (s *MemoryStorage) Type(key string) ValueType {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, exists := sh.data[key]
	if !exists {
		return ValueTypeNone
	}

	return value.Type
}

// Keys returns all keys matching the pattern
// Pattern supports glob-style patterns:
// * matches any number of characters (including zero)
// ? matches a single character
// [abc] matches any character in the brackets
// [a-z] matches any character in the range
// [^a] matches any character but a
// \x matches x literally
func (s *MemoryStorage) Keys(pattern string) []string {
	keys := make([]string, 0)
	matchAll := pattern == "" || pattern == "*"

	// Iterate over all shards and collect matching keys
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for key := range sh.data {
			if matchAll || matchPattern(key, pattern) {
				keys = append(keys, key)
			}
		}
		sh.mu.RUnlock()
	}

	return keys
}

// KeyCount returns the number of keys
func (s *MemoryStorage) KeyCount() int64 {
	count := int64(0)

	// Count keys across all shards
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		count += int64(len(sh.data))
		sh.mu.RUnlock()
	}

	return count
}

// FlushAll removes all keys
func (s *MemoryStorage) FlushAll() error {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sh.data = make(map[string]*Value)
		sh.mu.Unlock()
	}

	return nil
}

// HSet sets fields of the hash at key, creating it if needed. It returns
// the number of fields that did not exist before.
func (s *MemoryStorage) HSet(key string, pairs ...FieldValue) (int64, error) {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	value, err := sh.lookup(key, ValueTypeHash)
	if err != nil {
		return 0, err
	}
	if len(pairs) == 0 {
		return 0, nil
	}
	if value == nil {
		value = newHashValue()
		sh.data[key] = value
	}

	fields := value.Data.(*HashValue).Fields
	created := int64(0)
	for _, pair := range pairs {
		if _, exists := fields[pair.Field]; !exists {
			created++
		}
		fields[pair.Field] = cloneBytes(pair.Value)
	}

	return created, nil
}

// HGet retrieves one field of the hash at key
func (s *MemoryStorage) HGet(key, field string) ([]byte, bool, error) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, err := sh.lookup(key, ValueTypeHash)
	if err != nil || value == nil {
		return nil, false, err
	}

	data, exists := value.Data.(*HashValue).Fields[field]
	if !exists {
		return nil, false, nil
	}
	return cloneBytes(data), true, nil
}

// HMGet retrieves several fields of the hash at key. The result has one
// slot per requested field in the same order; a nil slot means the field
// (or the whole key) is absent.
func (s *MemoryStorage) HMGet(key string, fields ...string) ([][]byte, error) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, err := sh.lookup(key, ValueTypeHash)
	if err != nil {
		return nil, err
	}

	result := make([][]byte, len(fields))
	if value == nil {
		return result, nil
	}

	stored := value.Data.(*HashValue).Fields
	for i, field := range fields {
		if data, exists := stored[field]; exists {
			result[i] = cloneBytes(data)
		}
	}

	return result, nil
}

// HGetAll returns a copy of every field of the hash at key
func (s *MemoryStorage) HGetAll(key string) (map[string][]byte, error) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, err := sh.lookup(key, ValueTypeHash)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return map[string][]byte{}, nil
	}

	stored := value.Data.(*HashValue).Fields
	result := make(map[string][]byte, len(stored))
	for field, data := range stored {
		result[field] = cloneBytes(data)
	}

	return result, nil
}

// HDel removes fields from the hash at key and returns how many existed.
// A hash left without fields is removed.
func (s *MemoryStorage) HDel(key string, fields ...string) (int64, error) {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	value, err := sh.lookup(key, ValueTypeHash)
	if err != nil || value == nil {
		return 0, err
	}

	stored := value.Data.(*HashValue).Fields
	removed := int64(0)
	for _, field := range fields {
		if _, exists := stored[field]; exists {
			delete(stored, field)
			removed++
		}
	}
	if len(stored) == 0 {
		delete(sh.data, key)
	}

	return removed, nil
}

// HLen returns the number of fields in the hash at key
func (s *MemoryStorage) HLen(key string) (int64, error) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, err := sh.lookup(key, ValueTypeHash)
	if err != nil || value == nil {
		return 0, err
	}

	return int64(len(value.Data.(*HashValue).Fields)), nil
}

// SAdd adds members to the set at key, creating it if needed. It returns
// the number of members that were not already present; a member repeated
// in the same call is counted once.
func (s *MemoryStorage) SAdd(key string, members ...string) (int64, error) {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	value, err := sh.lookup(key, ValueTypeSet)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}
	if value == nil {
		value = newSetValue()
		sh.data[key] = value
	}

	stored := value.Data.(*SetValue).Members
	added := int64(0)
	for _, member := range members {
		if _, exists := stored[member]; !exists {
			stored[member] = struct{}{}
			added++
		}
	}

	return added, nil
}

// SIsMember reports whether member belongs to the set at key
func (s *MemoryStorage) SIsMember(key, member string) (bool, error) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, err := sh.lookup(key, ValueTypeSet)
	if err != nil || value == nil {
		return false, err
	}

	_, exists := value.Data.(*SetValue).Members[member]
	return exists, nil
}

// SMembers returns the members of the set at key in no particular order
func (s *MemoryStorage) SMembers(key string) ([]string, error) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, err := sh.lookup(key, ValueTypeSet)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return []string{}, nil
	}

	stored := value.Data.(*SetValue).Members
	members := make([]string, 0, len(stored))
	for member := range stored {
		members = append(members, member)
	}

	return members, nil
}

// SCard returns the number of members in the set at key
func (s *MemoryStorage) SCard(key string) (int64, error) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, err := sh.lookup(key, ValueTypeSet)
	if err != nil || value == nil {
		return 0, err
	}

	return int64(len(value.Data.(*SetValue).Members)), nil
}

// SRem removes members from the set at key and returns how many were
// present. A set left without members is removed.
func (s *MemoryStorage) SRem(key string, members ...string) (int64, error) {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	value, err := sh.lookup(key, ValueTypeSet)
	if err != nil || value == nil {
		return 0, err
	}

	stored := value.Data.(*SetValue).Members
	removed := int64(0)
	for _, member := range members {
		if _, exists := stored[member]; exists {
			delete(stored, member)
			removed++
		}
	}
	if len(stored) == 0 {
		delete(sh.data, key)
	}

	return removed, nil
}

// MemoryUsage returns an estimate of the bytes held by keys and values
func (s *MemoryStorage) MemoryUsage() int64 {
	usage := int64(0)

	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for key, value := range sh.data {
			usage += int64(len(key)) + value.size()
		}
		sh.mu.RUnlock()
	}

	return usage
}

// Info returns storage information
func (s *MemoryStorage) Info() map[string]interface{} {
	counts := make(map[ValueType]int64, 3)
	usage := int64(0)

	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for key, value := range sh.data {
			counts[value.Type]++
			usage += int64(len(key)) + value.size()
		}
		sh.mu.RUnlock()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"keys":         counts[ValueTypeString] + counts[ValueTypeHash] + counts[ValueTypeSet],
		"strings":      counts[ValueTypeString],
		"hashes":       counts[ValueTypeHash],
		"sets":         counts[ValueTypeSet],
		"memory_usage": usage,
		"go_memory":    m.Alloc,
		"shards":       len(s.shards),
	}
}

// Close shuts down the storage
func (s *MemoryStorage) Close() error {
	return nil
}
