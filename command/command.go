package command

import (
	"github.com/raniellyferreira/respkv/storage"
)

// Command is one validated request. The set of implementations is closed;
// Execute dispatches over it with a single type switch.
type Command interface {
	// Name returns the lower-case command name
	Name() string
	command()
}

// Ping replies PONG, or echoes Message when HasMessage is set
type Ping struct {
	Message    []byte
	HasMessage bool
}

// Echo replies with Message
type Echo struct {
	Message []byte
}

// Get reads a scalar value
type Get struct {
	Key string
}

// Set writes a scalar value, replacing a value of any type
type Set struct {
	Key   string
	Value []byte
}

// Del removes keys of any type
type Del struct {
	Keys []string
}

// Exists counts the given keys that exist. Repeated keys count repeatedly.
type Exists struct {
	Keys []string
}

// Type reports the namespace a key lives in
type Type struct {
	Key string
}

// Keys lists the keys matching a glob pattern
type Keys struct {
	Pattern string
}

// DBSize counts all keys
type DBSize struct{}

// FlushAll removes every key
type FlushAll struct{}

// HSet writes field/value pairs into a hash
type HSet struct {
	Key   string
	Pairs []storage.FieldValue
}

// HGet reads one hash field
type HGet struct {
	Key   string
	Field string
}

// HMGet reads several hash fields in the order given
type HMGet struct {
	Key    string
	Fields []string
}

// HGetAll reads every field of a hash
type HGetAll struct {
	Key string
}

// HDel removes hash fields
type HDel struct {
	Key    string
	Fields []string
}

// HLen counts the fields of a hash
type HLen struct {
	Key string
}

// SAdd adds members to a set
type SAdd struct {
	Key     string
	Members []string
}

// SIsMember tests set membership
type SIsMember struct {
	Key    string
	Member string
}

// SMembers lists the members of a set
type SMembers struct {
	Key string
}

// SCard counts the members of a set
type SCard struct {
	Key string
}

// SRem removes members from a set
type SRem struct {
	Key     string
	Members []string
}

// Eval runs a Lua script
type Eval struct {
	Script string
	Keys   []string
	Args   []string
}

// EvalSHA runs a cached Lua script by its SHA1 digest
type EvalSHA struct {
	SHA  string
	Keys []string
	Args []string
}

// Script manages the script cache. Sub is one of LOAD, EXISTS or FLUSH.
type Script struct {
	Sub  string
	Args []string
}

func (Ping) Name() string      { return "ping" }
func (Echo) Name() string      { return "echo" }
func (Get) Name() string       { return "get" }
func (Set) Name() string       { return "set" }
func (Del) Name() string       { return "del" }
func (Exists) Name() string    { return "exists" }
func (Type) Name() string      { return "type" }
func (Keys) Name() string      { return "keys" }
func (DBSize) Name() string    { return "dbsize" }
func (FlushAll) Name() string  { return "flushall" }
func (HSet) Name() string      { return "hset" }
func (HGet) Name() string      { return "hget" }
func (HMGet) Name() string     { return "hmget" }
func (HGetAll) Name() string   { return "hgetall" }
func (HDel) Name() string      { return "hdel" }
func (HLen) Name() string      { return "hlen" }
func (SAdd) Name() string      { return "sadd" }
func (SIsMember) Name() string { return "sismember" }
func (SMembers) Name() string  { return "smembers" }
func (SCard) Name() string     { return "scard" }
func (SRem) Name() string      { return "srem" }
func (Eval) Name() string      { return "eval" }
func (EvalSHA) Name() string   { return "evalsha" }
func (Script) Name() string    { return "script" }

func (Ping) command()      {}
func (Echo) command()      {}
func (Get) command()       {}
func (Set) command()       {}
func (Del) command()       {}
func (Exists) command()    {}
func (Type) command()      {}
func (Keys) command()      {}
func (DBSize) command()    {}
func (FlushAll) command()  {}
func (HSet) command()      {}
func (HGet) command()      {}
func (HMGet) command()     {}
func (HGetAll) command()   {}
func (HDel) command()      {}
func (HLen) command()      {}
func (SAdd) command()      {}
func (SIsMember) command() {}
func (SMembers) command()  {}
func (SCard) command()     {}
func (SRem) command()      {}
func (Eval) command()      {}
func (EvalSHA) command()   {}
func (Script) command()    {}
