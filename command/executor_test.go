package command_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/lua"
	"github.com/raniellyferreira/respkv/protocol"
	"github.com/raniellyferreira/respkv/storage"
)

func newExecutor() *command.Executor {
	return command.NewExecutor(storage.NewMemory())
}

func do(exec *command.Executor, args ...string) protocol.Frame {
	return exec.Do(protocol.Command(args[0], args[1:]...))
}

func bulk(s string) protocol.Frame {
	return protocol.BulkStringFromString(s)
}

func assertFrame(t *testing.T, want, got protocol.Frame) {
	t.Helper()
	assert.True(t, protocol.Equal(want, got), "want %v, got %v", want, got)
}

func TestExecutor_Ping(t *testing.T) {
	exec := newExecutor()

	assertFrame(t, protocol.SimpleString("PONG"), do(exec, "PING"))
	assertFrame(t, bulk("hello"), do(exec, "PING", "hello"))

	reply := do(exec, "PING", "hello", "world")
	require.True(t, reply.IsError())
	assert.Equal(t, "ERR wrong number of arguments for 'ping' command", reply.Error())
	assert.Equal(t, int64(0), exec.Storage().KeyCount())
}

func TestExecutor_PingMessageIsByteExact(t *testing.T) {
	exec := newExecutor()
	payload := []byte{0, 1, '\r', '\n', 0xff}

	reply := exec.Do(protocol.Array(protocol.BulkStringFromString("PING"), protocol.BulkString(payload)))
	assert.Equal(t, protocol.KindBulkString, reply.Kind)
	assert.Equal(t, payload, reply.Str)
}

func TestExecutor_Echo(t *testing.T) {
	exec := newExecutor()

	assertFrame(t, bulk("hey"), do(exec, "ECHO", "hey"))
	assertFrame(t, bulk(""), do(exec, "echo", ""))
	assert.True(t, do(exec, "ECHO").IsError())
}

func TestExecutor_Scalar(t *testing.T) {
	exec := newExecutor()

	assertFrame(t, protocol.NullBulkString(), do(exec, "GET", "k"))
	assertFrame(t, protocol.OK, do(exec, "SET", "k", "v"))
	assertFrame(t, bulk("v"), do(exec, "GET", "k"))
	assertFrame(t, protocol.OK, do(exec, "SET", "k", ""))
	assertFrame(t, bulk(""), do(exec, "GET", "k"))
}

func TestExecutor_HMGetOrderAndAbsence(t *testing.T) {
	exec := newExecutor()

	assertFrame(t, protocol.Integer(3), do(exec, "HSET", "map", "k1", "v1", "k2", "v2", "k3", "v3"))

	assertFrame(t,
		protocol.Array(bulk("v1"), bulk("v2"), protocol.NullBulkString()),
		do(exec, "HMGET", "map", "k1", "k2", "k5"))

	assertFrame(t,
		protocol.Array(bulk("v3"), protocol.NullBulkString(), bulk("v1")),
		do(exec, "HMGET", "map", "k3", "k9", "k1"))

	assertFrame(t,
		protocol.Array(protocol.NullBulkString(), protocol.NullBulkString(), protocol.NullBulkString()),
		do(exec, "HMGET", "none", "k1", "k2", "k5"))
}

func TestExecutor_HSetCountsNewFields(t *testing.T) {
	exec := newExecutor()

	assertFrame(t, protocol.Integer(1), do(exec, "HSET", "h", "f", "v"))
	assertFrame(t, protocol.Integer(0), do(exec, "HSET", "h", "f", "v2"))
	assertFrame(t, protocol.Integer(1), do(exec, "HSET", "h", "f", "v3", "g", "w"))
	assertFrame(t, bulk("v3"), do(exec, "HGET", "h", "f"))
	assertFrame(t, protocol.NullBulkString(), do(exec, "HGET", "h", "missing"))
	assertFrame(t, protocol.Integer(2), do(exec, "HLEN", "h"))
}

func TestExecutor_HGetAllIsSorted(t *testing.T) {
	exec := newExecutor()
	do(exec, "HSET", "h", "c", "3", "a", "1", "b", "2")

	assertFrame(t,
		protocol.Array(bulk("a"), bulk("1"), bulk("b"), bulk("2"), bulk("c"), bulk("3")),
		do(exec, "HGETALL", "h"))
	assertFrame(t, protocol.Array(), do(exec, "HGETALL", "missing"))
}

func TestExecutor_HDel(t *testing.T) {
	exec := newExecutor()
	do(exec, "HSET", "h", "a", "1", "b", "2")

	assertFrame(t, protocol.Integer(1), do(exec, "HDEL", "h", "a", "zzz"))
	assertFrame(t, protocol.Integer(1), do(exec, "HDEL", "h", "b"))
	assertFrame(t, protocol.SimpleString("none"), do(exec, "TYPE", "h"))
	assertFrame(t, protocol.Integer(0), do(exec, "HLEN", "h"))
}

func TestExecutor_SAddCounting(t *testing.T) {
	exec := newExecutor()

	assertFrame(t, protocol.Integer(1), do(exec, "SADD", "k1", "v1"))
	assertFrame(t, protocol.Integer(1), do(exec, "SADD", "k1", "v1", "v2"))
	assertFrame(t, protocol.Integer(0), do(exec, "SADD", "k1", "v2", "v2"))
	assertFrame(t, protocol.One, do(exec, "SISMEMBER", "k1", "v1"))
	assertFrame(t, protocol.Zero, do(exec, "SISMEMBER", "k1", "v3"))
	assertFrame(t, protocol.Zero, do(exec, "SISMEMBER", "nokey", "v1"))
	assertFrame(t, protocol.Integer(2), do(exec, "SCARD", "k1"))
	assertFrame(t, protocol.Array(bulk("v1"), bulk("v2")), do(exec, "SMEMBERS", "k1"))
}

func TestExecutor_SRem(t *testing.T) {
	exec := newExecutor()
	do(exec, "SADD", "s", "a", "b")

	assertFrame(t, protocol.Integer(1), do(exec, "SREM", "s", "a", "x"))
	assertFrame(t, protocol.Integer(1), do(exec, "SREM", "s", "b"))
	assertFrame(t, protocol.Integer(0), do(exec, "EXISTS", "s"))
	assertFrame(t, protocol.Array(), do(exec, "SMEMBERS", "s"))
}

func TestExecutor_Keyspace(t *testing.T) {
	exec := newExecutor()
	do(exec, "SET", "user:1", "a")
	do(exec, "HSET", "user:2", "f", "v")
	do(exec, "SADD", "group:1", "m")

	assertFrame(t, protocol.Integer(3), do(exec, "DBSIZE"))
	assertFrame(t, protocol.Array(bulk("user:1"), bulk("user:2")), do(exec, "KEYS", "user:*"))
	assertFrame(t, protocol.Array(bulk("group:1"), bulk("user:1"), bulk("user:2")), do(exec, "KEYS", "*"))
	assertFrame(t, protocol.SimpleString("string"), do(exec, "TYPE", "user:1"))
	assertFrame(t, protocol.SimpleString("hash"), do(exec, "TYPE", "user:2"))
	assertFrame(t, protocol.SimpleString("set"), do(exec, "TYPE", "group:1"))
	assertFrame(t, protocol.Integer(3), do(exec, "EXISTS", "user:1", "user:1", "group:1", "nope"))
	assertFrame(t, protocol.Integer(2), do(exec, "DEL", "user:1", "group:1", "nope"))
	assertFrame(t, protocol.OK, do(exec, "FLUSHALL"))
	assertFrame(t, protocol.Integer(0), do(exec, "DBSIZE"))
}

func TestExecutor_WrongType(t *testing.T) {
	exec := newExecutor()
	do(exec, "HSET", "h", "f", "v")
	do(exec, "SADD", "s", "m")

	const wrongType = "WRONGTYPE Operation against a key holding the wrong kind of value"

	tests := [][]string{
		{"SADD", "h", "x"},
		{"SISMEMBER", "h", "x"},
		{"SMEMBERS", "h"},
		{"GET", "h"},
		{"HSET", "s", "f", "v"},
		{"HMGET", "s", "f"},
		{"HGETALL", "s"},
		{"HLEN", "s"},
	}
	for _, args := range tests {
		reply := do(exec, args...)
		assert.Equal(t, wrongType, reply.Error(), "%v", args)
	}

	// The conflicting calls changed nothing
	assertFrame(t, protocol.Array(bulk("f"), bulk("v")), do(exec, "HGETALL", "h"))
	assertFrame(t, protocol.Array(bulk("m")), do(exec, "SMEMBERS", "s"))

	// SET replaces a value of any type
	assertFrame(t, protocol.OK, do(exec, "SET", "h", "plain"))
	assertFrame(t, protocol.SimpleString("string"), do(exec, "TYPE", "h"))
}

func TestExecutor_ValidationErrors(t *testing.T) {
	exec := newExecutor()

	reply := do(exec, "NOPE", "a")
	require.True(t, reply.IsError())
	assert.Contains(t, reply.Error(), "ERR unknown command 'NOPE'")

	reply = exec.Do(protocol.Array(protocol.BulkStringFromString("GET"), protocol.Integer(1)))
	assert.Equal(t, "ERR Protocol error: expected bulk string arguments", reply.Error())

	reply = exec.Do(protocol.SimpleString("PING"))
	assert.True(t, reply.IsError())
}

func TestExecutor_ScriptingDisabled(t *testing.T) {
	exec := newExecutor()

	for _, args := range [][]string{
		{"EVAL", "return 1", "0"},
		{"EVALSHA", "abc", "0"},
		{"SCRIPT", "FLUSH"},
	} {
		assert.Equal(t, "ERR scripting is not enabled", do(exec, args...).Error())
	}
}

func newScriptingExecutor() *command.Executor {
	exec := newExecutor()
	exec.SetScripting(lua.NewEngine(func(args []string) protocol.Frame {
		return exec.Do(protocol.Command(args[0], args[1:]...))
	}))
	return exec
}

func TestExecutor_Eval(t *testing.T) {
	exec := newScriptingExecutor()

	assertFrame(t, bulk("v"), do(exec, "EVAL", "redis.call('SET', KEYS[1], ARGV[1]); return redis.call('GET', KEYS[1])", "1", "k", "v"))
	assertFrame(t, bulk("v"), do(exec, "GET", "k"))

	assertFrame(t, protocol.Integer(2), do(exec, "EVAL", "return redis.call('SADD', KEYS[1], 'a', 'b')", "1", "s"))
	assertFrame(t,
		protocol.Array(bulk("v1"), protocol.NullBulkString()),
		do(exec, "EVAL", "redis.call('HSET', 'h', 'f1', 'v1'); return {redis.call('HGET', 'h', 'f1'), redis.call('HGET', 'h', 'x')}", "0"))
}

func TestExecutor_EvalErrors(t *testing.T) {
	exec := newScriptingExecutor()
	do(exec, "HSET", "h", "f", "v")

	reply := do(exec, "EVAL", "return redis.call('SADD', 'h', 'x')", "0")
	assert.Equal(t, "WRONGTYPE Operation against a key holding the wrong kind of value", reply.Error())

	reply = do(exec, "EVAL", "return redis.call('EVAL', 'return 1', '0')", "0")
	assert.Equal(t, "ERR This Redis command is not allowed from script", reply.Error())

	reply = do(exec, "EVAL", "return +", "0")
	assert.Contains(t, reply.Error(), "ERR Error compiling script")
	assert.NotContains(t, reply.Error(), "\n")

	reply = do(exec, "EVALSHA", "ffffffffffffffffffffffffffffffffffffffff", "0")
	assert.Equal(t, "NOSCRIPT No matching script. Please use EVAL.", reply.Error())
}

func TestExecutor_ScriptCache(t *testing.T) {
	exec := newScriptingExecutor()

	loaded := do(exec, "SCRIPT", "LOAD", "return ARGV[1]")
	require.Equal(t, protocol.KindBulkString, loaded.Kind)
	sha := string(loaded.Str)
	require.Len(t, sha, 40)

	assertFrame(t, bulk("x"), do(exec, "EVALSHA", sha, "0", "x"))
	assertFrame(t, protocol.Array(protocol.One, protocol.Zero), do(exec, "SCRIPT", "EXISTS", sha, "nope"))
	assertFrame(t, protocol.OK, do(exec, "SCRIPT", "FLUSH"))
	assertFrame(t, protocol.Array(protocol.Zero), do(exec, "SCRIPT", "EXISTS", sha))

	reply := do(exec, "SCRIPT", "LOAD", "return +")
	assert.True(t, reply.IsError())
}

// TestExecutor_ConcurrentSAdd checks that every distinct member is reported
// as new exactly once however the calls interleave
func TestExecutor_ConcurrentSAdd(t *testing.T) {
	exec := newExecutor()

	const workers = 32
	const members = 500

	var added atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < members; i++ {
				reply := do(exec, "SADD", "k", fmt.Sprintf("member-%d", i))
				added.Add(reply.Int)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(members), added.Load())
	assertFrame(t, protocol.Integer(members), do(exec, "SCARD", "k"))
}

func TestExecutor_ConcurrentHSet(t *testing.T) {
	exec := newExecutor()

	const workers = 16
	const fields = 200

	var created atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < fields; i++ {
				reply := do(exec, "HSET", "h", fmt.Sprintf("f%d", i), fmt.Sprintf("w%d", id))
				created.Add(reply.Int)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int64(fields), created.Load())
	assertFrame(t, protocol.Integer(fields), do(exec, "HLEN", "h"))
}
