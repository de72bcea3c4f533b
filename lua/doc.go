// Package lua runs Redis-compatible Lua scripts for EVAL and EVALSHA.
//
// An Engine knows nothing about storage. Commands issued from a script
// through redis.call and redis.pcall are handed to the CallFunc given to
// NewEngine, which is expected to run them against the same keyspace
// clients see:
//
//	engine := lua.NewEngine(func(args []string) protocol.Frame {
//		return exec.Do(protocol.Command(args[0], args[1:]...))
//	})
//	reply, err := engine.Eval("return redis.call('GET', KEYS[1])", []string{"k"}, nil)
//
// Each evaluation gets a fresh interpreter with the base, table, string
// and math libraries only. KEYS and ARGV hold the script arguments, and
// replies convert between Lua values and frames with the same rules Redis
// uses (integers become numbers, a missing bulk string becomes false, a
// status reply becomes a table with an "ok" field, an error reply becomes
// a table with an "err" field).
//
// Scripts from EVAL, EVALSHA and SCRIPT cannot be invoked from inside a
// script. Loaded scripts are cached by their SHA1 digest until
// ScriptFlush.
package lua
