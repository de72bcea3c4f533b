// Package respkv is an in-memory key-value server that speaks RESP, the
// Redis wire protocol.
//
// A Node holds a sharded store with three namespaces (strings, hashes and
// sets), the command executor in front of it, a Lua scripting engine and
// a TCP server. Any Redis client can talk to it:
//
//	node, err := respkv.New(respkv.WithAddr(":6379"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer node.Close()
//
//	if err := node.Start(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//
// The same commands can be issued in-process:
//
//	node.Exec("SADD", "tags", "go", "redis")
//	reply := node.Exec("SISMEMBER", "tags", "go") // :1
//
// Supported commands are PING, ECHO, GET, SET, DEL, EXISTS, TYPE, KEYS,
// DBSIZE, FLUSHALL, HSET, HGET, HMGET, HGETALL, HDEL, HLEN, SADD,
// SISMEMBER, SMEMBERS, SCARD, SREM, EVAL, EVALSHA, SCRIPT and QUIT.
// Using a key from the wrong namespace replies with a WRONGTYPE error.
//
// The wire codec lives in package protocol, the store in package storage,
// command parsing and execution in package command, scripting in package
// lua and the TCP transport in package server.
package respkv
