// Package command turns request frames into typed commands and runs them
// against a storage.
//
// Parse validates a frame against the command table (name, arity and
// argument shape) and yields one of the variant types in this package.
// Executor.Execute dispatches over those variants and produces the reply
// frame. Executor.Do chains both and is what the server and the Lua
// bridge call:
//
//	exec := command.NewExecutor(storage.NewMemory())
//	reply := exec.Do(protocol.Command("HMGET", "user:1", "name", "email"))
//
// Validation failures never reach the storage. They are returned as
// *ArityError, *UnknownCommandError or *ArgumentError, each of which
// renders its own error reply. Missing keys and fields are not errors.
package command
