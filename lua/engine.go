package lua

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	lua "github.com/yuin/gopher-lua"

	"github.com/raniellyferreira/respkv/protocol"
)

// maxReplyDepth bounds recursion when converting nested tables to replies
const maxReplyDepth = 64

// ErrNoScript is returned by EvalSHA for an unknown script hash
var ErrNoScript = errors.New("NOSCRIPT No matching script. Please use EVAL.")

// ScriptError reports a failure while compiling or running a script. The
// message is ready to be sent to the client as an error reply.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string {
	return e.Message
}

// CallFunc runs one command on behalf of a script. args[0] is the command
// name.
type CallFunc func(args []string) protocol.Frame

// Engine provides Redis-compatible Lua script execution
type Engine struct {
	call    CallFunc
	scripts *xsync.MapOf[string, string] // SHA1 -> script content
	timeout time.Duration
}

// Option configures an Engine
type Option func(*Engine)

// WithTimeout bounds the run time of a single script. Zero disables the
// limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// NewEngine creates a new Lua execution engine. Commands issued through
// redis.call and redis.pcall are handed to call.
func NewEngine(call CallFunc, opts ...Option) *Engine {
	e := &Engine{
		call:    call,
		scripts: xsync.NewMapOf[string, string](),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Eval executes a Lua script with the given keys and arguments
func (e *Engine) Eval(script string, keys []string, args []string) (protocol.Frame, error) {
	L := e.newState()
	defer L.Close()

	if e.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		L.SetContext(ctx)
	}

	// Set up the Redis-compatible environment
	e.setupRedisAPI(L, keys, args)

	// Execute the script
	if err := L.DoString(script); err != nil {
		return protocol.Frame{}, scriptError(err)
	}

	// Redis replies with the first value the script returns
	if L.GetTop() == 0 {
		return protocol.NullBulkString(), nil
	}
	return toFrame(L.Get(1), 0), nil
}

// EvalSHA executes a previously loaded script by its SHA1 hash
func (e *Engine) EvalSHA(sha string, keys []string, args []string) (protocol.Frame, error) {
	script, exists := e.scripts.Load(strings.ToLower(sha))
	if !exists {
		return protocol.Frame{}, ErrNoScript
	}

	return e.Eval(script, keys, args)
}

// LoadScript loads a script and returns its SHA1 hash. The script is
// compiled first so that syntax errors are reported at load time.
func (e *Engine) LoadScript(script string) (string, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	if _, err := L.LoadString(script); err != nil {
		return "", scriptError(err)
	}

	hash := sha1Hex(script)
	e.scripts.Store(hash, script)
	return hash, nil
}

// ScriptExists checks if scripts with given SHA1 hashes exist
func (e *Engine) ScriptExists(hashes []string) []bool {
	results := make([]bool, len(hashes))
	for i, hash := range hashes {
		_, results[i] = e.scripts.Load(strings.ToLower(hash))
	}
	return results
}

// ScriptFlush removes all cached scripts
func (e *Engine) ScriptFlush() {
	e.scripts.Clear()
}

// ScriptCount returns the number of cached scripts
func (e *Engine) ScriptCount() int {
	return e.scripts.Size()
}

// newState creates a Lua state with only the safe standard libraries
func (e *Engine) newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	// No file system access from scripts
	for _, name := range []string{"dofile", "loadfile", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}

	return L
}

// setupRedisAPI configures the Lua state with Redis-compatible functions
func (e *Engine) setupRedisAPI(L *lua.LState, keys []string, args []string) {
	// Create KEYS table
	keysTable := L.NewTable()
	for i, key := range keys {
		keysTable.RawSetInt(i+1, lua.LString(key)) // Lua arrays are 1-indexed
	}
	L.SetGlobal("KEYS", keysTable)

	// Create ARGV table
	argvTable := L.NewTable()
	for i, arg := range args {
		argvTable.RawSetInt(i+1, lua.LString(arg))
	}
	L.SetGlobal("ARGV", argvTable)

	redisTable := L.NewTable()
	L.SetFuncs(redisTable, map[string]lua.LGFunction{
		"call":         e.redisCall,
		"pcall":        e.redisPCall,
		"status_reply": statusReply,
		"error_reply":  errorReply,
		"sha1hex":      sha1HexFunc,
	})
	L.SetGlobal("redis", redisTable)
}

// redisCall implements redis.call(). Error replies are raised as Lua errors.
func (e *Engine) redisCall(L *lua.LState) int {
	reply := e.executeRedisCommand(L)
	if reply.IsError() {
		L.Error(errorTable(L, reply.Error()), 1)
		return 0
	}
	L.Push(toLua(L, reply))
	return 1
}

// redisPCall implements redis.pcall(). Error replies are returned as a
// table with an 'err' field.
func (e *Engine) redisPCall(L *lua.LState) int {
	L.Push(toLua(L, e.executeRedisCommand(L)))
	return 1
}

// executeRedisCommand collects the call arguments and runs the command
func (e *Engine) executeRedisCommand(L *lua.LState) protocol.Frame {
	argc := L.GetTop()
	if argc == 0 {
		return protocol.SimpleError("ERR Please specify at least one argument for this redis lib call")
	}

	args := make([]string, argc)
	for i := 1; i <= argc; i++ {
		switch v := L.Get(i).(type) {
		case lua.LString:
			args[i-1] = string(v)
		case lua.LNumber:
			args[i-1] = v.String()
		default:
			return protocol.SimpleError("ERR Lua redis lib command arguments must be strings or integers")
		}
	}

	switch strings.ToUpper(args[0]) {
	case "EVAL", "EVALSHA", "SCRIPT":
		return protocol.SimpleError("ERR This Redis command is not allowed from script")
	}

	return e.call(args)
}

func statusReply(L *lua.LState) int {
	t := L.NewTable()
	t.RawSetString("ok", lua.LString(L.CheckString(1)))
	L.Push(t)
	return 1
}

func errorReply(L *lua.LState) int {
	L.Push(errorTable(L, L.CheckString(1)))
	return 1
}

func sha1HexFunc(L *lua.LState) int {
	L.Push(lua.LString(sha1Hex(L.CheckString(1))))
	return 1
}

func errorTable(L *lua.LState, msg string) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("err", lua.LString(msg))
	return t
}

func sha1Hex(script string) string {
	sum := sha1.Sum([]byte(script))
	return hex.EncodeToString(sum[:])
}

// scriptError converts a gopher-lua failure into a client-facing error.
// Errors raised by redis.call carry the original reply text.
func scriptError(err error) error {
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return &ScriptError{Message: "ERR Error running script: " + err.Error()}
	}

	if t, ok := apiErr.Object.(*lua.LTable); ok {
		if msg, ok := t.RawGetString("err").(lua.LString); ok {
			return &ScriptError{Message: string(msg)}
		}
	}

	switch apiErr.Type {
	case lua.ApiErrorSyntax:
		return &ScriptError{Message: "ERR Error compiling script: " + apiErr.Object.String()}
	default:
		return &ScriptError{Message: "ERR Error running script: " + apiErr.Object.String()}
	}
}

// toLua converts a command reply to a Lua value using Redis' rules
func toLua(L *lua.LState, f protocol.Frame) lua.LValue {
	switch f.Kind {
	case protocol.KindInteger:
		return lua.LNumber(f.Int)
	case protocol.KindBulkString:
		if f.IsAbsent() {
			return lua.LFalse
		}
		return lua.LString(f.Str)
	case protocol.KindSimpleString:
		t := L.NewTable()
		t.RawSetString("ok", lua.LString(f.Str))
		return t
	case protocol.KindError:
		return errorTable(L, string(f.Str))
	case protocol.KindArray, protocol.KindSet:
		if f.IsAbsent() {
			return lua.LFalse
		}
		t := L.NewTable()
		for i, elem := range f.Elems {
			t.RawSetInt(i+1, toLua(L, elem))
		}
		return t
	case protocol.KindMap:
		t := L.NewTable()
		for _, p := range f.Pairs {
			t.RawSet(toLua(L, p.Key), toLua(L, p.Value))
		}
		return t
	case protocol.KindBoolean:
		return lua.LBool(f.Bool)
	case protocol.KindDouble:
		return lua.LNumber(f.Float)
	default:
		return lua.LFalse
	}
}

// toFrame converts a script's return value to a reply using Redis' rules
func toFrame(lv lua.LValue, depth int) protocol.Frame {
	switch v := lv.(type) {
	case lua.LNumber:
		// Redis truncates numbers to integers
		return protocol.Integer(int64(v))
	case lua.LString:
		return protocol.BulkStringFromString(string(v))
	case lua.LBool:
		if v {
			return protocol.One
		}
		return protocol.NullBulkString()
	case *lua.LTable:
		if msg, ok := v.RawGetString("err").(lua.LString); ok {
			return protocol.SimpleError(oneLine(string(msg)))
		}
		if msg, ok := v.RawGetString("ok").(lua.LString); ok {
			return protocol.SimpleString(oneLine(string(msg)))
		}
		if depth >= maxReplyDepth {
			return protocol.SimpleError("ERR reached lua stack limit")
		}
		// The array part ends at the first nil
		elems := make([]protocol.Frame, 0, v.Len())
		for i := 1; ; i++ {
			item := v.RawGetInt(i)
			if item == lua.LNil {
				break
			}
			elems = append(elems, toFrame(item, depth+1))
		}
		return protocol.Array(elems...)
	default:
		return protocol.NullBulkString()
	}
}

// oneLine strips line breaks that would corrupt a simple string or error
func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
