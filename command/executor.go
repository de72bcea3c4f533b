package command

import (
	"errors"
	"maps"
	"slices"

	"github.com/raniellyferreira/respkv/protocol"
	"github.com/raniellyferreira/respkv/storage"
)

// ScriptRunner runs Lua scripts for EVAL, EVALSHA and SCRIPT. Errors it
// returns carry their reply text, error code included.
type ScriptRunner interface {
	Eval(script string, keys, args []string) (protocol.Frame, error)
	EvalSHA(sha string, keys, args []string) (protocol.Frame, error)
	LoadScript(script string) (string, error)
	ScriptExists(hashes []string) []bool
	ScriptFlush()
}

var errNoScripting = protocol.SimpleError("ERR scripting is not enabled")

// Executor runs commands against a storage. It holds no per-request state
// and is safe for concurrent use.
type Executor struct {
	store   storage.Storage
	scripts ScriptRunner
}

// NewExecutor creates an executor backed by store
func NewExecutor(store storage.Storage) *Executor {
	return &Executor{store: store}
}

// SetScripting enables EVAL, EVALSHA and SCRIPT. It must be called before
// the executor is shared between goroutines.
func (e *Executor) SetScripting(r ScriptRunner) {
	e.scripts = r
}

// Storage returns the backing storage
func (e *Executor) Storage() storage.Storage {
	return e.store
}

// Do parses f and executes the resulting command. Validation failures are
// returned as error replies.
func (e *Executor) Do(f protocol.Frame) protocol.Frame {
	cmd, err := Parse(f)
	if err != nil {
		return errorReply(err)
	}
	return e.Execute(cmd)
}

// Execute runs one command and returns its reply
func (e *Executor) Execute(cmd Command) protocol.Frame {
	switch c := cmd.(type) {
	case Ping:
		if c.HasMessage {
			return protocol.BulkString(c.Message)
		}
		return protocol.Pong

	case Echo:
		return protocol.BulkString(c.Message)

	case Get:
		value, ok, err := e.store.Get(c.Key)
		if err != nil {
			return errorReply(err)
		}
		if !ok {
			return protocol.NullBulkString()
		}
		return protocol.BulkString(value)

	case Set:
		if err := e.store.Set(c.Key, c.Value); err != nil {
			return errorReply(err)
		}
		return protocol.OK

	case Del:
		return protocol.Integer(e.store.Del(c.Keys...))

	case Exists:
		return protocol.Integer(e.store.Exists(c.Keys...))

	case Type:
		return protocol.SimpleString(e.store.Type(c.Key).String())

	case Keys:
		keys := e.store.Keys(c.Pattern)
		slices.Sort(keys)
		return bulkStrings(keys)

	case DBSize:
		return protocol.Integer(e.store.KeyCount())

	case FlushAll:
		if err := e.store.FlushAll(); err != nil {
			return errorReply(err)
		}
		return protocol.OK

	case HSet:
		n, err := e.store.HSet(c.Key, c.Pairs...)
		return integerReply(n, err)

	case HGet:
		value, ok, err := e.store.HGet(c.Key, c.Field)
		if err != nil {
			return errorReply(err)
		}
		if !ok {
			return protocol.NullBulkString()
		}
		return protocol.BulkString(value)

	case HMGet:
		values, err := e.store.HMGet(c.Key, c.Fields...)
		if err != nil {
			return errorReply(err)
		}
		elems := make([]protocol.Frame, len(values))
		for i, v := range values {
			if v == nil {
				elems[i] = protocol.NullBulkString()
			} else {
				elems[i] = protocol.BulkString(v)
			}
		}
		return protocol.Array(elems...)

	case HGetAll:
		fields, err := e.store.HGetAll(c.Key)
		if err != nil {
			return errorReply(err)
		}
		elems := make([]protocol.Frame, 0, len(fields)*2)
		for _, field := range slices.Sorted(maps.Keys(fields)) {
			elems = append(elems, protocol.BulkStringFromString(field), protocol.BulkString(fields[field]))
		}
		return protocol.Array(elems...)

	case HDel:
		n, err := e.store.HDel(c.Key, c.Fields...)
		return integerReply(n, err)

	case HLen:
		n, err := e.store.HLen(c.Key)
		return integerReply(n, err)

	case SAdd:
		n, err := e.store.SAdd(c.Key, c.Members...)
		return integerReply(n, err)

	case SIsMember:
		ok, err := e.store.SIsMember(c.Key, c.Member)
		if err != nil {
			return errorReply(err)
		}
		if ok {
			return protocol.One
		}
		return protocol.Zero

	case SMembers:
		members, err := e.store.SMembers(c.Key)
		if err != nil {
			return errorReply(err)
		}
		slices.Sort(members)
		return bulkStrings(members)

	case SCard:
		n, err := e.store.SCard(c.Key)
		return integerReply(n, err)

	case SRem:
		n, err := e.store.SRem(c.Key, c.Members...)
		return integerReply(n, err)

	case Eval:
		if e.scripts == nil {
			return errNoScripting
		}
		return scriptReply(e.scripts.Eval(c.Script, c.Keys, c.Args))

	case EvalSHA:
		if e.scripts == nil {
			return errNoScripting
		}
		return scriptReply(e.scripts.EvalSHA(c.SHA, c.Keys, c.Args))

	case Script:
		if e.scripts == nil {
			return errNoScripting
		}
		return e.executeScript(c)

	default:
		return protocol.SimpleError("ERR unsupported command")
	}
}

func (e *Executor) executeScript(c Script) protocol.Frame {
	switch c.Sub {
	case "LOAD":
		sha, err := e.scripts.LoadScript(c.Args[0])
		if err != nil {
			return protocol.SimpleError(oneLine(err.Error()))
		}
		return protocol.BulkStringFromString(sha)
	case "EXISTS":
		exists := e.scripts.ScriptExists(c.Args)
		elems := make([]protocol.Frame, len(exists))
		for i, ok := range exists {
			if ok {
				elems[i] = protocol.One
			} else {
				elems[i] = protocol.Zero
			}
		}
		return protocol.Array(elems...)
	default: // FLUSH
		e.scripts.ScriptFlush()
		return protocol.OK
	}
}

func integerReply(n int64, err error) protocol.Frame {
	if err != nil {
		return errorReply(err)
	}
	return protocol.Integer(n)
}

func scriptReply(f protocol.Frame, err error) protocol.Frame {
	if err != nil {
		return protocol.SimpleError(oneLine(err.Error()))
	}
	return f
}

func bulkStrings(values []string) protocol.Frame {
	elems := make([]protocol.Frame, len(values))
	for i, v := range values {
		elems[i] = protocol.BulkStringFromString(v)
	}
	return protocol.Array(elems...)
}

// errorReply turns an error into a SimpleError reply
func errorReply(err error) protocol.Frame {
	var r Replier
	if errors.As(err, &r) {
		return r.Reply()
	}
	if errors.Is(err, storage.ErrWrongType) {
		return protocol.SimpleError(storage.ErrWrongType.Error())
	}
	return protocol.SimpleError(oneLine("ERR " + err.Error()))
}
