package command

import (
	"strconv"
	"strings"

	"github.com/raniellyferreira/respkv/protocol"
	"github.com/raniellyferreira/respkv/storage"
)

// commandSpec describes one entry of the command table. arity counts the
// command name; a negative arity is a minimum, as in Redis.
type commandSpec struct {
	arity int
	parse func(args [][]byte) (Command, error)
}

var commandTable = map[string]commandSpec{
	"ping":      {-1, parsePing},
	"echo":      {2, func(a [][]byte) (Command, error) { return Echo{Message: a[0]}, nil }},
	"get":       {2, func(a [][]byte) (Command, error) { return Get{Key: string(a[0])}, nil }},
	"set":       {3, func(a [][]byte) (Command, error) { return Set{Key: string(a[0]), Value: a[1]}, nil }},
	"del":       {-2, func(a [][]byte) (Command, error) { return Del{Keys: toStrings(a)}, nil }},
	"exists":    {-2, func(a [][]byte) (Command, error) { return Exists{Keys: toStrings(a)}, nil }},
	"type":      {2, func(a [][]byte) (Command, error) { return Type{Key: string(a[0])}, nil }},
	"keys":      {2, func(a [][]byte) (Command, error) { return Keys{Pattern: string(a[0])}, nil }},
	"dbsize":    {1, func(a [][]byte) (Command, error) { return DBSize{}, nil }},
	"flushall":  {-1, parseFlushAll},
	"hset":      {-4, parseHSet},
	"hget":      {3, func(a [][]byte) (Command, error) { return HGet{Key: string(a[0]), Field: string(a[1])}, nil }},
	"hmget":     {-3, func(a [][]byte) (Command, error) { return HMGet{Key: string(a[0]), Fields: toStrings(a[1:])}, nil }},
	"hgetall":   {2, func(a [][]byte) (Command, error) { return HGetAll{Key: string(a[0])}, nil }},
	"hdel":      {-3, func(a [][]byte) (Command, error) { return HDel{Key: string(a[0]), Fields: toStrings(a[1:])}, nil }},
	"hlen":      {2, func(a [][]byte) (Command, error) { return HLen{Key: string(a[0])}, nil }},
	"sadd":      {-3, func(a [][]byte) (Command, error) { return SAdd{Key: string(a[0]), Members: toStrings(a[1:])}, nil }},
	"sismember": {3, func(a [][]byte) (Command, error) { return SIsMember{Key: string(a[0]), Member: string(a[1])}, nil }},
	"smembers":  {2, func(a [][]byte) (Command, error) { return SMembers{Key: string(a[0])}, nil }},
	"scard":     {2, func(a [][]byte) (Command, error) { return SCard{Key: string(a[0])}, nil }},
	"srem":      {-3, func(a [][]byte) (Command, error) { return SRem{Key: string(a[0]), Members: toStrings(a[1:])}, nil }},
	"eval":      {-3, parseEval},
	"evalsha":   {-3, parseEvalSHA},
	"script":    {-2, parseScript},
}

// Parse converts a request frame into a Command. The frame must be a
// non-empty array of bulk strings whose first element names the command.
// Validation failures implement Replier.
func Parse(f protocol.Frame) (Command, error) {
	if f.Kind != protocol.KindArray || f.IsAbsent() || len(f.Elems) == 0 {
		return nil, errNotArray
	}

	args := make([][]byte, len(f.Elems))
	for i, elem := range f.Elems {
		if elem.Kind != protocol.KindBulkString || elem.IsAbsent() {
			return nil, errNotBulkString
		}
		args[i] = elem.Str
	}

	name := strings.ToLower(string(args[0]))
	spec, ok := commandTable[name]
	if !ok {
		return nil, &UnknownCommandError{Name: string(args[0]), Args: toStrings(args[1:])}
	}
	if !arityOK(spec.arity, len(args)) {
		return nil, &ArityError{Command: name}
	}

	return spec.parse(args[1:])
}

// Supported reports whether name, in any case, is in the command table
func Supported(name string) bool {
	_, ok := commandTable[strings.ToLower(name)]
	return ok
}

func arityOK(arity, n int) bool {
	if arity >= 0 {
		return n == arity
	}
	return n >= -arity
}

func parsePing(args [][]byte) (Command, error) {
	switch len(args) {
	case 0:
		return Ping{}, nil
	case 1:
		return Ping{Message: args[0], HasMessage: true}, nil
	default:
		return nil, &ArityError{Command: "ping"}
	}
}

func parseFlushAll(args [][]byte) (Command, error) {
	switch len(args) {
	case 0:
		return FlushAll{}, nil
	case 1:
		// The store is flushed synchronously either way
		mode := strings.ToUpper(string(args[0]))
		if mode == "ASYNC" || mode == "SYNC" {
			return FlushAll{}, nil
		}
		return nil, errSyntax
	default:
		return nil, errSyntax
	}
}

func parseHSet(args [][]byte) (Command, error) {
	rest := args[1:]
	if len(rest)%2 != 0 {
		return nil, &ArityError{Command: "hset"}
	}

	pairs := make([]storage.FieldValue, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		pairs = append(pairs, storage.FieldValue{Field: string(rest[i]), Value: rest[i+1]})
	}
	return HSet{Key: string(args[0]), Pairs: pairs}, nil
}

func parseEval(args [][]byte) (Command, error) {
	keys, argv, err := splitKeysAndArgs(args[1:])
	if err != nil {
		return nil, err
	}
	return Eval{Script: string(args[0]), Keys: keys, Args: argv}, nil
}

func parseEvalSHA(args [][]byte) (Command, error) {
	keys, argv, err := splitKeysAndArgs(args[1:])
	if err != nil {
		return nil, err
	}
	return EvalSHA{SHA: string(args[0]), Keys: keys, Args: argv}, nil
}

// splitKeysAndArgs reads "numkeys key [key ...] arg [arg ...]"
func splitKeysAndArgs(args [][]byte) ([]string, []string, error) {
	numKeys, err := strconv.Atoi(string(args[0]))
	if err != nil {
		return nil, nil, errNotInteger
	}

	rest := args[1:]
	if numKeys < 0 || numKeys > len(rest) {
		return nil, nil, errNumKeys
	}

	return toStrings(rest[:numKeys]), toStrings(rest[numKeys:]), nil
}

func parseScript(args [][]byte) (Command, error) {
	sub := strings.ToUpper(string(args[0]))
	rest := toStrings(args[1:])

	switch sub {
	case "LOAD":
		if len(rest) != 1 {
			return nil, &ArityError{Command: "script|load"}
		}
	case "EXISTS":
		if len(rest) == 0 {
			return nil, &ArityError{Command: "script|exists"}
		}
	case "FLUSH":
		if len(rest) > 1 {
			return nil, &ArityError{Command: "script|flush"}
		}
		if len(rest) == 1 {
			mode := strings.ToUpper(rest[0])
			if mode != "ASYNC" && mode != "SYNC" {
				return nil, errSyntax
			}
		}
	default:
		return nil, &ArgumentError{Message: "ERR unknown SCRIPT subcommand '" + truncate(string(args[0])) + "'"}
	}

	return Script{Sub: sub, Args: rest}, nil
}

func toStrings(args [][]byte) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = string(arg)
	}
	return out
}
