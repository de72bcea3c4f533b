package protocol

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the wire shape of a Frame. The value is the type marker
// byte that starts the frame on the wire.
type Kind byte

const (
	KindSimpleString Kind = '+'
	KindError        Kind = '-'
	KindInteger      Kind = ':'
	KindBulkString   Kind = '$'
	KindArray        Kind = '*'
	KindNull         Kind = '_'
	KindBoolean      Kind = '#'
	KindDouble       Kind = ','
	KindMap          Kind = '%'
	KindSet          Kind = '~'
)

// String returns the RESP name of the kind
func (k Kind) String() string {
	switch k {
	case KindSimpleString:
		return "simple-string"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulkString:
		return "bulk-string"
	case KindArray:
		return "array"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindDouble:
		return "double"
	case KindMap:
		return "map"
	case KindSet:
		return "set"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(k))
	}
}

// Frame is one decoded RESP value.
//
// Only the fields that belong to Kind are meaningful. Absent is used by
// KindBulkString and KindArray to carry the wire's "$-1" and "*-1" states;
// an absent frame is distinct from an empty one and from KindNull.
type Frame struct {
	Kind   Kind
	Str    []byte  // simple string, error, bulk string
	Int    int64   // integer
	Float  float64 // double
	Bool   bool    // boolean
	Elems  []Frame // array, set
	Pairs  []Pair  // map
	Absent bool    // bulk string, array
}

// Pair is one key/value entry of a map frame
type Pair struct {
	Key   Frame
	Value Frame
}

// SimpleString creates a simple string frame. s must not contain CR or LF.
func SimpleString(s string) Frame {
	return Frame{Kind: KindSimpleString, Str: []byte(s)}
}

// SimpleError creates an error frame. s must not contain CR or LF.
func SimpleError(s string) Frame {
	return Frame{Kind: KindError, Str: []byte(s)}
}

// Integer creates an integer frame
func Integer(n int64) Frame {
	return Frame{Kind: KindInteger, Int: n}
}

// BulkString creates a present bulk string frame. A nil b is treated as
// the empty string, not as absent.
func BulkString(b []byte) Frame {
	if b == nil {
		b = []byte{}
	}
	return Frame{Kind: KindBulkString, Str: b}
}

// BulkStringFromString creates a present bulk string frame from s
func BulkStringFromString(s string) Frame {
	return Frame{Kind: KindBulkString, Str: []byte(s)}
}

// NullBulkString creates an absent bulk string frame ("$-1")
func NullBulkString() Frame {
	return Frame{Kind: KindBulkString, Absent: true}
}

// Array creates a present array frame
func Array(elems ...Frame) Frame {
	if elems == nil {
		elems = []Frame{}
	}
	return Frame{Kind: KindArray, Elems: elems}
}

// NullArray creates an absent array frame ("*-1")
func NullArray() Frame {
	return Frame{Kind: KindArray, Absent: true}
}

// Null creates the RESP3 null frame ("_")
func Null() Frame {
	return Frame{Kind: KindNull}
}

// Boolean creates a boolean frame
func Boolean(b bool) Frame {
	return Frame{Kind: KindBoolean, Bool: b}
}

// Double creates a double frame
func Double(f float64) Frame {
	return Frame{Kind: KindDouble, Float: f}
}

// Map creates a map frame. Entry order is kept as given.
func Map(pairs ...Pair) Frame {
	if pairs == nil {
		pairs = []Pair{}
	}
	return Frame{Kind: KindMap, Pairs: pairs}
}

// Set creates a set frame. Element order is kept and uniqueness is not
// enforced.
func Set(elems ...Frame) Frame {
	if elems == nil {
		elems = []Frame{}
	}
	return Frame{Kind: KindSet, Elems: elems}
}

// Common replies
var (
	OK   = SimpleString("OK")
	Pong = SimpleString("PONG")
	Zero = Integer(0)
	One  = Integer(1)
)

// IsError returns true if this is an error frame
func (f Frame) IsError() bool {
	return f.Kind == KindError
}

// Error returns the error message if this is an error frame
func (f Frame) Error() string {
	if f.Kind == KindError {
		return string(f.Str)
	}
	return ""
}

// Bytes returns the string payload of the frame
func (f Frame) Bytes() []byte {
	return f.Str
}

// IsAbsent reports whether f is an absent bulk string or an absent array
func (f Frame) IsAbsent() bool {
	return f.Absent && (f.Kind == KindBulkString || f.Kind == KindArray)
}

// String returns a human readable representation of the frame
func (f Frame) String() string {
	switch f.Kind {
	case KindSimpleString, KindError:
		return string(f.Str)
	case KindInteger:
		return strconv.FormatInt(f.Int, 10)
	case KindBulkString:
		if f.Absent {
			return "(nil)"
		}
		return string(f.Str)
	case KindArray, KindSet:
		if f.IsAbsent() {
			return "(nil)"
		}
		parts := make([]string, len(f.Elems))
		for i, item := range f.Elems {
			parts[i] = item.String()
		}
		if f.Kind == KindSet {
			return "{" + strings.Join(parts, ", ") + "}"
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindNull:
		return "(nil)"
	case KindBoolean:
		return strconv.FormatBool(f.Bool)
	case KindDouble:
		return formatDouble(f.Float)
	case KindMap:
		parts := make([]string, len(f.Pairs))
		for i, p := range f.Pairs {
			parts[i] = p.Key.String() + ": " + p.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("unknown type %c", byte(f.Kind))
	}
}

// Equal reports whether a and b are the same frame.
//
// Absent bulk strings and arrays are only equal to absent frames of the same
// kind. Doubles compare by their canonical wire text, so NaN equals NaN.
// Maps and sets compare element by element in order. Frames of an unknown
// kind, the zero Frame included, carry no payload and are equal when their
// kinds match.
func Equal(a, b Frame) bool {
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case KindSimpleString, KindError:
		return bytes.Equal(a.Str, b.Str)
	case KindBulkString:
		if a.Absent || b.Absent {
			return a.Absent == b.Absent
		}
		return bytes.Equal(a.Str, b.Str)
	case KindInteger:
		return a.Int == b.Int
	case KindNull:
		return true
	case KindBoolean:
		return a.Bool == b.Bool
	case KindDouble:
		return formatDouble(a.Float) == formatDouble(b.Float)
	case KindArray, KindSet:
		if a.IsAbsent() || b.IsAbsent() {
			return a.IsAbsent() == b.IsAbsent()
		}
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.Pairs) != len(b.Pairs) {
			return false
		}
		for i := range a.Pairs {
			if !Equal(a.Pairs[i].Key, b.Pairs[i].Key) || !Equal(a.Pairs[i].Value, b.Pairs[i].Value) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Compare defines a total order over frames for deterministic sorting.
// Frames order first by kind marker, then by payload; absent sorts before
// present, and aggregates compare element-wise then by length.
func Compare(a, b Frame) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}

	switch a.Kind {
	case KindSimpleString, KindError:
		return bytes.Compare(a.Str, b.Str)
	case KindBulkString:
		if c := compareAbsent(a, b); c != 0 || a.Absent {
			return c
		}
		return bytes.Compare(a.Str, b.Str)
	case KindInteger:
		return cmp.Compare(a.Int, b.Int)
	case KindBoolean:
		return compareBool(a.Bool, b.Bool)
	case KindDouble:
		return compareDouble(a.Float, b.Float)
	case KindArray, KindSet:
		if c := compareAbsent(a, b); c != 0 || a.IsAbsent() {
			return c
		}
		for i := 0; i < len(a.Elems) && i < len(b.Elems); i++ {
			if c := Compare(a.Elems[i], b.Elems[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(a.Elems), len(b.Elems))
	case KindMap:
		for i := 0; i < len(a.Pairs) && i < len(b.Pairs); i++ {
			if c := Compare(a.Pairs[i].Key, b.Pairs[i].Key); c != 0 {
				return c
			}
			if c := Compare(a.Pairs[i].Value, b.Pairs[i].Value); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(a.Pairs), len(b.Pairs))
	default:
		return 0
	}
}

func compareAbsent(a, b Frame) int {
	switch {
	case a.IsAbsent() == b.IsAbsent():
		return 0
	case a.IsAbsent():
		return -1
	default:
		return 1
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// compareDouble orders NaN before every other value
func compareDouble(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
