package protocol

import (
	"math"
	"strconv"
)

const (
	// CRLF is the Redis protocol line terminator
	CRLF = "\r\n"
)

// Encode returns the canonical wire form of f
func Encode(f Frame) []byte {
	return Append(make([]byte, 0, encodedSizeHint(f)), f)
}

// Append appends the canonical wire form of f to dst and returns the
// extended buffer. Every Frame value encodes; unknown kinds are written as
// RESP3 null.
func Append(dst []byte, f Frame) []byte {
	switch f.Kind {
	case KindSimpleString, KindError:
		dst = append(dst, byte(f.Kind))
		dst = append(dst, f.Str...)
		return append(dst, CRLF...)

	case KindInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, f.Int, 10)
		return append(dst, CRLF...)

	case KindBulkString:
		if f.Absent {
			return append(dst, "$-1\r\n"...)
		}
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(f.Str)), 10)
		dst = append(dst, CRLF...)
		dst = append(dst, f.Str...)
		return append(dst, CRLF...)

	case KindArray, KindSet:
		if f.Absent && f.Kind == KindArray {
			return append(dst, "*-1\r\n"...)
		}
		dst = appendHeader(dst, f.Kind, len(f.Elems))
		for _, elem := range f.Elems {
			dst = Append(dst, elem)
		}
		return dst

	case KindMap:
		dst = appendHeader(dst, KindMap, len(f.Pairs))
		for _, p := range f.Pairs {
			dst = Append(dst, p.Key)
			dst = Append(dst, p.Value)
		}
		return dst

	case KindBoolean:
		if f.Bool {
			return append(dst, "#t\r\n"...)
		}
		return append(dst, "#f\r\n"...)

	case KindDouble:
		dst = append(dst, ',')
		dst = append(dst, formatDouble(f.Float)...)
		return append(dst, CRLF...)

	default:
		return append(dst, "_\r\n"...)
	}
}

func appendHeader(dst []byte, kind Kind, n int) []byte {
	dst = append(dst, byte(kind))
	dst = strconv.AppendInt(dst, int64(n), 10)
	return append(dst, CRLF...)
}

// formatDouble returns the shortest text that parses back to f. Integral
// values carry no fractional part.
func formatDouble(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// encodedSizeHint estimates the encoded length of f, to size the output
// buffer up front
func encodedSizeHint(f Frame) int {
	switch f.Kind {
	case KindSimpleString, KindError:
		return len(f.Str) + 3
	case KindBulkString:
		return len(f.Str) + 16
	case KindArray, KindSet:
		n := 16
		for _, elem := range f.Elems {
			n += encodedSizeHint(elem)
		}
		return n
	case KindMap:
		n := 16
		for _, p := range f.Pairs {
			n += encodedSizeHint(p.Key) + encodedSizeHint(p.Value)
		}
		return n
	default:
		return 32
	}
}
