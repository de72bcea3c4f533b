package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	// maxBulkSize is the maximum size for bulk strings (512MB)
	maxBulkSize = 512 * 1024 * 1024

	// maxAggregateSize is the maximum element count for arrays, sets and maps
	maxAggregateSize = 1024 * 1024

	// maxNestingDepth bounds recursion through nested aggregates
	maxNestingDepth = 512

	// maxNumberLength bounds the header line of numeric frames and length prefixes
	maxNumberLength = 32

	// maxLineLength bounds simple strings and simple errors
	maxLineLength = 64 * 1024
)

// ErrIncomplete is returned when the input does not yet hold a full frame.
// It is not a failure: the caller should append more bytes and retry.
var ErrIncomplete = errors.New("incomplete frame")

// ProtocolError reports input that can never become a valid frame. The
// stream position it occurred at is unusable.
type ProtocolError struct {
	Message string
	Offset  int
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s (offset %d)", e.Message, e.Offset)
}

// IsMalformed reports whether err marks malformed protocol data
func IsMalformed(err error) bool {
	var perr *ProtocolError
	return errors.As(err, &perr)
}

// Decode decodes one frame from the front of b and returns it together
// with the number of bytes it occupied.
//
// If b holds only a prefix of a frame, Decode returns ErrIncomplete. If
// the leading bytes cannot be a valid frame it returns a *ProtocolError.
// The returned frame never aliases b.
func Decode(b []byte) (Frame, int, error) {
	d := decoder{buf: b}
	f, err := d.frame(0)
	if err != nil {
		return Frame{}, 0, err
	}
	return f, d.pos, nil
}

type decoder struct {
	buf  []byte
	pos  int
	skip bool // validate only, leave payloads uncopied
}

func (d *decoder) malformed(format string, args ...interface{}) error {
	return &ProtocolError{Message: fmt.Sprintf(format, args...), Offset: d.pos}
}

func (d *decoder) frame(depth int) (Frame, error) {
	if d.pos >= len(d.buf) {
		return Frame{}, ErrIncomplete
	}

	marker := Kind(d.buf[d.pos])
	start := d.pos
	d.pos++

	switch marker {
	case KindSimpleString, KindError:
		line, err := d.readLine(false)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Kind: marker, Str: d.bytes(line)}, nil

	case KindInteger:
		line, err := d.readLine(true)
		if err != nil {
			return Frame{}, err
		}
		n, err := parseInt64(line)
		if err != nil {
			d.pos = start
			return Frame{}, d.malformed("invalid integer %q", line)
		}
		return Integer(n), nil

	case KindBulkString:
		return d.bulkString(start)

	case KindArray, KindSet:
		n, absent, err := d.readLength(marker, start)
		if err != nil {
			return Frame{}, err
		}
		if absent {
			return NullArray(), nil
		}
		if depth+1 > maxNestingDepth {
			d.pos = start
			return Frame{}, d.malformed("nesting deeper than %d levels", maxNestingDepth)
		}
		elems := make([]Frame, 0, min(n, 64))
		for i := 0; i < n; i++ {
			elem, err := d.frame(depth + 1)
			if err != nil {
				return Frame{}, err
			}
			elems = append(elems, elem)
		}
		return Frame{Kind: marker, Elems: elems}, nil

	case KindMap:
		n, _, err := d.readLength(marker, start)
		if err != nil {
			return Frame{}, err
		}
		if depth+1 > maxNestingDepth {
			d.pos = start
			return Frame{}, d.malformed("nesting deeper than %d levels", maxNestingDepth)
		}
		pairs := make([]Pair, 0, min(n, 64))
		for i := 0; i < n; i++ {
			key, err := d.frame(depth + 1)
			if err != nil {
				return Frame{}, err
			}
			value, err := d.frame(depth + 1)
			if err != nil {
				return Frame{}, err
			}
			pairs = append(pairs, Pair{Key: key, Value: value})
		}
		return Map(pairs...), nil

	case KindNull:
		line, err := d.readLine(true)
		if err != nil {
			return Frame{}, err
		}
		if len(line) != 0 {
			d.pos = start
			return Frame{}, d.malformed("unexpected payload %q after null marker", line)
		}
		return Null(), nil

	case KindBoolean:
		line, err := d.readLine(true)
		if err != nil {
			return Frame{}, err
		}
		switch string(line) {
		case "t":
			return Boolean(true), nil
		case "f":
			return Boolean(false), nil
		}
		d.pos = start
		return Frame{}, d.malformed("invalid boolean %q", line)

	case KindDouble:
		line, err := d.readLine(true)
		if err != nil {
			return Frame{}, err
		}
		f, err := parseDouble(line)
		if err != nil {
			d.pos = start
			return Frame{}, d.malformed("invalid double %q", line)
		}
		return Double(f), nil

	default:
		d.pos = start
		if marker == 0 {
			return Frame{}, d.malformed("unknown type: empty byte")
		}
		return Frame{}, d.malformed("unknown type %q (0x%02x)", byte(marker), byte(marker))
	}
}

// skipElement advances past the next element without building it. A
// non-empty aggregate only has its header consumed, and the number of
// child elements that follow is returned.
func (d *decoder) skipElement(depth int) (int, error) {
	if d.pos >= len(d.buf) {
		return 0, ErrIncomplete
	}

	marker := Kind(d.buf[d.pos])
	switch marker {
	case KindArray, KindSet, KindMap:
		start := d.pos
		d.pos++
		n, absent, err := d.readLength(marker, start)
		if err != nil || absent {
			return 0, err
		}
		if depth+1 > maxNestingDepth {
			d.pos = start
			return 0, d.malformed("nesting deeper than %d levels", maxNestingDepth)
		}
		if marker == KindMap {
			return 2 * n, nil
		}
		return n, nil
	default:
		_, err := d.frame(depth)
		return 0, err
	}
}

func (d *decoder) bytes(b []byte) []byte {
	if d.skip {
		return nil
	}
	return copyBytes(b)
}

func (d *decoder) bulkString(start int) (Frame, error) {
	line, err := d.readLine(true)
	if err != nil {
		return Frame{}, err
	}

	length, err := parseInt64(line)
	if err != nil {
		d.pos = start
		return Frame{}, d.malformed("invalid bulk string length %q", line)
	}

	if length == -1 {
		return NullBulkString(), nil
	}
	if length < 0 || length > maxBulkSize {
		d.pos = start
		return Frame{}, d.malformed("invalid bulk string length %d", length)
	}

	n := int(length)
	if len(d.buf)-d.pos < n+2 {
		return Frame{}, ErrIncomplete
	}

	data := d.buf[d.pos : d.pos+n]
	if d.buf[d.pos+n] != '\r' || d.buf[d.pos+n+1] != '\n' {
		d.pos += n
		return Frame{}, d.malformed("bulk string of length %d not followed by CRLF", n)
	}
	d.pos += n + 2

	return Frame{Kind: KindBulkString, Str: d.bytes(data)}, nil
}

// readLength reads an aggregate header. Only arrays may carry the -1 absent
// marker.
func (d *decoder) readLength(kind Kind, start int) (int, bool, error) {
	line, err := d.readLine(true)
	if err != nil {
		return 0, false, err
	}

	n, err := parseInt64(line)
	if err != nil {
		d.pos = start
		return 0, false, d.malformed("invalid %s length %q", kind, line)
	}
	if n == -1 && kind == KindArray {
		return 0, true, nil
	}
	if n < 0 || n > maxAggregateSize {
		d.pos = start
		return 0, false, d.malformed("invalid %s length %d", kind, n)
	}
	return int(n), false, nil
}

// readLine returns the bytes up to the next CRLF and advances past it.
// Lines are bounded so that a stream without a terminator is rejected
// instead of buffered forever.
func (d *decoder) readLine(numeric bool) ([]byte, error) {
	limit := maxLineLength
	if numeric {
		limit = maxNumberLength
	}

	rest := d.buf[d.pos:]
	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 {
		if len(rest) > limit+1 {
			return nil, d.malformed("line exceeds %d bytes", limit)
		}
		return nil, ErrIncomplete
	}

	if idx == 0 || rest[idx-1] != '\r' {
		return nil, d.malformed("missing CRLF terminator")
	}

	line := rest[:idx-1]
	if len(line) > limit {
		return nil, d.malformed("line exceeds %d bytes", limit)
	}

	d.pos += idx + 1
	return line, nil
}

// parseInt64 parses an int64 from a byte slice without allocation.
// A leading '+' or '-' is accepted.
func parseInt64(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, strconv.ErrSyntax
	}

	var neg bool
	var i int

	switch b[0] {
	case '-':
		neg = true
		i = 1
	case '+':
		i = 1
	}

	if i >= len(b) {
		return 0, strconv.ErrSyntax
	}

	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}

	var n uint64
	for ; i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			return 0, strconv.ErrSyntax
		}
		digit := uint64(b[i] - '0')
		if n > (limit-digit)/10 {
			return 0, strconv.ErrRange
		}
		n = n*10 + digit
	}

	if neg {
		return -int64(n), nil
	}
	return int64(n), nil
}

// parseDouble parses a RESP3 double. The token must match
// [+|-]<int>[.<frac>][e|E[+|-]<exp>], or be one of inf, +inf, -inf, nan.
// Overflowing exponents saturate to infinity.
func parseDouble(b []byte) (float64, error) {
	switch string(b) {
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan":
		return math.NaN(), nil
	}

	i := 0
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		i++
	}
	intStart := i
	if i = skipDigits(b, intStart); i == intStart {
		return 0, strconv.ErrSyntax
	}
	if i < len(b) && b[i] == '.' {
		frac := i + 1
		if i = skipDigits(b, frac); i == frac {
			return 0, strconv.ErrSyntax
		}
	}
	if i < len(b) && (b[i] == 'e' || b[i] == 'E') {
		i++
		if i < len(b) && (b[i] == '+' || b[i] == '-') {
			i++
		}
		exp := i
		if i = skipDigits(b, exp); i == exp {
			return 0, strconv.ErrSyntax
		}
	}
	if i != len(b) {
		return 0, strconv.ErrSyntax
	}

	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, err
	}
	return f, nil
}

func skipDigits(b []byte, i int) int {
	for i < len(b) && isDigit(b[i]) {
		i++
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// copyBytes returns a non-nil copy of b
func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
