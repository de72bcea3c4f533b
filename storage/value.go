package storage

// ValueType represents the Redis data type held by a key
type ValueType int

const (
	ValueTypeNone ValueType = iota
	ValueTypeString
	ValueTypeHash
	ValueTypeSet
)

// String returns the Redis-compatible type name
func (vt ValueType) String() string {
	switch vt {
	case ValueTypeString:
		return "string"
	case ValueTypeHash:
		return "hash"
	case ValueTypeSet:
		return "set"
	default:
		return "none"
	}
}

// Value represents a stored value. Data holds *StringValue, *HashValue or
// *SetValue according to Type.
type Value struct {
	Type ValueType
	Data interface{}
}

// StringValue represents a string value
type StringValue struct {
	Data []byte
}

// HashValue represents a hash value
type HashValue struct {
	Fields map[string][]byte
}

// SetValue represents a set value
type SetValue struct {
	Members map[string]struct{}
}

func newStringValue(data []byte) *Value {
	return &Value{Type: ValueTypeString, Data: &StringValue{Data: cloneBytes(data)}}
}

func newHashValue() *Value {
	return &Value{Type: ValueTypeHash, Data: &HashValue{Fields: make(map[string][]byte)}}
}

func newSetValue() *Value {
	return &Value{Type: ValueTypeSet, Data: &SetValue{Members: make(map[string]struct{})}}
}

// size estimates the payload bytes held by the value
func (v *Value) size() int64 {
	var n int64
	switch data := v.Data.(type) {
	case *StringValue:
		n = int64(len(data.Data))
	case *HashValue:
		for field, value := range data.Fields {
			n += int64(len(field) + len(value))
		}
	case *SetValue:
		for member := range data.Members {
			n += int64(len(member))
		}
	}
	return n
}

// cloneBytes returns a non-nil copy of b
func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
