package annotation

import (
	"slices"
	"strconv"
	"strings"

	"source-weaver/internal/common"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindSequence
	KindMapping
)

// String returns the variant name.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return common.UnknownStr
	}
}

// Value is a tagged union of the annotation value variants.
// The zero Value is the empty string.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	seq  []Value
	bag  Bag
}

// String constructs a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number constructs a number value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Sequence constructs an ordered sequence value.
func Sequence(items ...Value) Value {
	return Value{kind: KindSequence, seq: slices.Clone(items)}
}

// Mapping constructs a nested mapping value.
func Mapping(bag Bag) Value {
	return Value{kind: KindMapping, bag: bag.Clone()}
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the number payload.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsSequence returns the sequence payload.
func (v Value) AsSequence() ([]Value, bool) { return v.seq, v.kind == KindSequence }

// AsMapping returns the mapping payload.
func (v Value) AsMapping() (Bag, bool) { return v.bag, v.kind == KindMapping }

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindSequence:
		return slices.EqualFunc(v.seq, o.seq, Value.Equal)
	case KindMapping:
		return v.bag.Equal(o.bag)
	default:
		return false
	}
}

// Interface converts the value to plain Go data for templates:
// string, float64, bool, []any, or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}

		return out
	case KindMapping:
		return v.bag.Map()
	default:
		return v.str
	}
}

// String renders the value in annotation literal syntax.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindSequence:
		parts := make([]string, len(v.seq))
		for i, item := range v.seq {
			parts[i] = item.String()
		}

		return "[" + strings.Join(parts, ", ") + "]"
	case KindMapping:
		return "{" + v.bag.String() + "}"
	default:
		return strconv.Quote(v.str)
	}
}

// Matches compares the value with plain Go data (string, bool, numbers).
// Strings also match the textual form of numbers and booleans.
func (v Value) Matches(want any) bool {
	switch w := want.(type) {
	case Value:
		return v.Equal(w)
	case string:
		if s, ok := v.AsString(); ok {
			return s == w
		}

		return v.kind != KindSequence && v.kind != KindMapping && v.String() == w
	case bool:
		b, ok := v.AsBool()
		return ok && b == w
	case int:
		n, ok := v.AsNumber()
		return ok && n == float64(w)
	case int64:
		n, ok := v.AsNumber()
		return ok && n == float64(w)
	case float64:
		n, ok := v.AsNumber()
		return ok && n == w
	default:
		return false
	}
}
