package annotation

import (
	"maps"
	"slices"
	"strings"
)

// Bag maps case-sensitive annotation keys to typed values.
type Bag map[string]Value

// Get returns the value stored under key.
func (b Bag) Get(key string) (Value, bool) {
	v, ok := b[key]
	return v, ok
}

// Has reports whether key is present.
func (b Bag) Has(key string) bool {
	_, ok := b[key]
	return ok
}

// Keys returns the keys in sorted order.
func (b Bag) Keys() []string {
	return slices.Sorted(maps.Keys(b))
}

// Merge copies every entry of other into b, overwriting existing keys.
func (b Bag) Merge(other Bag) {
	maps.Copy(b, other)
}

// MergeMissing copies entries of other whose keys are absent from b.
func (b Bag) MergeMissing(other Bag) {
	for k, v := range other {
		if _, ok := b[k]; !ok {
			b[k] = v
		}
	}
}

// Clone returns a shallow copy; values are immutable so this is sufficient.
func (b Bag) Clone() Bag {
	if b == nil {
		return nil
	}

	return maps.Clone(b)
}

// Equal compares two bags structurally. A nil bag equals an empty one.
func (b Bag) Equal(o Bag) bool {
	return maps.EqualFunc(b, o, Value.Equal)
}

// Map converts the bag to plain Go data for templates.
func (b Bag) Map() map[string]any {
	out := make(map[string]any, len(b))
	for k, v := range b {
		out[k] = v.Interface()
	}

	return out
}

// String renders the bag as sorted "key = value" entries.
func (b Bag) String() string {
	parts := make([]string, 0, len(b))
	for _, k := range b.Keys() {
		parts = append(parts, k+" = "+b[k].String())
	}

	return strings.Join(parts, ", ")
}
