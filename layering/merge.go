// Package layering composes generation records. Composition is top-level
// only: values are carried over by reference so nested objects keep their
// identity across generations.
package layering

import (
	"maps"
	"slices"
)

// Clone returns a shallow copy of record. A nil record clones to an empty one.
func Clone[M ~map[K]V, K comparable, V any](record M) M {
	out := make(M, len(record))
	maps.Copy(out, record)
	return out
}

// Union returns base overlaid with partial. Keys missing from partial keep
// their base value.
func Union[M ~map[K]V, K comparable, V any](base, partial M) M {
	out := make(M, len(base)+len(partial))
	maps.Copy(out, base)
	maps.Copy(out, partial)
	return out
}

// Compose merges layers ordered from strongest to weakest: a key takes its
// value from the strongest layer that defines it.
func Compose[M ~map[K]V, K comparable, V any](layers ...M) M {
	out := make(M)
	for i := len(layers) - 1; i >= 0; i-- {
		maps.Copy(out, layers[i])
	}
	return out
}

// SameKeys reports whether a and b define exactly the same key set.
func SameKeys[M ~map[K]V, K comparable, V any](a, b M) bool {
	if len(a) != len(b) {
		return false
	}
	for key := range a {
		if _, ok := b[key]; !ok {
			return false
		}
	}
	return true
}

// SortedKeys returns the keys of record in ascending order.
func SortedKeys[M ~map[string]V, V any](record M) []string {
	return slices.Sorted(maps.Keys(record))
}
