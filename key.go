package histstats

import "golang.org/x/exp/constraints"

// Key is the constraint satisfied by the types used to identify histograms.
//
// Keys are typically small integer enums whose String method returns the
// display name of the metric. The ordering of keys (as defined by the < operator)
// is used whenever a deterministic order is needed and no canonical order was
// configured.
type Key interface {
	constraints.Ordered
	String() string
}

// KeysByName returns a lookup function resolving display names to keys among
// the given list.
//
// When multiple keys share the same name, the first one wins.
func KeysByName[K Key](keys ...K) func(string) (K, bool) {
	index := make(map[string]K, len(keys))

	for _, k := range keys {
		name := k.String()
		if _, exists := index[name]; !exists {
			index[name] = k
		}
	}

	return func(name string) (K, bool) {
		k, ok := index[name]
		return k, ok
	}
}
