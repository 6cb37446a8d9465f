package utils

import (
	"sort"
)

// SortedKeys returns m's keys in sorted order, so log lines naming sets of
// migrations or views come out deterministically.
func SortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
