package stats

import (
	"cmp"
	"sort"
	"unicode/utf8"
)

// MaxBy returns the item with the greatest key. Items whose key function
// reports false are not candidates; on ties the first item wins.
func MaxBy[T any, K cmp.Ordered](items []T, key func(T) (K, bool)) (T, K, bool) {
	return pick(items, key, func(a, b K) bool { return a > b })
}

// MinBy returns the item with the smallest key, with the same candidate and
// tie rules as MaxBy.
func MinBy[T any, K cmp.Ordered](items []T, key func(T) (K, bool)) (T, K, bool) {
	return pick(items, key, func(a, b K) bool { return a < b })
}

func pick[T any, K cmp.Ordered](items []T, key func(T) (K, bool), better func(a, b K) bool) (T, K, bool) {
	var (
		best    T
		bestKey K
		found   bool
	)
	for _, it := range items {
		k, ok := key(it)
		if !ok {
			continue
		}
		if !found || better(k, bestKey) {
			best, bestKey, found = it, k, true
		}
	}
	return best, bestKey, found
}

// Bucket is a group key and the number of items in it.
type Bucket[K comparable] struct {
	Key   K
	Count int
}

// CountBy groups items by the keys each one yields and returns the buckets
// in first-seen order.
func CountBy[T any, K comparable](items []T, keys func(T) []K) []Bucket[K] {
	index := make(map[K]int)
	var out []Bucket[K]
	for _, it := range items {
		for _, k := range keys(it) {
			i, ok := index[k]
			if !ok {
				i = len(out)
				index[k] = i
				out = append(out, Bucket[K]{Key: k})
			}
			out[i].Count++
		}
	}
	return out
}

// TopN returns the n largest buckets by count. Ties keep their input order.
func TopN[K comparable](buckets []Bucket[K], n int) []Bucket[K] {
	sorted := append([]Bucket[K](nil), buckets...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Distinct counts the distinct keys across items. Keys are case-sensitive.
func Distinct[T any](items []T, keys func(T) []string) int {
	seen := make(map[string]struct{})
	for _, it := range items {
		for _, k := range keys(it) {
			seen[k] = struct{}{}
		}
	}
	return len(seen)
}

const (
	maxLineLength = 30
	truncatedTo   = 27
)

// Truncate shortens s to 27 characters plus "..." when it is longer than 30
// characters.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxLineLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:truncatedTo]) + "..."
}
