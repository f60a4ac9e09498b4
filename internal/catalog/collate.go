package catalog

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortByName returns items ordered by name using case- and
// diacritic-insensitive collation. Equal names keep catalog order.
func SortByName[T any](items []T, name func(T) string) []T {
	out := append([]T(nil), items...)
	c := collate.New(language.English, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(out, func(i, j int) bool {
		return c.CompareString(name(out[i]), name(out[j])) < 0
	})
	return out
}

// SortKey is the series sort name, falling back to its name.
func (s Series) SortKey() string {
	if s.SortName != "" {
		return s.SortName
	}
	return s.Name
}
