package catalog

import (
	"sort"
	"strings"
)

const (
	FilterAll        = "All"
	FilterStreamPlus = "Stream+"

	SortNewest = "newest"
	SortOldest = "oldest"
)

// Query filters by category tag and title search as one predicate, then
// sorts the survivors by release year. It never mutates titles.
//
// A tag of "All" (or empty) and the "Stream+" tag pass every title; any other
// tag must appear, case-insensitively, in the title or summary. The search
// term must appear in the title. An unknown sort key keeps input order.
func Query(titles []Title, filterTag, sortKey, searchTerm string) []Title {
	tag := strings.ToLower(strings.TrimSpace(filterTag))
	term := strings.ToLower(strings.TrimSpace(searchTerm))

	out := make([]Title, 0, len(titles))
	for _, t := range titles {
		if matchesTag(t, tag) && matchesSearch(t, term) {
			out = append(out, t)
		}
	}

	SortByYear(out, sortKey)
	return out
}

func matchesTag(t Title, tag string) bool {
	switch tag {
	case "", strings.ToLower(FilterAll), strings.ToLower(FilterStreamPlus):
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), tag) ||
		strings.Contains(strings.ToLower(t.Summary), tag)
}

func matchesSearch(t Title, term string) bool {
	return term == "" || strings.Contains(strings.ToLower(t.Title), term)
}

// SortByYear is stable; ties keep their relative order.
func SortByYear(titles []Title, sortKey string) {
	switch strings.ToLower(strings.TrimSpace(sortKey)) {
	case SortNewest:
		sort.SliceStable(titles, func(i, j int) bool { return titles[i].ReleaseYear > titles[j].ReleaseYear })
	case SortOldest:
		sort.SliceStable(titles, func(i, j int) bool { return titles[i].ReleaseYear < titles[j].ReleaseYear })
	}
}
