package activities

import (
	"net/url"
	"sort"
	"strings"
)

type SortMode string

const (
	SortNone   SortMode = ""
	SortByName SortMode = "name"
	SortByTime SortMode = "time"
)

// ParseSort maps a control value to a sort mode. Unknown values mean no
// reordering.
func ParseSort(v string) SortMode {
	switch SortMode(v) {
	case SortByName, SortByTime:
		return SortMode(v)
	default:
		return SortNone
	}
}

// Filter is the state of the category, search and sort controls.
type Filter struct {
	Category string
	Search   string
	Sort     SortMode
}

// FilterFromQuery reads the controls from query or form values.
func FilterFromQuery(v url.Values) Filter {
	return Filter{
		Category: v.Get("category"),
		Search:   v.Get("q"),
		Sort:     ParseSort(v.Get("sort")),
	}
}

// Query encodes the filter back into the parameters FilterFromQuery reads.
// Empty controls are omitted.
func (f Filter) Query() url.Values {
	v := url.Values{}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.Search != "" {
		v.Set("q", f.Search)
	}
	if f.Sort != SortNone {
		v.Set("sort", string(f.Sort))
	}
	return v
}

// Normalize resets a category that is no longer offered, the same way a
// rebuilt category list falls back to "All Categories".
func (f Filter) Normalize(categories []string) Filter {
	if f.Category == "" {
		return f
	}
	for _, c := range categories {
		if c == f.Category {
			return f
		}
	}
	f.Category = ""
	return f
}

// Comparer orders two strings. *collate.Collator satisfies it.
type Comparer interface {
	CompareString(a, b string) int
}

// Categories returns the distinct non-empty categories in first-seen order.
func Categories(s Store) []string {
	seen := make(map[string]bool)
	var cats []string
	for _, e := range s.entries {
		c := e.Activity.Category
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cats = append(cats, c)
	}
	return cats
}

// Apply runs the category filter, the search filter and the sort over the
// store and returns the entries to display. The store is not modified.
// A nil cmp falls back to byte-wise comparison.
func Apply(s Store, f Filter, cmp Comparer) []Entry {
	out := make([]Entry, 0, len(s.entries))

	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, e := range s.entries {
		if f.Category != "" && e.Activity.Category != f.Category {
			continue
		}
		if search != "" && !matches(e, search) {
			continue
		}
		out = append(out, e)
	}

	compare := compareFunc(cmp)
	switch f.Sort {
	case SortByName:
		sort.SliceStable(out, func(i, j int) bool {
			return compare(out[i].Name, out[j].Name) < 0
		})
	case SortByTime:
		sortBySchedule(out, compare)
	}

	return out
}

func matches(e Entry, search string) bool {
	if strings.Contains(strings.ToLower(e.Name), search) {
		return true
	}
	return e.Activity.Description != "" &&
		strings.Contains(strings.ToLower(e.Activity.Description), search)
}

// sortBySchedule orders the entries that have a schedule among the slots they
// occupy. Unscheduled entries stay where they are.
func sortBySchedule(entries []Entry, compare func(a, b string) int) {
	var slots []int
	var scheduled []Entry
	for i, e := range entries {
		if e.Activity.Schedule == "" {
			continue
		}
		slots = append(slots, i)
		scheduled = append(scheduled, e)
	}

	sort.SliceStable(scheduled, func(i, j int) bool {
		return compare(scheduled[i].Activity.Schedule, scheduled[j].Activity.Schedule) < 0
	})

	for i, slot := range slots {
		entries[slot] = scheduled[i]
	}
}

func compareFunc(cmp Comparer) func(a, b string) int {
	if cmp == nil {
		return strings.Compare
	}
	return cmp.CompareString
}
