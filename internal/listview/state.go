package listview

import (
	"slices"
	"strings"
)

// SortDirection enumerates the sort states of a column header.
type SortDirection string

const (
	// SortNone leaves records in fetch order.
	SortNone SortDirection = ""
	// SortAsc orders ascending.
	SortAsc SortDirection = "asc"
	// SortDesc orders descending.
	SortDesc SortDirection = "desc"
)

// Valid reports whether the direction is a known value.
func (d SortDirection) Valid() bool {
	return d == SortNone || d == SortAsc || d == SortDesc
}

// State is the user intent of a list screen. It carries no records and is
// safe to persist between requests.
type State struct {
	Search  string              `json:"search"`
	Filters map[string][]string `json:"filters,omitempty"`
	SortKey string              `json:"sort_key,omitempty"`
	SortDir SortDirection       `json:"sort_dir,omitempty"`
	Page    int                 `json:"page"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	if s.Filters != nil {
		out.Filters = make(map[string][]string, len(s.Filters))
		for dim, values := range s.Filters {
			out.Filters[dim] = slices.Clone(values)
		}
	}
	return out
}

// Active reports whether the dimension restricts the result.
func (s State) Active(dimension string) bool {
	return len(s.Filters[dimension]) > 0
}

// Selected reports whether value is checked for dimension.
func (s State) Selected(dimension, value string) bool {
	_, found := slices.BinarySearch(s.Filters[dimension], value)
	return found
}

// toggle inserts or removes value keeping the set sorted. It returns true
// when the value is present afterwards.
func (s *State) toggle(dimension, value string) bool {
	if s.Filters == nil {
		s.Filters = make(map[string][]string)
	}
	values := s.Filters[dimension]
	idx, found := slices.BinarySearch(values, value)
	if found {
		values = slices.Delete(values, idx, idx+1)
	} else {
		values = slices.Insert(values, idx, value)
	}
	if len(values) == 0 {
		delete(s.Filters, dimension)
	} else {
		s.Filters[dimension] = values
	}
	return !found
}

func normaliseQuery(q string) string {
	return strings.ToLower(q)
}
