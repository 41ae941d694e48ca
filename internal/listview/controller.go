// Package listview implements the search, filter, sort and paginate pipeline
// shared by every lab inventory screen.
//
// A Controller owns an in-memory collection and the user's intent (State).
// The visible slice is always recomputed from scratch as
// paginate(sort(filter(search(records)))), so the stages never drift apart.
package listview

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/labstock/labstock/internal/shared"
)

// DefaultPageSize is the number of rows every screen shows per page.
const DefaultPageSize = 4

// Column exposes a sortable cell value of a record.
type Column[T any] struct {
	Key   string
	Label string
	Value func(T) any
}

// Dimension exposes a filterable facet of a record.
type Dimension[T any] struct {
	Name  string
	Label string
	Value func(T) string
}

// Config parameterises a Controller for one record type.
type Config[T any] struct {
	Columns    []Column[T]
	Dimensions []Dimension[T]
	// Search returns the text matched against the search query.
	Search   func(T) string
	PageSize int
	Language language.Tag
}

// Controller holds the records and list state of a single screen. It is not
// safe for concurrent use.
type Controller[T any] struct {
	cfg      Config[T]
	columns  map[string]Column[T]
	dims     map[string]Dimension[T]
	collator *collate.Collator
	records  []T
	state    State
}

// New constructs a Controller with an empty collection.
func New[T any](cfg Config[T]) *Controller[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Language == language.Und {
		cfg.Language = language.English
	}
	c := &Controller[T]{
		cfg:      cfg,
		columns:  make(map[string]Column[T], len(cfg.Columns)),
		dims:     make(map[string]Dimension[T], len(cfg.Dimensions)),
		collator: collate.New(cfg.Language),
		state:    State{Page: 1},
	}
	for _, col := range cfg.Columns {
		c.columns[col.Key] = col
	}
	for _, dim := range cfg.Dimensions {
		c.dims[dim.Name] = dim
	}
	return c
}

// Replace swaps the whole collection, e.g. after a refetch.
func (c *Controller[T]) Replace(records []T) {
	c.records = slices.Clone(records)
	c.clampPage()
}

// Len returns the size of the unfiltered collection.
func (c *Controller[T]) Len() int {
	return len(c.records)
}

// All returns a copy of the unfiltered collection in fetch order.
func (c *Controller[T]) All() []T {
	return slices.Clone(c.records)
}

// PageSize returns the configured page size.
func (c *Controller[T]) PageSize() int {
	return c.cfg.PageSize
}

// Columns returns the configured columns in display order.
func (c *Controller[T]) Columns() []Column[T] {
	return c.cfg.Columns
}

// Dimensions returns the configured filter dimensions in display order.
func (c *Controller[T]) Dimensions() []Dimension[T] {
	return c.cfg.Dimensions
}

// State returns a snapshot of the current list state.
func (c *Controller[T]) State() State {
	return c.state.Clone()
}

// Restore applies a previously saved state. Unknown dimensions, values for
// them, and unknown sort columns are dropped.
func (c *Controller[T]) Restore(s State) {
	next := State{
		Search:  normaliseQuery(s.Search),
		SortKey: s.SortKey,
		SortDir: s.SortDir,
		Page:    s.Page,
	}
	for dim, values := range s.Filters {
		if _, ok := c.dims[dim]; !ok {
			continue
		}
		for _, v := range values {
			if !next.Selected(dim, v) {
				next.toggle(dim, v)
			}
		}
	}
	if _, ok := c.columns[next.SortKey]; !ok || !next.SortDir.Valid() || next.SortDir == SortNone {
		next.SortKey = ""
		next.SortDir = SortNone
	}
	c.state = next
	c.clampPage()
}

// SetSearchQuery stores the lowercased query and returns to the first page.
func (c *Controller[T]) SetSearchQuery(query string) {
	c.state.Search = normaliseQuery(query)
	c.state.Page = 1
}

// ToggleFilterValue adds value to the dimension's accepted set, or removes it
// when already present, and returns to the first page. It reports false when
// the dimension is unknown, in which case nothing changes.
func (c *Controller[T]) ToggleFilterValue(dimension, value string) bool {
	if _, ok := c.dims[dimension]; !ok {
		return false
	}
	c.state.toggle(dimension, value)
	c.state.Page = 1
	return true
}

// ClearFilters empties every dimension. Search and sort are kept.
func (c *Controller[T]) ClearFilters() {
	c.state.Filters = nil
	c.state.Page = 1
}

// SetSort selects the sort column. Selecting the active column flips the
// direction; a new column starts ascending. Unknown columns are ignored.
func (c *Controller[T]) SetSort(column string) bool {
	if _, ok := c.columns[column]; !ok {
		return false
	}
	if c.state.SortKey == column && c.state.SortDir == SortAsc {
		c.state.SortDir = SortDesc
		return true
	}
	c.state.SortKey = column
	c.state.SortDir = SortAsc
	return true
}

// SetPage moves to page n, clamped to the available pages.
func (c *Controller[T]) SetPage(n int) {
	c.state.Page = n
	c.clampPage()
}

// Filtered returns every record that passes search and filters, in sort order.
func (c *Controller[T]) Filtered() []T {
	out := make([]T, 0, len(c.records))
	for _, rec := range c.records {
		if c.matchesSearch(rec) && c.matchesFilters(rec) {
			out = append(out, rec)
		}
	}
	c.sort(out)
	return out
}

// Pagination describes the current page of the filtered result.
func (c *Controller[T]) Pagination() shared.Pagination {
	return shared.NewPagination(c.state.Page, c.cfg.PageSize, c.countFiltered())
}

// Visible returns the records on the current page. An empty result is a
// normal outcome.
func (c *Controller[T]) Visible() []T {
	filtered := c.Filtered()
	p := shared.NewPagination(c.state.Page, c.cfg.PageSize, len(filtered))
	start, end := p.Bounds()
	return filtered[start:end]
}

// Options lists the distinct values of a dimension across the whole
// collection, ordered by the collator.
func (c *Controller[T]) Options(dimension string) []string {
	dim, ok := c.dims[dimension]
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range c.records {
		v := dim.Value(rec)
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.SortFunc(out, c.collator.CompareString)
	return out
}

func (c *Controller[T]) matchesSearch(rec T) bool {
	if c.state.Search == "" || c.cfg.Search == nil {
		return true
	}
	return strings.Contains(strings.ToLower(c.cfg.Search(rec)), c.state.Search)
}

func (c *Controller[T]) matchesFilters(rec T) bool {
	for name, values := range c.state.Filters {
		if len(values) == 0 {
			continue
		}
		dim, ok := c.dims[name]
		if !ok {
			continue
		}
		if _, found := slices.BinarySearch(values, dim.Value(rec)); !found {
			return false
		}
	}
	return true
}

func (c *Controller[T]) sort(records []T) {
	if c.state.SortDir == SortNone {
		return
	}
	col, ok := c.columns[c.state.SortKey]
	if !ok || col.Value == nil {
		return
	}
	desc := c.state.SortDir == SortDesc
	slices.SortStableFunc(records, func(a, b T) int {
		res := compareValues(c.collator, col.Value(a), col.Value(b))
		if desc {
			return -res
		}
		return res
	})
}

func (c *Controller[T]) countFiltered() int {
	n := 0
	for _, rec := range c.records {
		if c.matchesSearch(rec) && c.matchesFilters(rec) {
			n++
		}
	}
	return n
}

func (c *Controller[T]) clampPage() {
	c.state.Page = shared.NewPagination(c.state.Page, c.cfg.PageSize, c.countFiltered()).Page
}
