package lab

import (
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/language"

	"github.com/labstock/labstock/internal/listview"
	"github.com/labstock/labstock/internal/platform/httpx"
	"github.com/labstock/labstock/internal/shared"
	"github.com/labstock/labstock/report"
)

// Screen describes one entity list screen.
type Screen interface {
	Entity() string
	Title() string
	// Path is the backend collection path.
	Path() string
	// Open decodes a backend collection into a fresh View.
	Open(raw []byte, lang language.Tag) (View, error)
}

// View is a type-erased list view over one decoded collection. Views are
// built per request and are not safe for concurrent use.
type View interface {
	Restore(listview.State)
	State() listview.State
	SetSearchQuery(query string)
	ToggleFilterValue(dimension, value string) bool
	ClearFilters()
	SetSort(column string) bool
	SetPage(n int)
	Snapshot() ScreenView
	// Dataset holds every filtered record in sort order, unpaginated.
	Dataset() (*report.Dataset, error)
	// RecordDataset holds the detail of one record.
	RecordDataset(id string) (*report.Dataset, string, error)
}

// ColumnView is a table header.
type ColumnView struct {
	Key     string                 `json:"key"`
	Label   string                 `json:"label"`
	SortDir listview.SortDirection `json:"sort_dir,omitempty"`
}

// OptionView is one checkbox of a filter dimension.
type OptionView struct {
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// FilterView is one filter dimension with its distinct values.
type FilterView struct {
	Name    string       `json:"name"`
	Label   string       `json:"label"`
	Active  bool         `json:"active"`
	Options []OptionView `json:"options"`
}

// RowView is one visible table row.
type RowView struct {
	ID    string   `json:"id"`
	Cells []string `json:"cells"`
}

// ScreenView is everything a screen needs to draw the current page.
type ScreenView struct {
	Entity     string            `json:"entity"`
	Title      string            `json:"title"`
	Columns    []ColumnView      `json:"columns"`
	Filters    []FilterView      `json:"filters"`
	Rows       []RowView         `json:"rows"`
	Pagination shared.Pagination `json:"pagination"`
	State      listview.State    `json:"state"`
	Total      int               `json:"total"`
}

type field[T any] struct {
	key   string
	label string
	// sort returns the comparable value; nil makes the column unsortable.
	sort func(T) any
	text func(T, *formatter) string
}

type detailRow struct {
	label string
	value string
}

// definition is the generic Screen for record type T.
type definition[T any] struct {
	entity string
	title  string
	path   string
	fields []field[T]
	dims   []listview.Dimension[T]
	search func(T) string
	id     func(T) int64
	// detail adds rows after the fields on a single-record report.
	detail func(T, *formatter) []detailRow
}

func (d *definition[T]) Entity() string { return d.entity }
func (d *definition[T]) Title() string  { return d.title }
func (d *definition[T]) Path() string   { return d.path }

func (d *definition[T]) Open(raw []byte, lang language.Tag) (View, error) {
	var records []T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("lab: decode %s: %w", d.entity, err)
		}
	}
	cols := make([]listview.Column[T], 0, len(d.fields))
	for _, f := range d.fields {
		if f.sort == nil {
			continue
		}
		cols = append(cols, listview.Column[T]{Key: f.key, Label: f.label, Value: f.sort})
	}
	ctrl := listview.New(listview.Config[T]{
		Columns:    cols,
		Dimensions: d.dims,
		Search:     d.search,
		Language:   lang,
	})
	ctrl.Replace(records)
	return &listView[T]{def: d, ctrl: ctrl, fmt: newFormatter(lang)}, nil
}

type listView[T any] struct {
	def  *definition[T]
	ctrl *listview.Controller[T]
	fmt  *formatter
}

func (v *listView[T]) Restore(s listview.State)                 { v.ctrl.Restore(s) }
func (v *listView[T]) State() listview.State                    { return v.ctrl.State() }
func (v *listView[T]) SetSearchQuery(q string)                  { v.ctrl.SetSearchQuery(q) }
func (v *listView[T]) ToggleFilterValue(dim, value string) bool { return v.ctrl.ToggleFilterValue(dim, value) }
func (v *listView[T]) ClearFilters()                            { v.ctrl.ClearFilters() }
func (v *listView[T]) SetSort(column string) bool               { return v.ctrl.SetSort(column) }
func (v *listView[T]) SetPage(n int)                            { v.ctrl.SetPage(n) }

func (v *listView[T]) Snapshot() ScreenView {
	state := v.ctrl.State()
	out := ScreenView{
		Entity:     v.def.entity,
		Title:      v.def.title,
		Pagination: v.ctrl.Pagination(),
		State:      state,
		Total:      v.ctrl.Len(),
		Rows:       []RowView{},
	}
	for _, f := range v.def.fields {
		col := ColumnView{Key: f.key, Label: f.label}
		if f.sort != nil && state.SortKey == f.key {
			col.SortDir = state.SortDir
		}
		out.Columns = append(out.Columns, col)
	}
	for _, dim := range v.def.dims {
		fv := FilterView{Name: dim.Name, Label: dim.Label, Active: state.Active(dim.Name)}
		for _, opt := range v.ctrl.Options(dim.Name) {
			fv.Options = append(fv.Options, OptionView{Value: opt, Selected: state.Selected(dim.Name, opt)})
		}
		out.Filters = append(out.Filters, fv)
	}
	for _, rec := range v.ctrl.Visible() {
		out.Rows = append(out.Rows, RowView{ID: formatID(v.def.id(rec)), Cells: v.cells(rec)})
	}
	return out
}

func (v *listView[T]) cells(rec T) []string {
	cells := make([]string, len(v.def.fields))
	for i, f := range v.def.fields {
		cells[i] = f.text(rec, v.fmt)
	}
	return cells
}

func (v *listView[T]) Dataset() (*report.Dataset, error) {
	headers := make([]string, 0, len(v.def.fields)+1)
	headers = append(headers, "#")
	for _, f := range v.def.fields {
		headers = append(headers, f.label)
	}
	filtered := v.ctrl.Filtered()
	rows := make([][]string, len(filtered))
	for i, rec := range filtered {
		rows[i] = append([]string{strconv.Itoa(i + 1)}, v.cells(rec)...)
	}
	return report.NewDataset(headers, rows)
}

func (v *listView[T]) RecordDataset(id string) (*report.Dataset, string, error) {
	for _, rec := range v.ctrl.All() {
		if formatID(v.def.id(rec)) != id {
			continue
		}
		rows := make([][]string, 0, len(v.def.fields))
		for _, f := range v.def.fields {
			rows = append(rows, []string{"", f.label, f.text(rec, v.fmt)})
		}
		if v.def.detail != nil {
			for _, extra := range v.def.detail(rec, v.fmt) {
				rows = append(rows, []string{"", extra.label, extra.value})
			}
		}
		for i := range rows {
			rows[i][0] = strconv.Itoa(i + 1)
		}
		ds, err := report.NewDataset([]string{"#", "Field", "Value"}, rows)
		return ds, v.def.title + " " + id, err
	}
	return nil, "", fmt.Errorf("%s %s: %w", v.def.entity, id, httpx.ErrNotFound)
}
