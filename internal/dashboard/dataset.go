package dashboard

import (
	"math"
	"sort"

	"github.com/KaramelBytes/cepv-cli/internal/api"
)

// LoadStatus is the lifecycle of one history entry's row preview.
type LoadStatus int

const (
	NotLoaded LoadStatus = iota
	Loading
	Loaded
)

func (s LoadStatus) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "not_loaded"
	}
}

// DatasetState is the cached row preview for one history entry. A table is
// only reachable in the Loaded state.
type DatasetState struct {
	status LoadStatus
	table  *api.DatasetTable
}

func loadingState() DatasetState { return DatasetState{status: Loading} }

func loadedState(t *api.DatasetTable) DatasetState {
	if t == nil {
		t = &api.DatasetTable{}
	}
	return DatasetState{status: Loaded, table: t}
}

// Status returns the load status.
func (s DatasetState) Status() LoadStatus { return s.status }

// Table returns the rows when loaded.
func (s DatasetState) Table() (*api.DatasetTable, bool) {
	if s.status != Loaded {
		return nil, false
	}
	return s.table, true
}

// Direction of a column sort.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortState remembers the last sorted dataset and column.
type SortState struct {
	DatasetID int64
	Column    string
	Direction Direction
	// Set is false until the first sort.
	Set bool
}

// sortableColumns is fixed, not derived from the data.
var sortableColumns = map[string]bool{
	"Flowrate":    true,
	"Pressure":    true,
	"Temperature": true,
}

// IsSortable reports whether column is one of the numeric equipment columns.
func IsSortable(column string) bool { return sortableColumns[column] }

// SortableColumns lists the numeric columns in display order.
func SortableColumns() []string { return []string{"Flowrate", "Pressure", "Temperature"} }

// sortRows reorders rows in place by the numeric value of column. Values that
// do not parse sort after all numeric values in either direction.
func sortRows(rows []api.Row, column string, dir Direction) {
	key := func(r api.Row) float64 {
		f, ok := api.Float(r[column])
		if !ok || math.IsNaN(f) {
			return math.NaN()
		}
		return f
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := key(rows[i]), key(rows[j])
		switch {
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		case dir == Descending:
			return a > b
		default:
			return a < b
		}
	})
}
