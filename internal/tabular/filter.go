package tabular

// Filter rejects rows that hold the empty sentinel in any of a set of
// required columns.
type Filter struct {
	index    ColumnIndex
	required []string
}

// NewFilter creates a filter over the given required names. The index must
// have been resolved with those names.
func NewFilter(index ColumnIndex, required []string) Filter {
	return Filter{index: index, required: required}
}

// Rejects reports whether row must be dropped.
//
// A filter with no required names never rejects. A required name that the
// header does not contain rejects every row, as does a row too short to hold
// a required cell.
func (f Filter) Rejects(row []string) bool {
	for _, name := range f.required {
		p, ok := f.index.Position(name)
		if !ok || p >= len(row) || row[p] == "" {
			return true
		}
	}
	return false
}

// Unsatisfiable reports whether some required name is absent from the header,
// in which case no row can pass.
func (f Filter) Unsatisfiable() bool {
	for _, name := range f.required {
		if _, ok := f.index.Position(name); !ok {
			return true
		}
	}
	return false
}
