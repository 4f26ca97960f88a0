package tabular

import (
	"encoding/json"
	"fmt"
)

// Projection holds the requested cells of one row, in request order.
// A projection of a single column is rendered as that scalar value.
type Projection []string

// Scalar returns the value of a single-column projection.
func (p Projection) Scalar() (string, bool) {
	if len(p) != 1 {
		return "", false
	}
	return p[0], true
}

// MarshalJSON renders a single-column projection as a string and any other
// projection as an array.
func (p Projection) MarshalJSON() ([]byte, error) {
	if v, ok := p.Scalar(); ok {
		return json.Marshal(v)
	}
	return json.Marshal([]string(p))
}

// Project extracts names from row in order. Columns absent from the header
// are substituted with def. A present column beyond the end of the row is a
// contract violation and returns ErrRowTooShort.
func Project(row []string, index ColumnIndex, names []string, def string) (Projection, error) {
	out := make(Projection, len(names))
	for i, name := range names {
		cell, err := index.Cell(row, name)
		if err != nil {
			return nil, fmt.Errorf("project: %w", err)
		}
		out[i] = cell.Or(def)
	}
	return out, nil
}
