package tabular

// columns.go resolves column names against a header row.
//
// Resolution is exact and case-sensitive. When a header repeats a name only
// the first occurrence is resolvable. Names that do not appear in the header
// are kept as absent entries so that lookups can report the absence instead
// of failing.

import "fmt"

// ColumnIndex maps requested column names to their zero-based header position.
type ColumnIndex struct {
	names []string
	pos   map[string]int
}

// Resolve scans header left to right for each requested name.
func Resolve(header []string, names []string) ColumnIndex {
	idx := ColumnIndex{
		names: make([]string, 0, len(names)),
		pos:   make(map[string]int, len(names)),
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		idx.names = append(idx.names, name)

		for i, h := range header {
			if h == name {
				idx.pos[name] = i
				break
			}
		}
	}

	return idx
}

// Position returns the header position of name. The second result is false
// when the header does not contain name or name was never requested.
func (c ColumnIndex) Position(name string) (int, bool) {
	p, ok := c.pos[name]
	return p, ok
}

// Names returns the requested names in request order, without duplicates.
func (c ColumnIndex) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Missing returns the requested names that the header does not contain.
func (c ColumnIndex) Missing() []string {
	var missing []string
	for _, name := range c.names {
		if _, ok := c.pos[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Cell is the result of looking a column up in a row.
// Present is false when the column is absent from the header; Value is then
// meaningless and callers pick their own substitute with Or.
type Cell struct {
	Value   string
	Present bool
}

// Or returns the cell value, or def when the column is absent.
func (c Cell) Or(def string) string {
	if !c.Present {
		return def
	}
	return c.Value
}

// Empty reports whether the cell is present and holds the empty sentinel.
func (c Cell) Empty() bool {
	return c.Present && c.Value == ""
}

// Cell looks name up in row. An absent column yields a Cell with Present
// false and no error. A present column whose position lies beyond the row
// returns ErrRowTooShort.
func (c ColumnIndex) Cell(row []string, name string) (Cell, error) {
	p, ok := c.pos[name]
	if !ok {
		return Cell{}, nil
	}
	if p >= len(row) {
		return Cell{}, fmt.Errorf("column %q at position %d, row has %d cells: %w", name, p, len(row), ErrRowTooShort)
	}
	return Cell{Value: row[p], Present: true}, nil
}
