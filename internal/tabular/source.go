package tabular

import "io"

// RowSource supplies a header followed by a stream of rows.
//
// Header is called once, before the first call to Next. Next returns io.EOF
// after the last row. Implementations own the returned slices only until the
// following call; the builder copies what it keeps.
type RowSource interface {
	Header() ([]string, error)
	Next() ([]string, error)
}

// SliceSource is a RowSource over rows held in memory.
type SliceSource struct {
	header []string
	rows   [][]string
	pos    int
}

// NewSliceSource returns a RowSource that yields rows in order.
func NewSliceSource(header []string, rows [][]string) *SliceSource {
	return &SliceSource{header: header, rows: rows}
}

// Header returns the header row. A nil header reports io.EOF, as a file with
// no lines would.
func (s *SliceSource) Header() ([]string, error) {
	if s.header == nil {
		return nil, io.EOF
	}
	return s.header, nil
}

// Next returns the next row or io.EOF.
func (s *SliceSource) Next() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}
