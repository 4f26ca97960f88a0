package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// CSVOptions configures a delimited-text source.
type CSVOptions struct {
	// Comma is the field delimiter (default ',').
	Comma rune

	// Encoding is a charset label such as "gbk" or "windows-1252"
	// (default UTF-8).
	Encoding string

	// HeaderRow is the 1-based record holding the header (default 1).
	// Records before it are discarded. Blank lines are not records, so a
	// file with leading blank lines still has its first record at 1.
	HeaderRow int

	// TrimSpace strips leading and trailing white space from every cell.
	TrimSpace bool

	// Size is the byte size of the input, if known, for progress.
	Size int64
}

// CSV reads a header and rows from delimited text.
//
// Records are not required to match the header width: mismatched rows reach
// the builder, which counts and drops them.
type CSV struct {
	reader  *csv.Reader
	counter *CountingReader
	closer  io.Closer
	opts    CSVOptions

	headerRead bool
}

// NewCSV reads delimited text from r.
func NewCSV(r io.Reader, opts CSVOptions) (*CSV, error) {
	if opts.Comma == 0 {
		opts.Comma = ','
	}
	if opts.HeaderRow <= 0 {
		opts.HeaderRow = 1
	}

	decoded, counter, err := Decode(r, opts.Encoding, opts.Size)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	cr.Comma = opts.Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	return &CSV{reader: cr, counter: counter, opts: opts}, nil
}

// OpenCSV opens the file at path. The caller must Close the source.
func OpenCSV(path string, opts CSVOptions) (*CSV, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}

	if opts.Size == 0 {
		if info, err := f.Stat(); err == nil {
			opts.Size = info.Size()
		}
	}

	src, err := NewCSV(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	src.closer = f
	return src, nil
}

// Header skips to the header record and returns it. It returns io.EOF when
// the input ends first.
func (c *CSV) Header() ([]string, error) {
	if c.headerRead {
		return nil, errors.New("csv: header already read")
	}
	c.headerRead = true

	for i := 1; ; i++ {
		rec, err := c.read()
		if err != nil {
			return nil, err
		}
		if i == c.opts.HeaderRow {
			return rec, nil
		}
	}
}

// Next returns the next record or io.EOF.
func (c *CSV) Next() ([]string, error) {
	if !c.headerRead {
		if _, err := c.Header(); err != nil {
			return nil, err
		}
	}
	return c.read()
}

func (c *CSV) read() ([]string, error) {
	rec, err := c.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if c.opts.TrimSpace {
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
	}
	return rec, nil
}

// Progress returns the percentage of input consumed, or 0 when the size is
// unknown.
func (c *CSV) Progress() int {
	return c.counter.Progress()
}

// Close releases the underlying file, if the source opened one.
func (c *CSV) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
