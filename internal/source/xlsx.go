package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/xuri/excelize/v2"
)

// XLSXOptions configures a workbook source.
type XLSXOptions struct {
	// Sheet names the worksheet to read (default: the active sheet).
	Sheet string

	// HeaderRow is the 1-based row holding the header (default 1).
	HeaderRow int

	// DataRow is the 1-based row where data starts (default HeaderRow+1).
	DataRow int
}

// XLSX reads a header and rows from one worksheet.
//
// Spreadsheets do not store trailing blank cells, so rows shorter than the
// header are padded with the empty value. Cells beyond the header width are
// kept, so a row that overflows the header still counts as a width mismatch.
type XLSX struct {
	file   *excelize.File
	sheet  string
	header []string
	rows   [][]string
	pos    int
}

// OpenXLSX opens the workbook at path. The caller must Close the source.
func OpenXLSX(path string, opts XLSXOptions) (*XLSX, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotWorkbook, path, err)
	}
	return newXLSX(f, opts)
}

// NewXLSX reads a workbook from r.
func NewXLSX(r io.Reader, opts XLSXOptions) (*XLSX, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWorkbook, err)
	}
	return newXLSX(f, opts)
}

func newXLSX(f *excelize.File, opts XLSXOptions) (*XLSX, error) {
	if opts.HeaderRow <= 0 {
		opts.HeaderRow = 1
	}
	if opts.DataRow <= opts.HeaderRow {
		opts.DataRow = opts.HeaderRow + 1
	}

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	x := &XLSX{file: f, sheet: sheet}
	if len(all) < opts.HeaderRow {
		return x, nil
	}

	x.header = all[opts.HeaderRow-1]
	if len(all) >= opts.DataRow {
		x.rows = all[opts.DataRow-1:]
	}
	return x, nil
}

// Sheet returns the name of the worksheet being read.
func (x *XLSX) Sheet() string {
	return x.sheet
}

// Header returns the header row, or io.EOF when the sheet has fewer rows
// than the configured header row.
func (x *XLSX) Header() ([]string, error) {
	if x.header == nil {
		return nil, io.EOF
	}
	return x.header, nil
}

// Next returns the next data row, padded to the header width.
func (x *XLSX) Next() ([]string, error) {
	if x.pos >= len(x.rows) {
		return nil, io.EOF
	}
	row := x.rows[x.pos]
	x.pos++

	if len(row) < len(x.header) {
		padded := make([]string, len(x.header))
		copy(padded, row)
		row = padded
	}
	return row, nil
}

// Close releases the workbook.
func (x *XLSX) Close() error {
	return x.file.Close()
}
