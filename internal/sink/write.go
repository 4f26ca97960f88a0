package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/tabclass/internal/tabular"
	"github.com/xuri/excelize/v2"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// DefaultSheet names the worksheet WriteXLSX creates when none is given.
const DefaultSheet = "Sheet1"

// ValidFormat reports whether f names a supported output format.
func ValidFormat(f string) bool {
	switch strings.ToLower(f) {
	case FormatJSON, FormatCSV, FormatXLSX:
		return true
	}
	return false
}

// ContentType returns the MIME type for an output format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// WriteCSV writes title, when non-empty, followed by rows.
func WriteCSV(w io.Writer, title []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if len(title) > 0 {
		if err := cw.Write(title); err != nil {
			return fmt.Errorf("write csv title: %w", err)
		}
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// WriteXLSX writes title on row 1, when non-empty, and rows below it into a
// new workbook, then streams the workbook to w.
func WriteXLSX(w io.Writer, sheet string, title []string, rows [][]string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, sheet); err != nil {
			return fmt.Errorf("name sheet: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open sheet writer: %w", err)
	}

	next := 1
	writeRow := func(values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return err
		}
		next++

		cells := make([]any, len(values))
		for i, v := range values {
			cells[i] = v
		}
		return sw.SetRow(cell, cells)
	}

	if len(title) > 0 {
		if err := writeRow(title); err != nil {
			return fmt.Errorf("write xlsx title: %w", err)
		}
	}
	for _, row := range rows {
		if err := writeRow(row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", next-1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush xlsx: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// WriteJSON writes the result as order-preserving JSON.
func WriteJSON(w io.Writer, res *tabular.Result) error {
	b, err := res.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// Options controls Write.
type Options struct {
	Format        string
	Sheet         string
	ClassifyIndex int
	Columns       []string
	Classify      []string
}

// Write renders res in the requested format. CSV and XLSX output carry a
// title row built from the column and classification names.
func Write(w io.Writer, res *tabular.Result, opts Options) error {
	switch strings.ToLower(opts.Format) {
	case FormatJSON, "":
		return WriteJSON(w, res)
	case FormatCSV:
		title := Title(opts.Columns, opts.Classify, opts.ClassifyIndex)
		return WriteCSV(w, title, Rows(res, opts.ClassifyIndex))
	case FormatXLSX:
		title := Title(opts.Columns, opts.Classify, opts.ClassifyIndex)
		return WriteXLSX(w, opts.Sheet, title, Rows(res, opts.ClassifyIndex))
	default:
		return fmt.Errorf("unknown output format %q", opts.Format)
	}
}
