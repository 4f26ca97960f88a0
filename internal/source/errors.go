package source

import "errors"

var (
	// ErrSourceNotFound is returned when a file source does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrSheetNotFound is returned when a workbook has no sheet by that name.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrNotWorkbook is returned when a file cannot be opened as XLSX.
	ErrNotWorkbook = errors.New("not an xlsx workbook")

	// ErrUnknownKind is returned for a source kind with no adapter.
	ErrUnknownKind = errors.New("unknown source kind")

	// ErrUnknownEncoding is returned for a charset label with no decoder.
	ErrUnknownEncoding = errors.New("unknown encoding")
)
