package tabular

import "errors"

var (
	// ErrRowTooShort is returned when a row has no cell at the position of a
	// column that the header does contain. It signals a mismatch between the
	// row source and the header it reported, not bad data.
	ErrRowTooShort = errors.New("row shorter than resolved column position")

	// ErrNoColumns is returned when a Spec requests no projection columns.
	ErrNoColumns = errors.New("no projection columns requested")

	// ErrNoHeader is returned by Extract when the source has no header row.
	ErrNoHeader = errors.New("source has no header row")
)
