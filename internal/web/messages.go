package web

// messages.go maps errors to user-facing messages with support codes.
//
// Codes are grouped by family:
//
//	SRC001-SRC099  reading the source (missing file, bad workbook, charset)
//	JOB001-JOB099  job lookup, validation and run scheduling
//	RUN001-RUN099  run history
//	UPL001-UPL099  upload form handling
//	RATE001        request throttling
//	ERR000         anything else; check the server log for the request id
//
// Sentinel errors are matched with errors.Is first. Text patterns are a
// fallback for driver errors that carry no sentinel.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tabclass/internal/job"
	"github.com/JonMunkholm/tabclass/internal/source"
	"github.com/JonMunkholm/tabclass/internal/store"
	"github.com/JonMunkholm/tabclass/internal/tabular"
)

// UserMessage is what a client is told about a failure.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
	Status  int    // HTTP status
}

var (
	errNoFile          = errors.New("no file provided")
	errFileTooLarge    = errors.New("file too large")
	errBadForm         = errors.New("invalid form field")
	errBadFormat       = errors.New("unknown output format")
	errBadRunID        = errors.New("invalid run id")
	errHistoryDisabled = errors.New("run history is not configured")
	errRateLimited     = errors.New("rate limit exceeded")
)

type errorMapping struct {
	target error
	msg    UserMessage
}

// errorMappings is searched in order; the first errors.Is match wins.
var errorMappings = []errorMapping{
	{source.ErrSourceNotFound, UserMessage{"Source file not found", "Check the path configured for this job", "SRC001", http.StatusNotFound}},
	{source.ErrSheetNotFound, UserMessage{"Worksheet not found in workbook", "Check the sheet name, it is case sensitive", "SRC002", http.StatusBadRequest}},
	{source.ErrNotWorkbook, UserMessage{"File is not a valid XLSX workbook", "Save the file as .xlsx or upload it as CSV", "SRC003", http.StatusBadRequest}},
	{source.ErrUnknownKind, UserMessage{"Unsupported source type", "Use a .csv, .tsv or .xlsx file", "SRC004", http.StatusBadRequest}},
	{source.ErrUnknownEncoding, UserMessage{"Unknown character encoding", "Use a standard label such as utf-8, gbk or windows-1252", "SRC005", http.StatusBadRequest}},
	{tabular.ErrNoHeader, UserMessage{"The file has no header row", "Upload a file whose first row names the columns", "SRC006", http.StatusBadRequest}},
	{tabular.ErrRowTooShort, UserMessage{"A row did not match the header", "Check the file for broken quoting", "SRC007", http.StatusUnprocessableEntity}},

	{job.ErrJobNotFound, UserMessage{"Job not found", "List jobs at /api/jobs and check the name", "JOB001", http.StatusNotFound}},
	{tabular.ErrNoColumns, UserMessage{"No columns were requested", "Name at least one column to extract", "JOB002", http.StatusBadRequest}},
	{job.ErrInvalidJob, UserMessage{"Job definition is invalid", "Fix the job file and restart the service", "JOB002", http.StatusBadRequest}},
	{job.ErrTooManyRuns, UserMessage{"System is busy running other extractions", "Please wait a moment and try again", "JOB003", http.StatusServiceUnavailable}},
	{context.DeadlineExceeded, UserMessage{"Extraction timed out", "Try a smaller file or narrow the job", "JOB004", http.StatusGatewayTimeout}},

	{store.ErrRunNotFound, UserMessage{"Run not found", "The run may have been deleted", "RUN001", http.StatusNotFound}},
	{errHistoryDisabled, UserMessage{"Run history is not enabled", "Set DATABASE_URL to keep run history", "RUN002", http.StatusServiceUnavailable}},
	{errBadRunID, UserMessage{"Run id is not valid", "Use the run_id returned by a run", "RUN003", http.StatusBadRequest}},

	{errNoFile, UserMessage{"No file was selected", "Choose a file to upload", "UPL001", http.StatusBadRequest}},
	{errFileTooLarge, UserMessage{"File exceeds the maximum upload size", "Split the file or run it as a job", "UPL002", http.StatusRequestEntityTooLarge}},
	{errBadForm, UserMessage{"A form field is not valid", "Check the values entered and try again", "UPL003", http.StatusBadRequest}},
	{errBadFormat, UserMessage{"Unknown output format", "Use json, csv or xlsx", "UPL003", http.StatusBadRequest}},
	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "UPL004", http.StatusRequestTimeout}},

	{errRateLimited, UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001", http.StatusTooManyRequests}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched case-insensitively against the error text.
var errorPatterns = []errorPattern{
	{"connection refused", UserMessage{"Unable to reach the database", "Please try again in a few moments", "RUN004", http.StatusServiceUnavailable}},
	{"parse csv", UserMessage{"File is not valid delimited text", "Check quoting and the delimiter", "SRC008", http.StatusBadRequest}},
}

// defaultMessage is the fallback (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError converts an error to a user-facing message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	// multipart may flatten the MaxBytesError into text
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
		err = errFileTooLarge
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}
