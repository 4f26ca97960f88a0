package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JonMunkholm/tabclass/internal/job"
	"github.com/JonMunkholm/tabclass/internal/source"
	"github.com/JonMunkholm/tabclass/internal/store"
	"github.com/JonMunkholm/tabclass/internal/tabular"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"nil", nil, "", 0},
		{"wrapped source not found", fmt.Errorf("open source: %w", source.ErrSourceNotFound), "SRC001", http.StatusNotFound},
		{"sheet", source.ErrSheetNotFound, "SRC002", http.StatusBadRequest},
		{"no header", tabular.ErrNoHeader, "SRC006", http.StatusBadRequest},
		{"job not found", fmt.Errorf("%w: x", job.ErrJobNotFound), "JOB001", http.StatusNotFound},
		{"invalid job", fmt.Errorf("%w %q: %w", job.ErrInvalidJob, "x", tabular.ErrNoColumns), "JOB002", http.StatusBadRequest},
		{"busy", job.ErrTooManyRuns, "JOB003", http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("run exceeded 1s: %w", context.DeadlineExceeded), "JOB004", http.StatusGatewayTimeout},
		{"run not found", store.ErrRunNotFound, "RUN001", http.StatusNotFound},
		{"max bytes", fmt.Errorf("%w: %w", errBadForm, &http.MaxBytesError{Limit: 1}), "UPL002", http.StatusRequestEntityTooLarge},
		{"flattened max bytes", errors.New("multipart: NextPart: http: request body too large"), "UPL002", http.StatusRequestEntityTooLarge},
		{"cancelled", context.Canceled, "UPL004", http.StatusRequestTimeout},
		{"driver text", errors.New("dial tcp: connection refused"), "RUN004", http.StatusServiceUnavailable},
		{"csv text", errors.New("read row 3: parse csv: bare quote"), "SRC008", http.StatusBadRequest},
		{"unknown", errors.New("boom"), "ERR000", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.code {
				t.Errorf("Code = %q, want %q", got.Code, tt.code)
			}
			if got.Status != tt.status {
				t.Errorf("Status = %d, want %d", got.Status, tt.status)
			}
		})
	}
}
