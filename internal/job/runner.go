package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/tabclass/internal/logging"
	"github.com/JonMunkholm/tabclass/internal/sink"
	"github.com/JonMunkholm/tabclass/internal/source"
	"github.com/JonMunkholm/tabclass/internal/store"
	"github.com/JonMunkholm/tabclass/internal/tabular"
	"github.com/google/uuid"
)

// RunStore records finished runs. *store.Store satisfies it.
type RunStore interface {
	SaveRun(ctx context.Context, run *store.Run) error
}

// Outcome is what a run produced.
type Outcome struct {
	RunID    uuid.UUID       `json:"run_id"`
	Result   *tabular.Result `json:"-"`
	Duration time.Duration   `json:"-"`
}

// Runner executes extractions under a concurrency limit and a per-run
// timeout, recording each run when a store is configured.
type Runner struct {
	limiter *Limiter
	timeout time.Duration
	store   RunStore
}

// NewRunner returns a runner. A zero timeout disables the per-run deadline
// and a nil store disables run history.
func NewRunner(limiter *Limiter, timeout time.Duration, st RunStore) *Runner {
	if limiter == nil {
		limiter = NewLimiter(DefaultMaxConcurrentRuns, DefaultMaxWaitTime)
	}
	return &Runner{limiter: limiter, timeout: timeout, store: st}
}

// Limiter returns the runner's limiter.
func (r *Runner) Limiter() *Limiter {
	return r.limiter
}

// Run opens the job's source, extracts it and writes the output file when
// the job names one.
func (r *Runner) Run(ctx context.Context, j Job) (*Outcome, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}

	src, err := source.Open(ctx, j.Source)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	out, err := r.Execute(ctx, j.Name, Describe(j.Source), src, j.Spec())
	if err != nil {
		return nil, err
	}

	if j.Output.Path != "" {
		if err := writeOutput(j.Output.Path, out.Result, j.SinkOptions()); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Execute runs spec over src. name is empty for ad-hoc runs and label
// identifies the source in logs and history.
func (r *Runner) Execute(ctx context.Context, name, label string, src tabular.RowSource, spec tabular.Spec) (*Outcome, error) {
	if err := r.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer r.limiter.Release()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	id := uuid.New()
	logger := logging.WithFields(ctx, "run_id", id, "job", name, "source", label)
	if spec.Logger == nil {
		spec.Logger = logger
	}

	logger.Info("run started", "columns", len(spec.Columns), "levels", len(spec.Classify))
	start := time.Now()

	res, err := tabular.Extract(ctx, src, spec)
	elapsed := time.Since(start)

	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("run exceeded %s: %w", r.timeout, err)
	}

	r.record(ctx, id, name, label, spec, res, elapsed, err)

	if err != nil {
		logger.Error("run failed", "error", err, "duration", elapsed)
		return nil, err
	}

	logger.Info("run completed",
		"rows", res.Stats.Rows,
		"accepted", res.Stats.Accepted,
		"skipped", res.Stats.Skipped(),
		"missing", res.Missing,
		"duration", elapsed,
	)
	return &Outcome{RunID: id, Result: res, Duration: elapsed}, nil
}

// record saves the run. History is best effort: a failed save is logged
// and does not fail the run.
func (r *Runner) record(ctx context.Context, id uuid.UUID, name, label string, spec tabular.Spec, res *tabular.Result, elapsed time.Duration, runErr error) {
	if r.store == nil {
		return
	}

	run := &store.Run{
		ID:       id,
		JobName:  name,
		Source:   label,
		Duration: elapsed,
	}
	if b, err := json.Marshal(spec); err == nil {
		run.Spec = b
	}
	if res != nil {
		run.Stats = res.Stats
		run.SkippedCount = res.Stats.Skipped()
		if b, err := res.MarshalJSON(); err == nil {
			run.Result = b
		}
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	// The run context may already be done; history still gets written.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := r.store.SaveRun(saveCtx, run); err != nil {
		logging.WithFields(ctx, "run_id", id).Warn("failed to record run", "error", err)
	}
}

// Describe returns a label for a source definition that never includes
// credentials.
func Describe(d source.Definition) string {
	kind, _ := d.ResolveKind()
	if kind == source.KindSQL {
		return "sql:" + d.Driver
	}
	if d.Sheet != "" {
		return d.Path + "#" + d.Sheet
	}
	return d.Path
}

func writeOutput(path string, res *tabular.Result, opts sink.Options) error {
	if opts.Format == "" {
		opts.Format = formatFromPath(path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := sink.Write(f, res, opts); err != nil {
		f.Close()
		return fmt.Errorf("write output %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func formatFromPath(path string) string {
	switch filepath.Ext(path) {
	case ".csv":
		return sink.FormatCSV
	case ".xlsx":
		return sink.FormatXLSX
	default:
		return sink.FormatJSON
	}
}
