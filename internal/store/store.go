// Package store persists extraction runs in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/tabclass/internal/config"
	"github.com/JonMunkholm/tabclass/internal/tabular"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit caps ListRuns when the caller passes no limit.
const DefaultListLimit = 50

// Run is one recorded extraction.
type Run struct {
	ID           uuid.UUID       `json:"id"`
	JobName      string          `json:"job_name,omitempty"`
	Source       string          `json:"source"`
	Spec         json.RawMessage `json:"spec"`
	Result       json.RawMessage `json:"result,omitempty"`
	Stats        tabular.Stats   `json:"stats"`
	SkippedCount int             `json:"skipped_count"`
	Duration     time.Duration   `json:"-"`
	DurationMS   int64           `json:"duration_ms"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Store reads and writes runs.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a store over pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the pool the store runs on.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Connect opens and pings a pool configured from cfg.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// SaveRun inserts run, assigning an id and creation time when unset.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.DurationMS = run.Duration.Milliseconds()

	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	spec := run.Spec
	if len(spec) == 0 {
		spec = json.RawMessage(`{}`)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO extraction_runs
			(id, job_name, source, spec, result, stats, skipped_count, duration_ms, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pgtype.UUID{Bytes: run.ID, Valid: true},
		run.JobName,
		run.Source,
		[]byte(spec),
		nullableJSON(run.Result),
		stats,
		run.SkippedCount,
		run.DurationMS,
		pgtype.Text{String: run.Error, Valid: run.Error != ""},
		pgtype.Timestamptz{Time: run.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun returns the run with id, result included.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, job_name, source, spec, result, stats, skipped_count, duration_ms, error, created_at
		FROM extraction_runs
		WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true},
	)

	run, err := scanRun(row, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first, without results.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, job_name, source, spec, NULL::jsonb, stats, skipped_count, duration_ms, error, created_at
		FROM extraction_runs
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes the run with id.
func (s *Store) DeleteRun(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM extraction_runs WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true})
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func scanRun(row pgx.Row, withResult bool) (*Run, error) {
	var (
		id        pgtype.UUID
		jobName   string
		src       string
		spec      []byte
		result    []byte
		stats     []byte
		skipped   int32
		duration  int64
		runErr    pgtype.Text
		createdAt pgtype.Timestamptz
	)

	if err := row.Scan(&id, &jobName, &src, &spec, &result, &stats, &skipped, &duration, &runErr, &createdAt); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           uuid.UUID(id.Bytes),
		JobName:      jobName,
		Source:       src,
		Spec:         json.RawMessage(spec),
		SkippedCount: int(skipped),
		Duration:     time.Duration(duration) * time.Millisecond,
		DurationMS:   duration,
		CreatedAt:    createdAt.Time,
	}
	if runErr.Valid {
		run.Error = runErr.String
	}
	if withResult && result != nil {
		run.Result = json.RawMessage(result)
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &run.Stats); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
	}
	return run, nil
}

func nullableJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
