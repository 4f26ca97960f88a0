package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql" // driver "mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // driver "pgx"
	_ "github.com/lib/pq"              // driver "postgres"
	_ "modernc.org/sqlite"             // driver "sqlite"
)

// Drivers lists the database/sql driver names a SQL source accepts.
var Drivers = []string{"mysql", "pgx", "postgres", "sqlite"}

// OpenDB opens a pooled handle and verifies the connection.
func OpenDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if !knownDriver(driver) {
		return nil, fmt.Errorf("%w: sql driver %q", ErrUnknownKind, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func knownDriver(name string) bool {
	for _, d := range Drivers {
		if d == name {
			return true
		}
	}
	return false
}

// SQL reads rows from a query result. The header is the result's column
// names. Values are rendered as text and NULL becomes the empty value.
type SQL struct {
	rows    *sql.Rows
	columns []string
	db      *sql.DB
}

// NewSQL runs query against db. The caller must Close the source.
func NewSQL(ctx context.Context, db *sql.DB, query string, args ...any) (*SQL, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("columns: %w", err)
	}

	return &SQL{rows: rows, columns: cols}, nil
}

// Header returns the result column names.
func (s *SQL) Header() ([]string, error) {
	return s.columns, nil
}

// Next scans the next result row.
func (s *SQL) Next() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate: %w", err)
		}
		return nil, io.EOF
	}

	values := make([]any, len(s.columns))
	ptrs := make([]any, len(s.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	row := make([]string, len(values))
	for i, v := range values {
		row[i] = formatValue(v)
	}
	return row, nil
}

// Close releases the result set, and the database handle when the source
// opened it.
func (s *SQL) Close() error {
	err := s.rows.Close()
	if s.db != nil {
		if cerr := s.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// formatValue renders a scanned value as text. Zero stays "0"; only NULL
// maps to the empty value.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
