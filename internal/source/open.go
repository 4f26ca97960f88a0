// Package source adapts delimited text, XLSX workbooks and SQL queries to
// the tabular.RowSource contract.
package source

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/tabclass/internal/tabular"
)

// Source kinds.
const (
	KindCSV  = "csv"
	KindTSV  = "tsv"
	KindXLSX = "xlsx"
	KindSQL  = "sql"
)

// Source is a row source that owns a resource.
type Source interface {
	tabular.RowSource
	io.Closer
}

// Definition describes where rows come from. Only the fields relevant to
// Kind are used.
type Definition struct {
	Kind      string `yaml:"kind" json:"kind"`
	Path      string `yaml:"path" json:"path,omitempty"`
	Encoding  string `yaml:"encoding" json:"encoding,omitempty"`
	Comma     string `yaml:"comma" json:"comma,omitempty"`
	TrimSpace bool   `yaml:"trim_space" json:"trim_space,omitempty"`
	Sheet     string `yaml:"sheet" json:"sheet,omitempty"`
	HeaderRow int    `yaml:"header_row" json:"header_row,omitempty"`
	DataRow   int    `yaml:"data_row" json:"data_row,omitempty"`
	Driver    string `yaml:"driver" json:"driver,omitempty"`
	DSN       string `yaml:"dsn" json:"-"`
	Query     string `yaml:"query" json:"query,omitempty"`
}

// ResolveKind returns the definition's kind, inferring it from the file
// extension when unset.
func (d Definition) ResolveKind() (string, error) {
	kind := strings.ToLower(strings.TrimSpace(d.Kind))
	if kind == "" {
		switch strings.ToLower(filepath.Ext(d.Path)) {
		case ".csv", ".txt":
			kind = KindCSV
		case ".tsv", ".tab":
			kind = KindTSV
		case ".xlsx", ".xlsm":
			kind = KindXLSX
		}
	}

	switch kind {
	case KindCSV, KindTSV, KindXLSX, KindSQL:
		return kind, nil
	case "":
		return "", fmt.Errorf("%w: cannot infer from %q", ErrUnknownKind, d.Path)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Validate checks that the fields the kind needs are set.
func (d Definition) Validate() error {
	kind, err := d.ResolveKind()
	if err != nil {
		return err
	}

	switch kind {
	case KindSQL:
		if d.Driver == "" || d.DSN == "" || d.Query == "" {
			return fmt.Errorf("sql source needs driver, dsn and query")
		}
		if !knownDriver(d.Driver) {
			return fmt.Errorf("%w: sql driver %q", ErrUnknownKind, d.Driver)
		}
	default:
		if d.Path == "" {
			return fmt.Errorf("%s source needs a path", kind)
		}
	}

	if d.Comma != "" && utf8.RuneCountInString(d.Comma) != 1 {
		return fmt.Errorf("comma must be a single character, got %q", d.Comma)
	}
	if d.HeaderRow < 0 || d.DataRow < 0 {
		return fmt.Errorf("header_row and data_row must be positive")
	}
	return nil
}

func (d Definition) csvOptions(kind string) CSVOptions {
	opts := CSVOptions{
		Encoding:  d.Encoding,
		HeaderRow: d.HeaderRow,
		TrimSpace: d.TrimSpace,
	}
	if kind == KindTSV {
		opts.Comma = '\t'
	}
	if d.Comma != "" {
		opts.Comma, _ = utf8.DecodeRuneInString(d.Comma)
	}
	return opts
}

func (d Definition) xlsxOptions() XLSXOptions {
	return XLSXOptions{Sheet: d.Sheet, HeaderRow: d.HeaderRow, DataRow: d.DataRow}
}

// Open returns the source a definition describes.
func Open(ctx context.Context, d Definition) (Source, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	kind, _ := d.ResolveKind()

	switch kind {
	case KindXLSX:
		return OpenXLSX(d.Path, d.xlsxOptions())
	case KindSQL:
		db, err := OpenDB(ctx, d.Driver, d.DSN)
		if err != nil {
			return nil, err
		}
		src, err := NewSQL(ctx, db, d.Query)
		if err != nil {
			db.Close()
			return nil, err
		}
		src.db = db
		return src, nil
	default:
		return OpenCSV(d.Path, d.csvOptions(kind))
	}
}

// OpenReader returns a file-format source over r, for uploads that never
// touch disk. SQL definitions are rejected.
func OpenReader(r io.Reader, d Definition) (Source, error) {
	kind, err := d.ResolveKind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindXLSX:
		return NewXLSX(r, d.xlsxOptions())
	case KindSQL:
		return nil, fmt.Errorf("%w: sql source cannot read an upload", ErrUnknownKind)
	default:
		return NewCSV(r, d.csvOptions(kind))
	}
}
