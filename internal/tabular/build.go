package tabular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ContextCheckInterval is how many rows Extract reads between context checks.
const ContextCheckInterval = 1000

// Spec describes one extraction pass.
type Spec struct {
	// Columns are projected from every accepted row, in this order.
	Columns []string `json:"columns" yaml:"columns"`

	// Classify lists the grouping columns, outermost first. Empty yields a
	// flat sequence of projections.
	Classify []string `json:"classify,omitempty" yaml:"classify"`

	// Required columns must hold a non-empty value for a row to be accepted.
	Required []string `json:"required,omitempty" yaml:"required"`

	// Unique keeps only the last projection for each full key path.
	Unique bool `json:"unique,omitempty" yaml:"unique"`

	// Default replaces projected columns the header does not contain.
	Default string `json:"default,omitempty" yaml:"default"`

	// SkipEmptyGroups drops rows with an empty value on any classification
	// level. When unset, an empty value above the innermost level becomes
	// the "" bucket and only an empty innermost value skips the row.
	SkipEmptyGroups bool `json:"skip_empty_groups,omitempty" yaml:"skip_empty_groups"`

	// Verbose records every skipped row in Result.Skipped and logs it at
	// debug level.
	Verbose bool `json:"-" yaml:"-"`

	// Logger receives skip diagnostics. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// Validate checks the parts of a spec that do not depend on a header.
func (s Spec) Validate() error {
	if len(s.Columns) == 0 {
		return ErrNoColumns
	}
	return nil
}

// SkipReason says why a row was dropped.
type SkipReason string

const (
	SkipWidth    SkipReason = "width"
	SkipRequired SkipReason = "required"
	SkipClassify SkipReason = "classify"
)

// Skip records one dropped row. Row is the 1-based position of the row in
// the stream, header excluded.
type Skip struct {
	Row    int        `json:"row"`
	Reason SkipReason `json:"reason"`
	Data   []string   `json:"data"`
}

// Stats counts rows seen during a pass.
type Stats struct {
	Rows     int `json:"rows"`
	Accepted int `json:"accepted"`
	Width    int `json:"skipped_width"`
	Required int `json:"skipped_required"`
	Classify int `json:"skipped_classify"`
}

// Skipped returns the total number of dropped rows.
func (s Stats) Skipped() int {
	return s.Width + s.Required + s.Classify
}

// Result is the output of one pass. Exactly one of Tree and Rows is used:
// Tree when Spec.Classify is set, Rows otherwise.
type Result struct {
	Header  []string
	Tree    *Tree
	Rows    []Projection
	Missing []string
	Stats   Stats
	Skipped []Skip
}

// Classified reports whether the result holds a tree.
func (r *Result) Classified() bool {
	return r.Tree != nil
}

// MarshalJSON writes the tree, or the flat sequence when unclassified.
func (r *Result) MarshalJSON() ([]byte, error) {
	if r.Tree != nil {
		return r.Tree.MarshalJSON()
	}
	if r.Rows == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Rows)
}

// Build runs one pass over rows held in memory.
func Build(header []string, rows [][]string, spec Spec) (*Result, error) {
	b, err := newBuilder(header, spec)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := b.add(row); err != nil {
			return nil, err
		}
	}
	return b.finish(), nil
}

// Extract runs one pass over src. It checks ctx every ContextCheckInterval
// rows and returns ctx.Err() once the context is done.
func Extract(ctx context.Context, src RowSource, spec Spec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	header, err := src.Header()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	b, err := newBuilder(header, spec)
	if err != nil {
		return nil, err
	}

	for n := 0; ; n++ {
		if n%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", n+1, err)
		}
		if err := b.add(row); err != nil {
			return nil, err
		}
	}

	return b.finish(), nil
}

// builder folds rows into a Result. It lives for one pass.
type builder struct {
	spec     Spec
	header   []string
	index    ColumnIndex
	filter   Filter
	classify []int
	usable   bool
	logger   *slog.Logger
	res      *Result
}

func newBuilder(header []string, spec Spec) (*builder, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(spec.Columns)+len(spec.Classify)+len(spec.Required))
	names = append(names, spec.Columns...)
	names = append(names, spec.Classify...)
	names = append(names, spec.Required...)
	index := Resolve(header, names)

	logger := spec.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &builder{
		spec:   spec,
		header: append([]string(nil), header...),
		index:  index,
		filter: NewFilter(index, spec.Required),
		usable: true,
		logger: logger,
		res: &Result{
			Header:  append([]string(nil), header...),
			Missing: index.Missing(),
		},
	}

	for _, name := range spec.Classify {
		p, ok := index.Position(name)
		if !ok {
			b.usable = false
			continue
		}
		b.classify = append(b.classify, p)
	}
	if b.filter.Unsatisfiable() {
		b.usable = false
	}
	if !b.usable {
		logger.Warn("required or classification column missing from header, no row can qualify",
			"missing", b.res.Missing,
		)
	}

	if len(spec.Classify) > 0 {
		b.res.Tree = NewTree(len(spec.Classify), spec.Unique)
	}
	return b, nil
}

func (b *builder) skip(row []string, reason SkipReason) {
	st := &b.res.Stats
	switch reason {
	case SkipWidth:
		st.Width++
	case SkipRequired:
		st.Required++
	case SkipClassify:
		st.Classify++
	}

	if !b.spec.Verbose {
		return
	}
	b.res.Skipped = append(b.res.Skipped, Skip{
		Row:    st.Rows,
		Reason: reason,
		Data:   append([]string(nil), row...),
	})
	b.logger.Debug("row skipped",
		"row", st.Rows,
		"reason", string(reason),
		"cells", len(row),
		"header_cells", len(b.header),
	)
}

func (b *builder) add(row []string) error {
	b.res.Stats.Rows++

	if len(row) != len(b.header) {
		b.skip(row, SkipWidth)
		return nil
	}
	if b.filter.Rejects(row) {
		b.skip(row, SkipRequired)
		return nil
	}
	if !b.usable {
		b.skip(row, SkipClassify)
		return nil
	}

	var path []string
	if len(b.classify) > 0 {
		path = make([]string, len(b.classify))
		last := len(b.classify) - 1
		for i, p := range b.classify {
			v := row[p]
			if v == "" && (i == last || b.spec.SkipEmptyGroups) {
				b.skip(row, SkipClassify)
				return nil
			}
			path[i] = v
		}
	}

	proj, err := Project(row, b.index, b.spec.Columns, b.spec.Default)
	if err != nil {
		return fmt.Errorf("row %d: %w", b.res.Stats.Rows, err)
	}
	b.res.Stats.Accepted++

	if b.res.Tree == nil {
		b.res.Rows = append(b.res.Rows, proj)
		return nil
	}
	return b.res.Tree.Insert(path, proj)
}

func (b *builder) finish() *Result {
	return b.res
}
