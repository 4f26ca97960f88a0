package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/tabclass/internal/job"
	"github.com/JonMunkholm/tabclass/internal/sink"
	"github.com/JonMunkholm/tabclass/internal/source"
	"github.com/JonMunkholm/tabclass/internal/tabular"
	"github.com/spf13/cobra"
)

type extractOptions struct {
	def             source.Definition
	columns         []string
	classify        []string
	required        []string
	unique          bool
	defaultValue    string
	skipEmptyGroups bool
	format          string
	out             string
	classifyIndex   int
	verbose         bool
}

func newExtractCmd(a *app) *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract [FILE]",
		Short: "Extract and classify rows from one source",
		Long: `Extract the named columns from FILE, or from a SQL query when --driver is
set, and print the result.

Examples:
  tabclass extract players.csv --columns name,score --classify team
  tabclass extract report.xlsx --sheet Q1 --columns id --classify region,rep --unique
  tabclass extract legacy.csv --encoding gbk --columns 名称 --format csv --out out.csv
  tabclass extract --driver sqlite --dsn data.db --query "SELECT * FROM t" --columns a`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.def.Path = args[0]
			}
			return a.runExtract(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.columns, "columns", nil, "Columns to project, in output order (required)")
	f.StringSliceVar(&opts.classify, "classify", nil, "Columns to group by, outermost first")
	f.StringSliceVar(&opts.required, "required", nil, "Columns that must be non-empty")
	f.BoolVar(&opts.unique, "unique", false, "Keep only the last row for each key path")
	f.StringVar(&opts.defaultValue, "default", "", "Value for projected columns missing from the header")
	f.BoolVar(&opts.skipEmptyGroups, "skip-empty-groups", false, "Skip rows with an empty value on any classification level")
	f.StringVar(&opts.format, "format", "", "Output format: json, csv or xlsx (default from --out, else json)")
	f.StringVarP(&opts.out, "out", "o", "", "Write output to this file instead of stdout")
	f.IntVar(&opts.classifyIndex, "classify-index", 0, "Position of the key columns in csv/xlsx rows")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Report every skipped row on stderr")

	f.StringVar(&opts.def.Kind, "kind", "", "Source kind: csv, tsv, xlsx or sql (default from extension)")
	f.StringVar(&opts.def.Encoding, "encoding", "", "Charset of delimited input, e.g. gbk, utf-16, windows-1252")
	f.StringVar(&opts.def.Comma, "comma", "", "Field delimiter for delimited input")
	f.BoolVar(&opts.def.TrimSpace, "trim-space", false, "Trim surrounding whitespace from cells")
	f.StringVar(&opts.def.Sheet, "sheet", "", "Worksheet name for xlsx input (default active sheet)")
	f.IntVar(&opts.def.HeaderRow, "header-row", 0, "1-based record holding the header (default 1); blank csv lines are not counted")
	f.IntVar(&opts.def.DataRow, "data-row", 0, "1-based row where xlsx data starts (default header+1)")
	f.StringVar(&opts.def.Driver, "driver", "", "SQL driver: "+strings.Join(source.Drivers, ", "))
	f.StringVar(&opts.def.DSN, "dsn", "", "SQL data source name")
	f.StringVar(&opts.def.Query, "query", "", "SQL query whose columns form the header")

	_ = cmd.MarkFlagRequired("columns")
	cmd.MarkFlagsRequiredTogether("driver", "dsn", "query")
	return cmd
}

func (a *app) runExtract(cmd *cobra.Command, opts extractOptions) error {
	ctx := cmd.Context()

	if opts.def.Driver != "" && opts.def.Kind == "" {
		opts.def.Kind = source.KindSQL
	}
	if opts.def.Path == "" && opts.def.Kind != source.KindSQL {
		return errors.New("extract needs a FILE or --driver, --dsn and --query")
	}

	format := opts.format
	if format == "" {
		format = formatFor(opts.out)
	}
	if !sink.ValidFormat(format) {
		return fmt.Errorf("unknown output format %q", format)
	}

	spec := tabular.Spec{
		Columns:         opts.columns,
		Classify:        opts.classify,
		Required:        opts.required,
		Unique:          opts.unique,
		Default:         opts.defaultValue,
		SkipEmptyGroups: opts.skipEmptyGroups,
		Verbose:         opts.verbose,
	}
	if err := spec.Validate(); err != nil {
		return err
	}

	runner, _, cleanup, err := a.newRunner(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	src, err := source.Open(ctx, opts.def)
	if err != nil {
		return err
	}
	defer src.Close()

	outcome, err := runner.Execute(ctx, "", job.Describe(opts.def), src, spec)
	if err != nil {
		return err
	}
	res := outcome.Result

	if opts.verbose {
		reportSkips(cmd.ErrOrStderr(), res)
	}
	if len(res.Missing) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "columns not in header: %s\n", strings.Join(res.Missing, ", "))
	}

	return writeTo(cmd.OutOrStdout(), opts.out, res, sink.Options{
		Format:        format,
		Sheet:         opts.def.Sheet,
		ClassifyIndex: opts.classifyIndex,
		Columns:       opts.columns,
		Classify:      opts.classify,
	})
}

func reportSkips(w io.Writer, res *tabular.Result) {
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "skipped row %d (%s): %s\n", s.Row, s.Reason, strings.Join(s.Data, ","))
	}
	st := res.Stats
	fmt.Fprintf(w, "rows=%d accepted=%d skipped_width=%d skipped_required=%d skipped_classify=%d\n",
		st.Rows, st.Accepted, st.Width, st.Required, st.Classify)
}

// writeTo renders res to path, or to stdout when path is empty.
func writeTo(stdout io.Writer, path string, res *tabular.Result, opts sink.Options) error {
	if path == "" {
		return sink.Write(stdout, res, opts)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := sink.Write(f, res, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return sink.FormatCSV
	case ".xlsx":
		return sink.FormatXLSX
	default:
		return sink.FormatJSON
	}
}
