package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/tabclass/internal/job"
	"github.com/JonMunkholm/tabclass/internal/sink"
	"github.com/spf13/cobra"
)

func newJobsCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List or run jobs from a YAML file",
		Long: `Jobs are named extractions kept in a YAML file:

  jobs:
    - name: teams
      source: {path: players.csv}
      columns: [name, score]
      classify: [team]
      output: {format: xlsx, path: teams.xlsx}

The file defaults to EXTRACT_JOBS_FILE.`,
	}
	cmd.PersistentFlags().StringVarP(&file, "file", "f", "", "Jobs file (default EXTRACT_JOBS_FILE)")

	load := func() (*job.Registry, error) {
		path := file
		if path == "" {
			path = a.cfg.Extract.JobsFile
		}
		if path == "" {
			return nil, errors.New("no jobs file: pass --file or set EXTRACT_JOBS_FILE")
		}
		jobs, err := job.Load(path)
		if err != nil {
			return nil, err
		}
		return job.NewRegistry(jobs...)
	}

	cmd.AddCommand(newJobsListCmd(load), newJobsRunCmd(a, load))
	return cmd
}

func newJobsListCmd(load func() (*job.Registry, error)) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := load()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(reg.All())
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSOURCE\tCOLUMNS\tCLASSIFY\tOUTPUT")
			for _, j := range reg.All() {
				out := j.Output.Path
				if out == "" {
					out = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					j.Name,
					job.Describe(j.Source),
					strings.Join(j.Columns, ","),
					strings.Join(j.Classify, "/"),
					out,
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the job definitions as JSON")
	return cmd
}

func newJobsRunCmd(a *app, load func() (*job.Registry, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "run NAME",
		Short: "Run a job",
		Long: `Run a job. When the job names an output path the result is written there,
otherwise it is printed in the job's output format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			reg, err := load()
			if err != nil {
				return err
			}
			j, err := reg.Get(args[0])
			if err != nil {
				return err
			}

			runner, _, cleanup, err := a.newRunner(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			outcome, err := runner.Run(ctx, j)
			if err != nil {
				return err
			}

			if j.Output.Path != "" {
				st := outcome.Result.Stats
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d of %d rows written to %s\n",
					j.Name, st.Accepted, st.Rows, j.Output.Path)
				return nil
			}

			opts := j.SinkOptions()
			if opts.Format == "" {
				opts.Format = sink.FormatJSON
			}
			return sink.Write(cmd.OutOrStdout(), outcome.Result, opts)
		},
	}
}
