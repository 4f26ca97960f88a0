// Package job defines named extraction jobs, loads them from YAML and runs
// them under a concurrency limit.
package job

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tabclass/internal/sink"
	"github.com/JonMunkholm/tabclass/internal/source"
	"github.com/JonMunkholm/tabclass/internal/tabular"
)

var (
	// ErrJobNotFound is returned when no job has the requested name.
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateJob is returned when two jobs share a name.
	ErrDuplicateJob = errors.New("duplicate job name")

	// ErrInvalidJob wraps every validation failure of a job definition.
	ErrInvalidJob = errors.New("invalid job")
)

// Output says where and how a job writes its result. An empty Path keeps
// the result in memory only.
type Output struct {
	Format        string `yaml:"format" json:"format,omitempty"`
	Path          string `yaml:"path" json:"path,omitempty"`
	ClassifyIndex int    `yaml:"classify_index" json:"classify_index,omitempty"`
	Sheet         string `yaml:"sheet" json:"sheet,omitempty"`
}

// Job is a named extraction: a source plus the columns to project and
// classify by.
type Job struct {
	Name            string            `yaml:"name" json:"name"`
	Description     string            `yaml:"description" json:"description,omitempty"`
	Source          source.Definition `yaml:"source" json:"source"`
	Columns         []string          `yaml:"columns" json:"columns"`
	Classify        []string          `yaml:"classify" json:"classify,omitempty"`
	Required        []string          `yaml:"required" json:"required,omitempty"`
	Unique          bool              `yaml:"unique" json:"unique,omitempty"`
	Default         string            `yaml:"default" json:"default,omitempty"`
	SkipEmptyGroups bool              `yaml:"skip_empty_groups" json:"skip_empty_groups,omitempty"`
	Output          Output            `yaml:"output" json:"output"`
}

// Spec returns the extraction spec the job describes.
func (j Job) Spec() tabular.Spec {
	return tabular.Spec{
		Columns:         j.Columns,
		Classify:        j.Classify,
		Required:        j.Required,
		Unique:          j.Unique,
		Default:         j.Default,
		SkipEmptyGroups: j.SkipEmptyGroups,
	}
}

// SinkOptions returns the options used to render the job's output.
func (j Job) SinkOptions() sink.Options {
	return sink.Options{
		Format:        j.Output.Format,
		Sheet:         j.Output.Sheet,
		ClassifyIndex: j.Output.ClassifyIndex,
		Columns:       j.Columns,
		Classify:      j.Classify,
	}
}

// Validate checks a job definition without touching its source.
func (j Job) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidJob)
	}
	if err := j.Spec().Validate(); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidJob, j.Name, err)
	}
	if err := j.Source.Validate(); err != nil {
		return fmt.Errorf("%w %q: source: %w", ErrInvalidJob, j.Name, err)
	}
	if j.Output.Format != "" && !sink.ValidFormat(j.Output.Format) {
		return fmt.Errorf("%w %q: unknown output format %q", ErrInvalidJob, j.Name, j.Output.Format)
	}
	if j.Output.ClassifyIndex < 0 {
		return fmt.Errorf("%w %q: classify_index must not be negative", ErrInvalidJob, j.Name)
	}
	return nil
}
