package job

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the top level of a jobs file.
type File struct {
	Jobs []Job `yaml:"jobs"`
}

// Parse decodes and validates a jobs file. Unknown keys are rejected so a
// misspelled option fails loudly instead of being ignored.
func Parse(r io.Reader) ([]Job, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read jobs: %w", err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}

	seen := make(map[string]bool, len(f.Jobs))
	for _, j := range f.Jobs {
		if err := j.Validate(); err != nil {
			return nil, err
		}
		if seen[j.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateJob, j.Name)
		}
		seen[j.Name] = true
	}
	return f.Jobs, nil
}

// Load parses the jobs file at path.
func Load(path string) ([]Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jobs file: %w", err)
	}
	defer f.Close()

	jobs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return jobs, nil
}
