package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const playersCSV = "name,team,score\nAlice,A,10\nBob,B,20\nCy,A,30\n,B,40\n"

// run executes the root command in-process and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")
	t.Setenv("EXTRACT_JOBS_FILE", "")
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtract_JSON(t *testing.T) {
	in := writeFile(t, "players.csv", playersCSV)

	out, _, err := run(t, "extract", in, "--columns", "name,score", "--classify", "team", "--required", "name")
	require.NoError(t, err)
	assert.Equal(t, `{"A":[["Alice","10"],["Cy","30"]],"B":[["Bob","20"]]}`+"\n", out)
}

func TestExtract_FlatUnique(t *testing.T) {
	in := writeFile(t, "players.csv", playersCSV)

	out, _, err := run(t, "extract", in, "--columns", "score", "--classify", "team", "--unique")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]string{"A": "30", "B": "40"}, got)
}

func TestExtract_EmptyGroups(t *testing.T) {
	in := writeFile(t, "regions.csv", "name,region,team\nAlice,,A\nBob,N,B\nCy,N,\n")

	out, _, err := run(t, "extract", in, "--columns", "name", "--classify", "region,team")
	require.NoError(t, err)
	assert.Equal(t, `{"":{"A":["Alice"]},"N":{"B":["Bob"]}}`+"\n", out)

	out, _, err = run(t, "extract", in, "--columns", "name", "--classify", "region,team", "--skip-empty-groups")
	require.NoError(t, err)
	assert.Equal(t, `{"N":{"B":["Bob"]}}`+"\n", out)
}

func TestExtract_CSVOutFile(t *testing.T) {
	in := writeFile(t, "players.csv", playersCSV)
	outPath := filepath.Join(t.TempDir(), "teams.csv")

	stdout, _, err := run(t, "extract", in, "--columns", "name", "--classify", "team",
		"--required", "name", "--classify-index", "1", "-o", outPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "name,team\nAlice,A\nCy,A\nBob,B\n", string(data))
}

func TestExtract_Verbose(t *testing.T) {
	in := writeFile(t, "players.csv", "name,team\nAlice,A\nshort\n,B\n")

	_, stderr, err := run(t, "extract", in, "--columns", "name", "--required", "name", "--verbose", "--default", "x")
	require.NoError(t, err)
	assert.Contains(t, stderr, "skipped row 2 (width): short")
	assert.Contains(t, stderr, "skipped row 3 (required): ,B")
	assert.Contains(t, stderr, "rows=3 accepted=1")
}

func TestExtract_MissingColumnReported(t *testing.T) {
	in := writeFile(t, "players.csv", playersCSV)

	out, stderr, err := run(t, "extract", in, "--columns", "name,age", "--default", "?")
	require.NoError(t, err)
	assert.Contains(t, stderr, "columns not in header: age")
	assert.Contains(t, out, `["Alice","?"]`)
}

func TestExtract_XLSXSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	_, err := f.NewSheet("Q1")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Q1", "A1", &[]any{"region", "rep"}))
	require.NoError(t, f.SetSheetRow("Q1", "A2", &[]any{"EU", "Ann"}))
	require.NoError(t, f.SetSheetRow("Q1", "A3", &[]any{"US", "Bo"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	out, _, err := run(t, "extract", path, "--sheet", "Q1", "--columns", "rep", "--classify", "region")
	require.NoError(t, err)
	assert.Equal(t, `{"EU":["Ann"],"US":["Bo"]}`+"\n", out)
}

func TestExtract_XLSXActiveSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"rep"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"first"}))
	idx, err := f.NewSheet("Q2")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Q2", "A1", &[]any{"rep"}))
	require.NoError(t, f.SetSheetRow("Q2", "A2", &[]any{"active"}))
	f.SetActiveSheet(idx)
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	out, _, err := run(t, "extract", path, "--columns", "rep")
	require.NoError(t, err)
	assert.Equal(t, `["active"]`+"\n", out)

	help, _, err := run(t, "extract", "--help")
	require.NoError(t, err)
	assert.Contains(t, help, "default active sheet")
}

func TestExtract_Errors(t *testing.T) {
	in := writeFile(t, "players.csv", playersCSV)

	tests := []struct {
		name string
		args []string
	}{
		{"missing columns flag", []string{"extract", in}},
		{"no source", []string{"extract", "--columns", "a"}},
		{"missing file", []string{"extract", filepath.Join(t.TempDir(), "nope.csv"), "--columns", "a"}},
		{"bad format", []string{"extract", in, "--columns", "a", "--format", "pdf"}},
		{"bad encoding", []string{"extract", in, "--columns", "a", "--encoding", "klingon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestJobs(t *testing.T) {
	in := writeFile(t, "players.csv", playersCSV)
	outPath := filepath.Join(t.TempDir(), "teams.csv")
	jobsFile := writeFile(t, "jobs.yaml", `
jobs:
  - name: teams
    source: {path: `+in+`}
    columns: [name]
    classify: [team]
    required: [name]
    output: {path: `+outPath+`}
  - name: scores
    source: {path: `+in+`}
    columns: [score]
`)

	out, _, err := run(t, "jobs", "list", "--file", jobsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "teams")
	assert.Contains(t, out, "scores")

	_, stderr, err := run(t, "jobs", "run", "teams", "-f", jobsFile)
	require.NoError(t, err)
	assert.Contains(t, stderr, "3 of 4 rows written")
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "team,name\nA,Alice\nA,Cy\nB,Bob\n", string(data))

	out, _, err = run(t, "jobs", "run", "scores", "-f", jobsFile)
	require.NoError(t, err)
	assert.Equal(t, `["10","20","30","40"]`+"\n", out)

	_, _, err = run(t, "jobs", "run", "nope", "-f", jobsFile)
	assert.Error(t, err)

	_, _, err = run(t, "jobs", "list")
	assert.Error(t, err)
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	_, _, err := run(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
