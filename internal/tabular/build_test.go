package tabular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	teamHeader = []string{"name", "team", "score"}
	teamRows   = [][]string{
		{"Alice", "A", "10"},
		{"Bob", "B", "20"},
		{"Cy", "A", "30"},
	}
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestBuild_ClassifiedList(t *testing.T) {
	res, err := Build(teamHeader, teamRows, Spec{
		Columns:  []string{"name", "score"},
		Classify: []string{"team"},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"A":[["Alice","10"],["Cy","30"]],"B":[["Bob","20"]]}`, marshal(t, res))
	assert.Equal(t, []string{"A", "B"}, res.Tree.Keys())
	assert.Equal(t, 3, res.Stats.Accepted)
}

func TestBuild_ClassifiedUnique(t *testing.T) {
	res, err := Build(teamHeader, teamRows, Spec{
		Columns:  []string{"name", "score"},
		Classify: []string{"team"},
		Unique:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"A":["Cy","30"],"B":["Bob","20"]}`, marshal(t, res))

	leaf, ok := res.Tree.Get("A")
	require.True(t, ok)
	assert.Equal(t, []Projection{{"Cy", "30"}}, leaf)
}

func TestBuild_UniqueKeepsFirstSeenKeyOrder(t *testing.T) {
	rows := [][]string{
		{"a", "X", "1"},
		{"b", "Y", "2"},
		{"c", "X", "3"},
	}
	res, err := Build(teamHeader, rows, Spec{
		Columns:  []string{"name"},
		Classify: []string{"team"},
		Unique:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"X":"c","Y":"b"}`, marshal(t, res))
}

func TestBuild_UniqueIsOrderSensitive(t *testing.T) {
	reversed := [][]string{teamRows[2], teamRows[1], teamRows[0]}
	spec := Spec{Columns: []string{"name"}, Classify: []string{"team"}, Unique: true}

	forward, err := Build(teamHeader, teamRows, spec)
	require.NoError(t, err)
	backward, err := Build(teamHeader, reversed, spec)
	require.NoError(t, err)

	f, _ := forward.Tree.Get("A")
	b, _ := backward.Tree.Get("A")
	assert.Equal(t, Projection{"Cy"}, f[0])
	assert.Equal(t, Projection{"Alice"}, b[0])
}

func TestBuild_RequiredEmptyDropsRow(t *testing.T) {
	rows := append([][]string{{"", "A", "10"}}, teamRows...)
	res, err := Build(teamHeader, rows, Spec{
		Columns:  []string{"name", "score"},
		Classify: []string{"team"},
		Required: []string{"name"},
	})
	require.NoError(t, err)

	leaf, _ := res.Tree.Get("A")
	assert.Equal(t, []Projection{{"Alice", "10"}, {"Cy", "30"}}, leaf)
	assert.Equal(t, 1, res.Stats.Required)
}

func TestBuild_WidthMismatchDropsRow(t *testing.T) {
	rows := [][]string{
		{"Alice", "A"},
		{"Bob", "B", "20", "extra"},
		{"Cy", "A", "30"},
	}
	res, err := Build(teamHeader, rows, Spec{
		Columns:  []string{"name"},
		Classify: []string{"team"},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"A":["Cy"]}`, marshal(t, res))
	assert.Equal(t, 2, res.Stats.Width)
	assert.Equal(t, 3, res.Stats.Rows)
}

func TestBuild_AbsentClassifyColumnRejectsAll(t *testing.T) {
	res, err := Build(teamHeader, teamRows, Spec{
		Columns:  []string{"name"},
		Classify: []string{"city"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Tree.Len())
	assert.Equal(t, `{}`, marshal(t, res))
	assert.Equal(t, 3, res.Stats.Classify)
	assert.Equal(t, []string{"city"}, res.Missing)
}

func TestBuild_AbsentRequiredColumnRejectsAll(t *testing.T) {
	res, err := Build(teamHeader, teamRows, Spec{
		Columns:  []string{"name"},
		Required: []string{"city"},
	})
	require.NoError(t, err)

	assert.Empty(t, res.Rows)
	assert.Equal(t, `[]`, marshal(t, res))
	assert.Equal(t, 3, res.Stats.Required)
}

func TestBuild_AbsentProjectionColumnUsesDefault(t *testing.T) {
	res, err := Build(teamHeader, teamRows[:1], Spec{
		Columns: []string{"name", "city"},
		Default: "?",
	})
	require.NoError(t, err)
	assert.Equal(t, []Projection{{"Alice", "?"}}, res.Rows)
}

func TestBuild_FlatSequence(t *testing.T) {
	rows := [][]string{
		{"Alice", "A", "10"},
		{"", "B", "20"},
		{"Cy", "A"},
		{"Dee", "", "40"},
	}
	res, err := Build(teamHeader, rows, Spec{
		Columns:  []string{"name"},
		Required: []string{"name"},
	})
	require.NoError(t, err)

	assert.False(t, res.Classified())
	assert.Equal(t, []Projection{{"Alice"}, {"Dee"}}, res.Rows)
	assert.Equal(t, `["Alice","Dee"]`, marshal(t, res))
	assert.Equal(t, 2, res.Stats.Skipped())
}

func TestBuild_FlattenMatchesFlatSequence(t *testing.T) {
	rows := [][]string{
		{"a", "X", "1"},
		{"b", "Y", "2"},
		{"c", "X", "3"},
		{"d", "Z", "4"},
		{"e", "Y", "5"},
	}
	flat, err := Build(teamHeader, rows, Spec{Columns: []string{"name", "score"}})
	require.NoError(t, err)

	classified, err := Build(teamHeader, rows, Spec{
		Columns:  []string{"name", "score"},
		Classify: []string{"team"},
	})
	require.NoError(t, err)

	// Key-first-seen concatenation regroups rows, so compare as multisets
	// and check each group keeps arrival order.
	assert.ElementsMatch(t, flat.Rows, classified.Tree.Flatten())
	assert.Equal(t, []Projection{
		{"a", "1"}, {"c", "3"},
		{"b", "2"}, {"e", "5"},
		{"d", "4"},
	}, classified.Tree.Flatten())
}

func TestBuild_MultiLevel(t *testing.T) {
	header := []string{"region", "city", "store", "sales"}
	rows := [][]string{
		{"north", "oslo", "s1", "5"},
		{"south", "rome", "s2", "7"},
		{"north", "bergen", "s3", "1"},
		{"north", "oslo", "s4", "9"},
	}
	res, err := Build(header, rows, Spec{
		Columns:  []string{"store", "sales"},
		Classify: []string{"region", "city"},
	})
	require.NoError(t, err)

	assert.Equal(t,
		`{"north":{"oslo":[["s1","5"],["s4","9"]],"bergen":[["s3","1"]]},"south":{"rome":[["s2","7"]]}}`,
		marshal(t, res))
	assert.Equal(t, []string{"oslo", "bergen"}, res.Tree.Keys("north"))
	assert.Nil(t, res.Tree.Keys("west"))

	var paths []string
	err = res.Tree.Walk(func(path []string, items []Projection) error {
		paths = append(paths, fmt.Sprintf("%v:%d", path, len(items)))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"[north oslo]:2", "[north bergen]:1", "[south rome]:1"}, paths)
}

func TestBuild_DeepClassification(t *testing.T) {
	const depth = 64
	header := make([]string, depth+1)
	row := make([]string, depth+1)
	for i := 0; i < depth; i++ {
		header[i] = fmt.Sprintf("k%d", i)
		row[i] = fmt.Sprintf("v%d", i)
	}
	header[depth], row[depth] = "val", "x"

	res, err := Build(header, [][]string{row}, Spec{
		Columns:  []string{"val"},
		Classify: header[:depth],
	})
	require.NoError(t, err)

	leaf, ok := res.Tree.Get(row[:depth]...)
	require.True(t, ok)
	assert.Equal(t, []Projection{{"x"}}, leaf)
}

func TestBuild_EmptyClassificationValues(t *testing.T) {
	header := []string{"outer", "inner", "v"}
	rows := [][]string{
		{"", "i1", "1"},
		{"o1", "", "2"},
		{"o1", "i2", "3"},
	}

	t.Run("empty outer value is a bucket", func(t *testing.T) {
		res, err := Build(header, rows, Spec{
			Columns:  []string{"v"},
			Classify: []string{"outer", "inner"},
		})
		require.NoError(t, err)
		assert.Equal(t, `{"":{"i1":["1"]},"o1":{"i2":["3"]}}`, marshal(t, res))
		assert.Equal(t, 1, res.Stats.Classify)
		assert.Equal(t, 2, res.Stats.Accepted)
	})

	t.Run("skip empty groups", func(t *testing.T) {
		res, err := Build(header, rows, Spec{
			Columns:         []string{"v"},
			Classify:        []string{"outer", "inner"},
			SkipEmptyGroups: true,
		})
		require.NoError(t, err)
		assert.Equal(t, `{"o1":{"i2":["3"]}}`, marshal(t, res))
		assert.Equal(t, 2, res.Stats.Classify)
	})
}

func TestBuild_EmptyRegionKeepsRow(t *testing.T) {
	res, err := Build(
		[]string{"name", "region", "team"},
		[][]string{
			{"Alice", "", "A"},
			{"Bob", "N", "B"},
			{"Cy", "N", ""},
		},
		Spec{Columns: []string{"name"}, Classify: []string{"region", "team"}},
	)
	require.NoError(t, err)

	assert.Equal(t, `{"":{"A":["Alice"]},"N":{"B":["Bob"]}}`, marshal(t, res))
	assert.Equal(t, Stats{Rows: 3, Accepted: 2, Classify: 1}, res.Stats)

	leaf, ok := res.Tree.Get("", "A")
	require.True(t, ok)
	assert.Equal(t, []Projection{{"Alice"}}, leaf)
	assert.Equal(t, []string{"", "N"}, res.Tree.Keys())
}

func TestBuild_VerboseRecordsSkips(t *testing.T) {
	rows := [][]string{
		{"Alice", "A", "10"},
		{"Bob", "B"},
		{"", "C", "30"},
	}
	res, err := Build(teamHeader, rows, Spec{
		Columns:  []string{"name"},
		Required: []string{"name"},
		Verbose:  true,
	})
	require.NoError(t, err)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, Skip{Row: 2, Reason: SkipWidth, Data: []string{"Bob", "B"}}, res.Skipped[0])
	assert.Equal(t, Skip{Row: 3, Reason: SkipRequired, Data: []string{"", "C", "30"}}, res.Skipped[1])
}

func TestBuild_QuietKeepsCountsOnly(t *testing.T) {
	res, err := Build(teamHeader, [][]string{{"x"}}, Spec{Columns: []string{"name"}})
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, 1, res.Stats.Width)
}

func TestBuild_NoColumns(t *testing.T) {
	_, err := Build(teamHeader, teamRows, Spec{Classify: []string{"team"}})
	assert.ErrorIs(t, err, ErrNoColumns)
}

type failingSource struct {
	rows int
	err  error
}

func (f *failingSource) Header() ([]string, error) { return teamHeader, nil }

func (f *failingSource) Next() ([]string, error) {
	if f.rows == 0 {
		return nil, f.err
	}
	f.rows--
	return []string{"n", "t", "1"}, nil
}

func TestExtract(t *testing.T) {
	src := NewSliceSource(teamHeader, teamRows)
	res, err := Extract(context.Background(), src, Spec{
		Columns:  []string{"name", "score"},
		Classify: []string{"team"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"A":[["Alice","10"],["Cy","30"]],"B":[["Bob","20"]]}`, marshal(t, res))
}

func TestExtract_NoHeader(t *testing.T) {
	_, err := Extract(context.Background(), NewSliceSource(nil, nil), Spec{Columns: []string{"a"}})
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestExtract_SourceError(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := Extract(context.Background(), &failingSource{rows: 2, err: boom}, Spec{Columns: []string{"name"}})
	assert.ErrorIs(t, err, boom)
}

func TestExtract_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Extract(ctx, &failingSource{rows: 10, err: io.EOF}, Spec{Columns: []string{"name"}})
	assert.ErrorIs(t, err, context.Canceled)
}
