package tabular

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree_InsertWrongDepth(t *testing.T) {
	tree := NewTree(2, false)
	err := tree.Insert([]string{"only"}, Projection{"x"})
	assert.Error(t, err)
	assert.Equal(t, 0, tree.Len())
}

func TestTree_GetPartialPath(t *testing.T) {
	tree := NewTree(2, false)
	require.NoError(t, tree.Insert([]string{"a", "b"}, Projection{"1"}))

	_, ok := tree.Get("a")
	assert.False(t, ok, "partial path is not a leaf")

	_, ok = tree.Get("a", "zz")
	assert.False(t, ok)

	leaf, ok := tree.Get("a", "b")
	require.True(t, ok)
	assert.Equal(t, []Projection{{"1"}}, leaf)
}

func TestTree_KeysAtLeafLevel(t *testing.T) {
	tree := NewTree(1, true)
	require.NoError(t, tree.Insert([]string{"k"}, Projection{"v"}))

	assert.Equal(t, []string{"k"}, tree.Keys())
	assert.Nil(t, tree.Keys("k"))
}

func TestTree_WalkStops(t *testing.T) {
	tree := NewTree(1, false)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, tree.Insert([]string{k}, Projection{k}))
	}

	stop := errors.New("stop")
	var seen []string
	err := tree.Walk(func(path []string, _ []Projection) error {
		seen = append(seen, path[0])
		if path[0] == "b" {
			return stop
		}
		return nil
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestTree_WalkPathsAreIndependent(t *testing.T) {
	tree := NewTree(2, false)
	require.NoError(t, tree.Insert([]string{"a", "x"}, Projection{"1"}))
	require.NoError(t, tree.Insert([]string{"a", "y"}, Projection{"2"}))

	var paths [][]string
	require.NoError(t, tree.Walk(func(path []string, _ []Projection) error {
		paths = append(paths, path)
		return nil
	}))

	assert.Equal(t, [][]string{{"a", "x"}, {"a", "y"}}, paths)
}

func TestTree_MarshalEscapesKeys(t *testing.T) {
	tree := NewTree(1, true)
	require.NoError(t, tree.Insert([]string{`q"uote`}, Projection{"v"}))

	b, err := tree.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"q\"uote":"v"}`, string(b))
}
