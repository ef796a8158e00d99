package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/moodflix/core"
)

const sample = `movie_id,movie_name,year,genres,overview,overview_embedding,vote_count
1,Heat,1995,Crime|Drama|Thriller,"A group of robbers, a cop.","[0.1, 0.2]",1200
2,Amelie,2001,Comedy|Romance,A shy waitress.,not-json,800
3,Up,2009,Animation|Adventure,,,
,NoID,2000,Drama,x,,
4,Short,2000
1,Heat again,1995,Crime,dup,,
`

func TestRead(t *testing.T) {
	c, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	heat, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Heat", heat.Name)
	assert.Equal(t, "1995", heat.Year)
	assert.Equal(t, []string{"Crime", "Drama", "Thriller"}, heat.GenreList())
	assert.Equal(t, "A group of robbers, a cop.", heat.Overview)
	assert.Equal(t, []float64{0.1, 0.2}, heat.Embedding)
	assert.Equal(t, "1200", heat.Meta["vote_count"])
	_, hasName := heat.Meta["movie_name"]
	assert.False(t, hasName)

	amelie, _ := c.Get("2")
	assert.Nil(t, amelie.Embedding)

	assert.Equal(t, []string{"Adventure", "Animation", "Comedy", "Crime", "Drama", "Romance", "Thriller"}, c.Genres())
	assert.Len(t, c.Embedded(), 1)

	ids := make([]string, 0, 3)
	for _, it := range c.Items() {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestRead_MissingColumns(t *testing.T) {
	_, err := Read(strings.NewReader("movie_id,movie_name\n1,x\n"))
	require.Error(t, err)
	assert.True(t, core.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "genres")

	_, err = Read(strings.NewReader(""))
	assert.True(t, core.IsInvalidInput(err))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, core.IsNotFound(err))
}

func TestSample(t *testing.T) {
	items := make([]*core.Item, 20)
	for i := range items {
		items[i] = core.NewItem(string(rune('a' + i)))
	}
	c := New(items)

	a := c.Sample(5, 42)
	b := c.Sample(5, 42)
	require.Len(t, a, 5)
	assert.Equal(t, a, b)

	seen := map[string]bool{}
	for _, it := range a {
		assert.False(t, seen[it.ID])
		seen[it.ID] = true
	}

	assert.Len(t, c.Sample(100, 1), 20)
	assert.Nil(t, c.Sample(0, 1))
}
