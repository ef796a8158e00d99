package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const candidatesCSV = `movie_id,movie_name,year,genres,overview,similarity_score
1,Up,2009,Animation|Comedy,a funny and happy flight,0.9
2,Heat,1995,Crime|Thriller,a tense heist in los angeles,0.7
3,Amelie,2001,Comedy|Romance,a shy waitress finds love,0.8
`

func TestRankCmd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "cands.csv")
	require.NoError(t, os.WriteFile(in, []byte(candidatesCSV), 0o600))

	var out bytes.Buffer
	err := rankCmd([]string{"-in", in, "-genres", "Comedy", "-emotions", "Happy", "-snapshot-dir", dir}, &out)
	require.NoError(t, err)

	var rows []struct {
		ID     string             `json:"movie_id"`
		Final  float64            `json:"final_score"`
		Scores map[string]float64 `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "1", rows[0].ID)
	assert.InDelta(t, 0.9, rows[0].Scores["similarity_score"], 1e-12)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].Final, rows[i].Final)
	}

	snaps, err := filepath.Glob(filepath.Join(dir, "pre_threshold_*.csv"))
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestRankCmd_Errors(t *testing.T) {
	assert.Error(t, rankCmd(nil, &bytes.Buffer{}))

	dir := t.TempDir()
	in := filepath.Join(dir, "cands.csv")
	require.NoError(t, os.WriteFile(in, []byte(candidatesCSV), 0o600))
	err := rankCmd([]string{"-in", in, "-w-similarity", "0", "-w-category", "0", "-w-emotion", "0"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRankCmd_ThresholdFlags(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "cands.csv")
	require.NoError(t, os.WriteFile(in, []byte(candidatesCSV), 0o600))

	run := func(args ...string) []string {
		t.Helper()
		var out bytes.Buffer
		base := []string{"-in", in, "-w-similarity", "1", "-w-category", "0", "-w-emotion", "0"}
		require.NoError(t, rankCmd(append(base, args...), &out))
		var rows []struct {
			ID string `json:"movie_id"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
		ids := make([]string, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}
		return ids
	}

	// final = similarity：μ=0.8，σ=0.1，阈值 0.75
	assert.Equal(t, []string{"1", "3", "2"}, run())
	assert.Equal(t, []string{"1", "3"}, run("-min-score", "0", "-min-results", "1"))
	assert.Equal(t, []string{"1"}, run("-min-score", "0.85", "-min-results", "1"))
}
