package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khianthai/khian/internal/ids"
	"github.com/khianthai/khian/internal/store"
)

func TestParseAnswers(t *testing.T) {
	got, err := parseAnswers(`{"q1": 2, "Q2": [3, 1]}`)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[ids.ID("q1")].Equal(store.SingleAnswer(2)))
	assert.True(t, got[ids.ID("Q2")].Equal(store.MultiAnswer(1, 3)))

	got, err = parseAnswers("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseAnswers(`{"q1": "a"}`)
	assert.Error(t, err)
	_, err = parseAnswers(`{"bad id": 1}`)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "gemini", truncate("gemini", 10))
	assert.Equal(t, "ก ไ", truncate("ก ไก่", 3))
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"lessons"}, {"complete"}, {"activity"}, {"pretest"}, {"posttest"},
		{"test", "submit"}, {"game", "submit"},
		{"write", "check"}, {"write", "history"},
		{"notifications", "list"}, {"notifications", "read"},
		{"curriculum", "import"}, {"migrate", "paths"},
		{"llm", "list"}, {"llm", "view"}, {"llm", "stats"}, {"version"},
	} {
		c, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], c.Name())
	}
}
