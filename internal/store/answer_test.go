package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Answer
		want bool
	}{
		{"same index", SingleAnswer(2), SingleAnswer(2), true},
		{"different index", SingleAnswer(2), SingleAnswer(1), false},
		{"set order ignored", MultiAnswer(0, 2), MultiAnswer(2, 0), true},
		{"set duplicates ignored", MultiAnswer(0, 2, 2), MultiAnswer(0, 2), true},
		{"subset", MultiAnswer(0), MultiAnswer(0, 2), false},
		{"kind mismatch", SingleAnswer(1), MultiAnswer(1), false},
		{"unset never equal", Answer{}, Answer{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestAnswerJSON(t *testing.T) {
	var single, multi, none Answer
	require.NoError(t, json.Unmarshal([]byte(`3`), &single))
	require.NoError(t, json.Unmarshal([]byte(` [2, 0] `), &multi))
	require.NoError(t, json.Unmarshal([]byte(`null`), &none))

	assert.False(t, single.IsMulti())
	assert.Equal(t, []int{3}, single.Indices())
	assert.True(t, multi.IsMulti())
	assert.Equal(t, []int{0, 2}, multi.Indices())
	assert.True(t, none.IsZero())

	b, err := json.Marshal(multi)
	require.NoError(t, err)
	assert.JSONEq(t, `[0,2]`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`"a"`), &single))
}
