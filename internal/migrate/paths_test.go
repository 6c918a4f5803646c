package migrate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khianthai/khian/internal/ids"
	"github.com/khianthai/khian/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRewrite(t *testing.T) {
	m := DefaultPathMigration()

	tests := []struct {
		in, want string
		changed  bool
	}{
		{"/คำศัพท์บท1-4/บทที่1/ไก่.png", "/คำศัพท์บท1-8/บทที่1/ไก่.png", true},
		{"/คำศัพท์บท1-3/บทที่2/จาน.png", "/คำศัพท์บท1-8/บทที่2/จาน.png", true},
		{`[{"a":"/คำศัพท์บท1-4/x.png"},{"b":"/คำศัพท์บท1-3/y.png"}]`, `[{"a":"/คำศัพท์บท1-8/x.png"},{"b":"/คำศัพท์บท1-8/y.png"}]`, true},
		{"/คำศัพท์บท1-8/บทที่1/ไก่.png", "/คำศัพท์บท1-8/บทที่1/ไก่.png", false},
		{"/ก-ฮ/ก.png", "/ก-ฮ/ก.png", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, changed := m.Rewrite(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.changed, changed, tt.in)
	}
}

func TestRun(t *testing.T) {
	s := openTestStore(t)
	repo := s.CurriculumRepo()
	ctx := context.Background()
	classroom := ids.New()

	old := &store.Lesson{ClassroomID: classroom, Title: "old", OrderIndex: 1, IsActive: true,
		Content: `{"items":[{"vocabImage":"/คำศัพท์บท1-4/บทที่1/ไก่.png"}]}`}
	fresh := &store.Lesson{ClassroomID: classroom, Title: "fresh", OrderIndex: 2, IsActive: true,
		Content: `{"items":[{"vocabImage":"/คำศัพท์บท1-8/บทที่1/ไข่.png"}]}`}
	require.NoError(t, repo.CreateLesson(ctx, old))
	require.NoError(t, repo.CreateLesson(ctx, fresh))

	test := &store.Test{LessonID: old.ID, ClassroomID: classroom, Type: store.PreTest, IsActive: true,
		Questions: []store.Question{
			{Text: "นี่คืออะไร", Options: []string{"ไก่", "ไข่"}, CorrectAnswer: store.SingleAnswer(0), ImageURL: "/คำศัพท์บท1-3/บทที่1/ไก่.png"},
			{Text: "untouched", Options: []string{"a"}, CorrectAnswer: store.SingleAnswer(0), OrderIndex: 1},
		}}
	require.NoError(t, repo.CreateTest(ctx, test))

	game := &store.Game{LessonID: old.ID, ClassroomID: classroom, Title: "match", Type: "MATCHING", IsActive: true,
		Settings: map[string]any{
			"pairs": []any{
				map[string]any{"image": "/คำศัพท์บท1-4/บทที่1/ไก่.png", "word": "ไก่"},
			},
			"rounds": 3.0,
		}}
	require.NoError(t, repo.CreateGame(ctx, game))

	report, err := DefaultPathMigration().Run(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, PathReport{Lessons: 1, Questions: 1, Games: 1}, *report)
	assert.Equal(t, 3, report.Total())

	got, err := repo.GetLesson(ctx, old.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Content, "/คำศัพท์บท1-8/บทที่1/ไก่.png")

	gotTest, err := repo.GetTest(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, "/คำศัพท์บท1-8/บทที่1/ไก่.png", gotTest.Questions[0].ImageURL)

	gotGame, err := repo.GetGame(ctx, game.ID)
	require.NoError(t, err)
	pairs := gotGame.Settings["pairs"].([]any)
	assert.Equal(t, "/คำศัพท์บท1-8/บทที่1/ไก่.png", pairs[0].(map[string]any)["image"])
	assert.Equal(t, 3.0, gotGame.Settings["rounds"])

	again, err := DefaultPathMigration().Run(ctx, repo)
	require.NoError(t, err)
	assert.Zero(t, again.Total())
}

func TestRun_EmptyTarget(t *testing.T) {
	s := openTestStore(t)
	_, err := PathMigration{From: []string{"/a/"}}.Run(context.Background(), s.CurriculumRepo())
	assert.Error(t, err)
}
