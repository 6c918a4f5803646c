package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
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

type sentNotification struct {
	Title, Message string
	Type           store.NotificationType
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, _ ids.ID, title, message string, typ store.NotificationType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{title, message, typ})
}

// seedTest creates a test with n questions whose correct answer is option 0,
// except the last one which is multi-select {0, 2}.
func seedTest(t *testing.T, s *store.Store, n, passing int) *store.Test {
	t.Helper()
	tt := &store.Test{
		LessonID:     ids.New(),
		ClassroomID:  ids.New(),
		Title:        "สระอา",
		Type:         store.PostTest,
		PassingScore: passing,
		IsActive:     true,
	}
	for i := range n {
		q := store.Question{Text: fmt.Sprintf("q%d", i), Options: []string{"ก", "ข", "ค"}, OrderIndex: i, CorrectAnswer: store.SingleAnswer(0)}
		if i == n-1 {
			q.CorrectAnswer = store.MultiAnswer(0, 2)
		}
		tt.Questions = append(tt.Questions, q)
	}
	require.NoError(t, s.CurriculumRepo().CreateTest(context.Background(), tt))
	return tt
}

func allCorrect(tt *store.Test) map[ids.ID]store.Answer {
	answers := make(map[ids.ID]store.Answer, len(tt.Questions))
	for _, q := range tt.Questions {
		answers[q.ID] = q.CorrectAnswer
	}
	return answers
}

func TestScore(t *testing.T) {
	q := []store.Question{
		{ID: "a", CorrectAnswer: store.SingleAnswer(1)},
		{ID: "b", CorrectAnswer: store.SingleAnswer(2)},
		{ID: "c", CorrectAnswer: store.MultiAnswer(0, 3)},
	}

	tests := []struct {
		name        string
		questions   []store.Question
		answers     map[ids.ID]store.Answer
		wantCorrect int
		wantScore   int
	}{
		{"no questions", nil, nil, 0, 0},
		{"all correct", q, map[ids.ID]store.Answer{"a": store.SingleAnswer(1), "b": store.SingleAnswer(2), "c": store.MultiAnswer(3, 0)}, 3, 100},
		{"two of three rounds up", q, map[ids.ID]store.Answer{"a": store.SingleAnswer(1), "b": store.SingleAnswer(2)}, 2, 67},
		{"one of three rounds down", q, map[ids.ID]store.Answer{"a": store.SingleAnswer(1)}, 1, 33},
		{"subset of multi is wrong", q, map[ids.ID]store.Answer{"c": store.MultiAnswer(0)}, 0, 0},
		{"superset of multi is wrong", q, map[ids.ID]store.Answer{"c": store.MultiAnswer(0, 1, 3)}, 0, 0},
		{"single for multi is wrong", q, map[ids.ID]store.Answer{"c": store.SingleAnswer(0)}, 0, 0},
		{"multi for single is wrong", q, map[ids.ID]store.Answer{"a": store.MultiAnswer(1)}, 0, 0},
		{"unknown question ignored", q, map[ids.ID]store.Answer{"zzz": store.SingleAnswer(1)}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, score := Score(tt.questions, tt.answers)
			assert.Equal(t, tt.wantCorrect, correct)
			assert.Equal(t, tt.wantScore, score)
		})
	}
}

func TestStarRating(t *testing.T) {
	cases := map[int]int{100: 3, 90: 3, 89: 2, 80: 2, 79: 1, 60: 1, 59: 0, 0: 0}
	for score, want := range cases {
		if got := StarRating(score); got != want {
			t.Errorf("StarRating(%d) = %d, want %d", score, got, want)
		}
	}
}

func TestSubmitTest_PassAndNotify(t *testing.T) {
	s := openTestStore(t)
	notes := &recordingNotifier{}
	e := NewEngine(s.CurriculumRepo(), s.AttemptRepo(), notes)
	tt := seedTest(t, s, 4, 70)
	student := ids.New()

	res, err := e.SubmitTest(context.Background(), SubmitTestInput{
		StudentID: student, TestID: tt.ID, Answers: allCorrect(tt), TimeSpent: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.True(t, res.IsPassed)
	assert.Equal(t, 1, res.AttemptNumber)
	assert.Equal(t, 4, res.CorrectAnswers)
	assert.Equal(t, 4, res.TotalQuestions)
	assert.Equal(t, 3, res.Stars)

	require.Len(t, notes.sent, 2)
	assert.Equal(t, "🎉 ยินดีด้วย! คุณผ่านแบบทดสอบแล้ว", notes.sent[0].Title)
	assert.Equal(t, `คุณทำคะแนนได้ 100% ในแบบทดสอบ "สระอา"`, notes.sent[0].Message)
	assert.Equal(t, "⭐ ได้รับ 3 ดาว!", notes.sent[1].Title)
	assert.Equal(t, store.NotifySuccess, notes.sent[1].Type)

	stored, err := s.AttemptRepo().ListTestAttempts(context.Background(), student, tt.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 100, stored[0].Score)
	assert.Len(t, stored[0].Answers, 4)
}

func TestSubmitTest_FailDoesNotNotify(t *testing.T) {
	s := openTestStore(t)
	notes := &recordingNotifier{}
	e := NewEngine(s.CurriculumRepo(), s.AttemptRepo(), notes)
	tt := seedTest(t, s, 4, 70)

	answers := allCorrect(tt)
	delete(answers, tt.Questions[0].ID)
	delete(answers, tt.Questions[1].ID)

	res, err := e.SubmitTest(context.Background(), SubmitTestInput{StudentID: ids.New(), TestID: tt.ID, Answers: answers})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Score)
	assert.False(t, res.IsPassed)
	assert.Empty(t, notes.sent)
}

func TestSubmitTest_PassBelowStarThreshold(t *testing.T) {
	s := openTestStore(t)
	notes := &recordingNotifier{}
	e := NewEngine(s.CurriculumRepo(), s.AttemptRepo(), notes)
	tt := seedTest(t, s, 2, 50)

	answers := allCorrect(tt)
	delete(answers, tt.Questions[0].ID)

	res, err := e.SubmitTest(context.Background(), SubmitTestInput{StudentID: ids.New(), TestID: tt.ID, Answers: answers})
	require.NoError(t, err)
	assert.True(t, res.IsPassed)
	assert.Equal(t, 0, res.Stars)
	require.Len(t, notes.sent, 1, "no star notification below 60")
}

func TestSubmitTest_AttemptNumbersIncrease(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s.CurriculumRepo(), s.AttemptRepo(), nil)
	tt := seedTest(t, s, 3, 60)
	student := ids.New()

	for want := 1; want <= 3; want++ {
		res, err := e.SubmitTest(context.Background(), SubmitTestInput{StudentID: student, TestID: tt.ID})
		require.NoError(t, err)
		assert.Equal(t, want, res.AttemptNumber)
		assert.Equal(t, 0, res.Score)
	}

	res, err := e.SubmitTest(context.Background(), SubmitTestInput{StudentID: ids.New(), TestID: tt.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.AttemptNumber, "numbering is per student")
}

func TestSubmitTest_NoQuestions(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s.CurriculumRepo(), s.AttemptRepo(), nil)
	tt := seedTest(t, s, 0, 0)

	res, err := e.SubmitTest(context.Background(), SubmitTestInput{StudentID: ids.New(), TestID: tt.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 0, res.TotalQuestions)
	assert.True(t, res.IsPassed, "passing score 0 is always met")
}

func TestSubmitTest_Errors(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s.CurriculumRepo(), s.AttemptRepo(), nil)

	_, err := e.SubmitTest(context.Background(), SubmitTestInput{TestID: ids.New()})
	assert.Error(t, err, "student required")

	_, err = e.SubmitTest(context.Background(), SubmitTestInput{StudentID: ids.New(), TestID: ids.New(), TimeSpent: -1})
	assert.Error(t, err)

	_, err = e.SubmitTest(context.Background(), SubmitTestInput{StudentID: ids.New(), TestID: ids.New()})
	assert.ErrorIs(t, err, ErrTestNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// racingAttempts inserts a competing attempt with the same number right
// before the first insert.
type racingAttempts struct {
	store.AttemptRepo
	raced bool
}

func (r *racingAttempts) CreateTestAttempt(ctx context.Context, a *store.TestAttempt) error {
	if !r.raced {
		r.raced = true
		rival := *a
		rival.ID = ""
		if err := r.AttemptRepo.CreateTestAttempt(ctx, &rival); err != nil {
			return err
		}
	}
	return r.AttemptRepo.CreateTestAttempt(ctx, a)
}

func TestSubmitTest_RetriesTakenAttemptNumber(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s.CurriculumRepo(), &racingAttempts{AttemptRepo: s.AttemptRepo()}, nil)
	tt := seedTest(t, s, 1, 0)
	student := ids.New()

	res, err := e.SubmitTest(context.Background(), SubmitTestInput{StudentID: student, TestID: tt.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, res.AttemptNumber)

	stored, err := s.AttemptRepo().ListTestAttempts(context.Background(), student, tt.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

type failingAttempts struct {
	store.AttemptRepo
}

func (failingAttempts) MaxTestAttemptNumber(context.Context, ids.ID, ids.ID) (int, error) {
	return 0, nil
}

func (failingAttempts) CreateTestAttempt(context.Context, *store.TestAttempt) error {
	return errors.New("disk I/O error")
}

func TestSubmitTest_InsertErrorPropagates(t *testing.T) {
	s := openTestStore(t)
	notes := &recordingNotifier{}
	e := NewEngine(s.CurriculumRepo(), failingAttempts{}, notes)
	tt := seedTest(t, s, 1, 0)

	_, err := e.SubmitTest(context.Background(), SubmitTestInput{StudentID: ids.New(), TestID: tt.ID})
	assert.ErrorContains(t, err, "disk I/O error")
	assert.Empty(t, notes.sent)
}

func TestSubmitGame(t *testing.T) {
	s := openTestStore(t)
	notes := &recordingNotifier{}
	e := NewEngine(s.CurriculumRepo(), s.AttemptRepo(), notes)
	g := &store.Game{LessonID: ids.New(), ClassroomID: ids.New(), Title: "จับคู่", Type: "MATCHING", IsActive: true}
	require.NoError(t, s.CurriculumRepo().CreateGame(context.Background(), g))
	student := ids.New()

	tests := []struct {
		score      int
		wantPassed bool
		wantTitle  string
	}{
		{40, false, ""},
		{60, true, "🎮 ผ่านเกมแล้ว!"},
		{100, true, "🥇 ได้เหรียญทอง!"},
	}

	for i, tt := range tests {
		notes.sent = nil
		res, err := e.SubmitGame(context.Background(), SubmitGameInput{StudentID: student, GameID: g.ID, Score: tt.score, Data: map[string]any{"pairs": 4}})
		require.NoError(t, err)
		assert.Equal(t, i+1, res.AttemptNumber)
		assert.Equal(t, 1, res.Level)
		assert.Equal(t, tt.wantPassed, res.IsPassed)
		if tt.wantTitle == "" {
			assert.Empty(t, notes.sent)
			continue
		}
		require.Len(t, notes.sent, 1)
		assert.Equal(t, tt.wantTitle, notes.sent[0].Title)
		assert.Contains(t, notes.sent[0].Message, `"จับคู่"`)
	}

	passed, err := s.AttemptRepo().PassedGames(context.Background(), student, []ids.ID{g.ID})
	require.NoError(t, err)
	assert.True(t, passed[g.ID])
}

func TestSubmitGame_Errors(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s.CurriculumRepo(), s.AttemptRepo(), nil)

	_, err := e.SubmitGame(context.Background(), SubmitGameInput{StudentID: ids.New(), GameID: ids.New(), Score: 101})
	assert.Error(t, err)

	_, err = e.SubmitGame(context.Background(), SubmitGameInput{StudentID: ids.New(), GameID: ids.New(), Score: 50})
	assert.ErrorIs(t, err, ErrGameNotFound)
}
