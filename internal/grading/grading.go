// Package grading scores test and game submissions and records them as
// attempts.
package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/khianthai/khian/internal/ids"
	"github.com/khianthai/khian/internal/notify"
	"github.com/khianthai/khian/internal/store"
)

// PassingGameScore is the minimum game score that counts as passed.
const PassingGameScore = 60

// maxInsertAttempts bounds retries when a concurrent submission takes the
// same attempt number.
const maxInsertAttempts = 3

var (
	// ErrTestNotFound is returned for unknown tests. It wraps store.ErrNotFound.
	ErrTestNotFound = errors.New("ไม่พบแบบทดสอบ")

	// ErrGameNotFound is returned for unknown games. It wraps store.ErrNotFound.
	ErrGameNotFound = errors.New("ไม่พบเกม")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SubmitTestInput is one completed test.
type SubmitTestInput struct {
	StudentID ids.ID `validate:"required"`
	TestID    ids.ID `validate:"required"`
	// Answers maps question IDs to the chosen answer. Unanswered questions
	// are wrong.
	Answers   map[ids.ID]store.Answer
	TimeSpent int `validate:"min=0"`
}

// TestResult is the recorded attempt plus grading totals.
type TestResult struct {
	store.TestAttempt
	CorrectAnswers int
	TotalQuestions int
	Stars          int
}

// SubmitGameInput is one finished game play.
type SubmitGameInput struct {
	StudentID ids.ID `validate:"required"`
	GameID    ids.ID `validate:"required"`
	Score     int    `validate:"min=0,max=100"`
	// Level defaults to 1.
	Level     int `validate:"min=0"`
	TimeSpent int `validate:"min=0"`
	Data      map[string]any
}

// GameResult is the recorded game attempt.
type GameResult struct {
	store.GameAttempt
}

// Engine grades submissions.
type Engine struct {
	curriculum store.CurriculumRepo
	attempts   store.AttemptRepo
	notifier   notify.Notifier
	now        func() time.Time
}

// NewEngine creates a grading engine. A nil notifier discards
// notifications.
func NewEngine(curriculum store.CurriculumRepo, attempts store.AttemptRepo, notifier notify.Notifier) *Engine {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Engine{curriculum: curriculum, attempts: attempts, notifier: notifier, now: time.Now}
}

// Score returns the number of correctly answered questions and the
// percentage rounded to the nearest integer. A test without questions
// scores 0.
func Score(questions []store.Question, answers map[ids.ID]store.Answer) (correct, score int) {
	if len(questions) == 0 {
		return 0, 0
	}
	for _, q := range questions {
		a, ok := answers[q.ID]
		if ok && q.CorrectAnswer.Equal(a) {
			correct++
		}
	}
	score = int(math.Round(float64(correct) / float64(len(questions)) * 100))
	return correct, score
}

// StarRating converts a percentage into 0 to 3 stars.
func StarRating(score int) int {
	switch {
	case score >= 90:
		return 3
	case score >= 80:
		return 2
	case score >= 60:
		return 1
	default:
		return 0
	}
}

// SubmitTest grades the answers against the full question set and records
// a new attempt.
func (e *Engine) SubmitTest(ctx context.Context, in SubmitTestInput) (*TestResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid test submission: %w", err)
	}

	test, err := e.curriculum.GetTest(ctx, in.TestID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrTestNotFound, err)
	}
	if err != nil {
		return nil, err
	}

	correct, score := Score(test.Questions, in.Answers)
	a := &store.TestAttempt{
		StudentID:   in.StudentID,
		TestID:      in.TestID,
		Score:       score,
		IsPassed:    score >= test.PassingScore,
		Answers:     in.Answers,
		TimeSpent:   in.TimeSpent,
		CompletedAt: e.now().UTC(),
	}

	err = insertNumbered(ctx,
		func(ctx context.Context) (int, error) {
			return e.attempts.MaxTestAttemptNumber(ctx, in.StudentID, in.TestID)
		},
		func(ctx context.Context, n int) error {
			a.ID = ""
			a.AttemptNumber = n
			return e.attempts.CreateTestAttempt(ctx, a)
		})
	if err != nil {
		return nil, err
	}

	res := &TestResult{
		TestAttempt:    *a,
		CorrectAnswers: correct,
		TotalQuestions: len(test.Questions),
		Stars:          StarRating(score),
	}

	slog.Info("test graded",
		"student", in.StudentID, "test", in.TestID,
		"attempt", a.AttemptNumber, "score", score, "passed", a.IsPassed)

	if a.IsPassed {
		e.notifier.Notify(ctx, in.StudentID,
			"🎉 ยินดีด้วย! คุณผ่านแบบทดสอบแล้ว",
			fmt.Sprintf("คุณทำคะแนนได้ %d%% ในแบบทดสอบ \"%s\"", score, test.Title),
			store.NotifySuccess)

		if res.Stars > 0 {
			e.notifier.Notify(ctx, in.StudentID,
				fmt.Sprintf("⭐ ได้รับ %d ดาว!", res.Stars),
				fmt.Sprintf("คุณได้รับ %d ดาวจากแบบทดสอบ \"%s\"", res.Stars, test.Title),
				store.NotifySuccess)
		}
	}

	return res, nil
}

// SubmitGame records a game play. Scores of PassingGameScore or more pass.
func (e *Engine) SubmitGame(ctx context.Context, in SubmitGameInput) (*GameResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid game submission: %w", err)
	}

	game, err := e.curriculum.GetGame(ctx, in.GameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrGameNotFound, err)
	}
	if err != nil {
		return nil, err
	}

	level := in.Level
	if level == 0 {
		level = 1
	}
	a := &store.GameAttempt{
		StudentID:   in.StudentID,
		GameID:      in.GameID,
		Score:       in.Score,
		Level:       level,
		IsPassed:    in.Score >= PassingGameScore,
		TimeSpent:   in.TimeSpent,
		Data:        in.Data,
		CompletedAt: e.now().UTC(),
	}

	err = insertNumbered(ctx,
		func(ctx context.Context) (int, error) {
			return e.attempts.MaxGameAttemptNumber(ctx, in.StudentID, in.GameID)
		},
		func(ctx context.Context, n int) error {
			a.ID = ""
			a.AttemptNumber = n
			return e.attempts.CreateGameAttempt(ctx, a)
		})
	if err != nil {
		return nil, err
	}

	switch {
	case in.Score == 100:
		e.notifier.Notify(ctx, in.StudentID,
			"🥇 ได้เหรียญทอง!",
			fmt.Sprintf("คุณเล่นเกม \"%s\" ได้คะแนน 100%%!", game.Title),
			store.NotifySuccess)
	case a.IsPassed:
		e.notifier.Notify(ctx, in.StudentID,
			"🎮 ผ่านเกมแล้ว!",
			fmt.Sprintf("คุณเล่นเกม \"%s\" ได้คะแนน %d%%", game.Title, in.Score),
			store.NotifySuccess)
	}

	return &GameResult{GameAttempt: *a}, nil
}

// insertNumbered inserts with the next attempt number. When the insert
// fails and the stored maximum has moved since it was read, another
// submission took the number and the insert is retried with a fresh one.
func insertNumbered(ctx context.Context, maxNumber func(context.Context) (int, error), insert func(context.Context, int) error) error {
	n, err := maxNumber(ctx)
	if err != nil {
		return err
	}
	for i := 1; ; i++ {
		err := insert(ctx, n+1)
		if err == nil {
			return nil
		}
		latest, merr := maxNumber(ctx)
		if merr != nil || latest == n || i == maxInsertAttempts {
			return err
		}
		slog.Warn("attempt number taken, retrying", "attempt", n+1, "latest", latest)
		n = latest
	}
}
