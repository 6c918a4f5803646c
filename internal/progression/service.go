// Package progression decides which lessons a student may open and records
// lesson completion.
package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/khianthai/khian/internal/ids"
	"github.com/khianthai/khian/internal/notify"
	"github.com/khianthai/khian/internal/store"
)

// ErrLessonNotFound is returned for unknown lessons. It wraps
// store.ErrNotFound.
var ErrLessonNotFound = errors.New("ไม่พบบทเรียน")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Service computes lesson states and records progress.
type Service struct {
	curriculum store.CurriculumRepo
	progress   store.ProgressRepo
	attempts   store.AttemptRepo
	notifier   notify.Notifier
	now        func() time.Time
}

// NewService creates a progression service. A nil notifier discards
// notifications.
func NewService(curriculum store.CurriculumRepo, progress store.ProgressRepo, attempts store.AttemptRepo, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Service{
		curriculum: curriculum,
		progress:   progress,
		attempts:   attempts,
		notifier:   notifier,
		now:        time.Now,
	}
}

type chapterKey struct {
	chapter string
	order   int
}

// snapshot holds the batch reads for one student and classroom.
type snapshot struct {
	tests      []store.Test
	games      []store.Game
	progress   map[ids.ID]*store.LessonProgress
	testCounts map[ids.ID]int
	passed     map[ids.ID]bool
}

// ComputeLessonStates returns one view per active lesson of the classroom,
// ordered by OrderIndex.
func (s *Service) ComputeLessonStates(ctx context.Context, studentID, classroomID ids.ID) ([]LessonView, error) {
	lessons, err := s.curriculum.ActiveLessons(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	if len(lessons) == 0 {
		return []LessonView{}, nil
	}

	snap, err := s.load(ctx, studentID, lessons)
	if err != nil {
		return nil, err
	}

	testsByLesson := make(map[ids.ID][]store.Test)
	for _, t := range snap.tests {
		testsByLesson[t.LessonID] = append(testsByLesson[t.LessonID], t)
	}
	gamesByLesson := make(map[ids.ID][]store.Game)
	for _, g := range snap.games {
		gamesByLesson[g.LessonID] = append(gamesByLesson[g.LessonID], g)
	}
	byPosition := make(map[chapterKey]ids.ID, len(lessons))
	for _, l := range lessons {
		byPosition[chapterKey{l.Chapter, l.OrderIndex}] = l.ID
	}

	views := make([]LessonView, 0, len(lessons))
	for _, l := range lessons {
		v := LessonView{
			Lesson:   l,
			Progress: snap.progress[l.ID],
			PreTest:  summarize(testsByLesson[l.ID], store.PreTest, snap.testCounts),
			PostTest: summarize(testsByLesson[l.ID], store.PostTest, snap.testCounts),
		}

		in := StateInput{
			Completed:   v.Progress != nil && v.Progress.IsCompleted,
			HasPreTest:  v.PreTest != nil,
			HasPostTest: v.PostTest != nil,
		}
		if v.PreTest != nil {
			in.PreTestAttempts = v.PreTest.Attempts
		}
		if v.PostTest != nil {
			in.PostTestAttempts = v.PostTest.Attempts
		}

		prevID, hasPrev := byPosition[chapterKey{l.Chapter, l.OrderIndex - 1}]
		in.IsChapterHead = l.OrderIndex == 1 || !hasPrev
		if hasPrev {
			p := snap.progress[prevID]
			in.PrevCompleted = p != nil && p.IsCompleted
		}
		v.IsChapterHead = in.IsChapterHead

		for _, g := range gamesByLesson[l.ID] {
			passed := snap.passed[g.ID]
			v.Games = append(v.Games, GameSummary{ID: g.ID, Title: g.Title, Type: g.Type, Passed: passed})
			in.Games++
			if passed {
				in.PassedGames++
			}
		}

		v.Status, v.CanAccess = ResolveState(in)
		views = append(views, v)
	}

	return views, nil
}

// load runs the independent reads concurrently: curriculum and progress
// first, then attempt aggregates for the tests and games found.
func (s *Service) load(ctx context.Context, studentID ids.ID, lessons []store.Lesson) (*snapshot, error) {
	lessonIDs := make([]ids.ID, len(lessons))
	for i, l := range lessons {
		lessonIDs[i] = l.ID
	}

	snap := &snapshot{progress: make(map[ids.ID]*store.LessonProgress)}
	var rows []store.LessonProgress

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.tests, err = s.curriculum.ActiveTests(gctx, lessonIDs)
		return err
	})
	g.Go(func() error {
		var err error
		snap.games, err = s.curriculum.ActiveGames(gctx, lessonIDs)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.progress.ListProgress(gctx, studentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}

	for i := range rows {
		snap.progress[rows[i].LessonID] = &rows[i]
	}

	testIDs := make([]ids.ID, len(snap.tests))
	for i, t := range snap.tests {
		testIDs[i] = t.ID
	}
	gameIDs := make([]ids.ID, len(snap.games))
	for i, gm := range snap.games {
		gameIDs[i] = gm.ID
	}

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.testCounts, err = s.attempts.CountTestAttempts(gctx, studentID, testIDs)
		return err
	})
	g.Go(func() error {
		var err error
		snap.passed, err = s.attempts.PassedGames(gctx, studentID, gameIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}

	return snap, nil
}

// summarize returns the first test of the given type, or nil.
func summarize(tests []store.Test, typ store.TestType, counts map[ids.ID]int) *TestSummary {
	for _, t := range tests {
		if t.Type == typ {
			return &TestSummary{ID: t.ID, Title: t.Title, PassingScore: t.PassingScore, Attempts: counts[t.ID]}
		}
	}
	return nil
}

// CompleteLesson marks the lesson completed for the student. Repeating it
// is harmless. The student is told about the completion and about the next
// lesson in the classroom, if any.
func (s *Service) CompleteLesson(ctx context.Context, studentID, lessonID ids.ID) (*store.LessonProgress, error) {
	lesson, err := s.lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	p, err := s.progressFor(ctx, studentID, lessonID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p.IsCompleted = true
	p.CompletedAt = &now
	if err := s.progress.UpsertProgress(ctx, p); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, studentID,
		"🎯 เรียนจบบทเรียนแล้ว!",
		fmt.Sprintf("คุณเรียนจบ \"%s\" แล้ว! ทำแบบทดสอบเพื่อทดสอบความรู้ของคุณ", lesson.Title),
		store.NotifySuccess)

	if next := s.nextLesson(ctx, lesson); next != nil {
		s.notifier.Notify(ctx, studentID,
			"🔓 บทเรียนใหม่ปลดล็อกแล้ว!",
			fmt.Sprintf("บทเรียน \"%s\" พร้อมสำหรับคุณแล้ว!", next.Title),
			store.NotifyInfo)
	}

	return p, nil
}

// nextLesson returns the active lesson after l in its classroom. Lookup
// failures only cost the unlock notification.
func (s *Service) nextLesson(ctx context.Context, l *store.Lesson) *store.Lesson {
	lessons, err := s.curriculum.ActiveLessons(ctx, l.ClassroomID)
	if err != nil {
		return nil
	}
	for i := range lessons {
		if lessons[i].ID == l.ID && i+1 < len(lessons) {
			return &lessons[i+1]
		}
	}
	return nil
}

// SubmitActivity records the result of one in-lesson activity, replacing
// any earlier result for the same activity.
func (s *Service) SubmitActivity(ctx context.Context, studentID, lessonID ids.ID, in ActivityInput) (*store.ActivityResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid activity: %w", err)
	}
	if _, err := s.lesson(ctx, lessonID); err != nil {
		return nil, err
	}

	p, err := s.progressFor(ctx, studentID, lessonID)
	if err != nil {
		return nil, err
	}

	result := store.ActivityResult{
		ActivityID:  in.ActivityID,
		Answer:      in.Answer,
		IsCorrect:   in.IsCorrect,
		TimeSpent:   in.TimeSpent,
		SubmittedAt: s.now().UTC(),
	}
	switch {
	case in.Score != nil:
		result.Score = *in.Score
	case in.IsCorrect:
		result.Score = 100
	}

	kept := p.ActivityResults[:0]
	for _, r := range p.ActivityResults {
		if r.ActivityID != in.ActivityID {
			kept = append(kept, r)
		}
	}
	p.ActivityResults = append(kept, result)
	p.TimeSpent += in.TimeSpent

	if err := s.progress.UpsertProgress(ctx, p); err != nil {
		return nil, err
	}
	return &result, nil
}

// PreTestStatus reports whether the lesson's pre-test has been attempted.
// A lesson without a pre-test counts as completed and accessible.
func (s *Service) PreTestStatus(ctx context.Context, studentID, lessonID ids.ID) (*PreTestStatus, error) {
	t, attempts, err := s.lessonTest(ctx, studentID, lessonID, store.PreTest)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return &PreTestStatus{Completed: true, CanAccessLesson: true}, nil
	}
	done := attempts > 0
	return &PreTestStatus{
		HasPreTest:      true,
		Completed:       done,
		CanAccessLesson: done,
		TestID:          t.ID,
		Title:           t.Title,
	}, nil
}

// PostTestStatus reports whether the lesson's post-test is unlocked and
// attempted.
func (s *Service) PostTestStatus(ctx context.Context, studentID, lessonID ids.ID) (*PostTestStatus, error) {
	p, err := s.progress.GetProgress(ctx, studentID, lessonID)
	if err != nil {
		return nil, err
	}
	completed := p != nil && p.IsCompleted

	t, attempts, err := s.lessonTest(ctx, studentID, lessonID, store.PostTest)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return &PostTestStatus{Unlocked: completed}, nil
	}
	return &PostTestStatus{
		HasPostTest: true,
		Unlocked:    completed,
		Completed:   attempts > 0,
		TestID:      t.ID,
		Title:       t.Title,
	}, nil
}

func (s *Service) lessonTest(ctx context.Context, studentID, lessonID ids.ID, typ store.TestType) (*store.Test, int, error) {
	tests, err := s.curriculum.ActiveTests(ctx, []ids.ID{lessonID})
	if err != nil {
		return nil, 0, err
	}
	for i := range tests {
		if tests[i].Type != typ {
			continue
		}
		counts, err := s.attempts.CountTestAttempts(ctx, studentID, []ids.ID{tests[i].ID})
		if err != nil {
			return nil, 0, err
		}
		return &tests[i], counts[tests[i].ID], nil
	}
	return nil, 0, nil
}

func (s *Service) lesson(ctx context.Context, id ids.ID) (*store.Lesson, error) {
	l, err := s.curriculum.GetLesson(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrLessonNotFound, err)
	}
	return l, err
}

// progressFor returns the student's progress row, or a fresh one.
func (s *Service) progressFor(ctx context.Context, studentID, lessonID ids.ID) (*store.LessonProgress, error) {
	p, err := s.progress.GetProgress(ctx, studentID, lessonID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &store.LessonProgress{StudentID: studentID, LessonID: lessonID}
	}
	return p, nil
}
