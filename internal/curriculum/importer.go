package curriculum

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/khianthai/khian/internal/ids"
	"github.com/khianthai/khian/internal/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Result lists what an import created.
type Result struct {
	ClassroomID ids.ID
	Lessons     []ids.ID
	Tests       []ids.ID
	Games       []ids.ID
	Questions   int
}

// Validate checks the document without writing anything.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid curriculum: %w", err)
	}
	if _, err := ids.Parse(d.Classroom); err != nil {
		return fmt.Errorf("invalid curriculum: classroom: %w", err)
	}
	for _, l := range d.Lessons {
		for _, t := range []*TestSpec{l.PreTest, l.PostTest} {
			if t == nil {
				continue
			}
			for i, q := range t.Questions {
				if q.Answer.IsZero() {
					return fmt.Errorf("invalid curriculum: lesson %d question %d: missing answer", l.Order, i+1)
				}
				for _, idx := range q.Answer.Indices() {
					if idx < 0 || idx >= len(q.Options) {
						return fmt.Errorf("invalid curriculum: lesson %d question %d: answer %d out of range", l.Order, i+1, idx)
					}
				}
			}
		}
	}
	return nil
}

// Import validates the document and writes its lessons, tests, questions
// and games. Lesson order indexes must not clash with lessons already in
// the classroom.
func Import(ctx context.Context, repo store.CurriculumRepo, doc *Document) (*Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	classroom, _ := ids.Parse(doc.Classroom)
	res := &Result{ClassroomID: classroom}

	for _, ls := range doc.Lessons {
		content, err := contentString(ls.Content)
		if err != nil {
			return res, fmt.Errorf("lesson %q: %w", ls.Title, err)
		}
		l := &store.Lesson{
			ClassroomID: classroom,
			Title:       ls.Title,
			Chapter:     ls.Chapter,
			OrderIndex:  ls.Order,
			Content:     content,
			IsActive:    !ls.Inactive,
		}
		if err := repo.CreateLesson(ctx, l); err != nil {
			return res, fmt.Errorf("lesson %q: %w", ls.Title, err)
		}
		res.Lessons = append(res.Lessons, l.ID)

		for typ, ts := range map[store.TestType]*TestSpec{store.PreTest: ls.PreTest, store.PostTest: ls.PostTest} {
			if ts == nil {
				continue
			}
			t := buildTest(l, typ, ts)
			if err := repo.CreateTest(ctx, t); err != nil {
				return res, fmt.Errorf("lesson %q %s: %w", ls.Title, typ, err)
			}
			res.Tests = append(res.Tests, t.ID)
			res.Questions += len(t.Questions)
		}

		for _, gs := range ls.Games {
			g := &store.Game{
				LessonID:    l.ID,
				ClassroomID: classroom,
				Title:       gs.Title,
				Type:        gs.Type,
				Settings:    gs.Settings,
				IsActive:    true,
			}
			if err := repo.CreateGame(ctx, g); err != nil {
				return res, fmt.Errorf("lesson %q game %q: %w", ls.Title, gs.Title, err)
			}
			res.Games = append(res.Games, g.ID)
		}
	}

	slog.Info("curriculum imported", "classroom", classroom,
		"lessons", len(res.Lessons), "tests", len(res.Tests), "games", len(res.Games))
	return res, nil
}

func buildTest(l *store.Lesson, typ store.TestType, ts *TestSpec) *store.Test {
	title := ts.Title
	if title == "" {
		title = l.Title
	}
	t := &store.Test{
		LessonID:     l.ID,
		ClassroomID:  l.ClassroomID,
		Title:        title,
		Type:         typ,
		PassingScore: ts.PassingScore,
		IsActive:     true,
	}
	for i, qs := range ts.Questions {
		t.Questions = append(t.Questions, store.Question{
			Text:          qs.Text,
			Options:       qs.Options,
			CorrectAnswer: qs.Answer.Answer,
			OrderIndex:    i,
			Explanation:   qs.Explanation,
			ImageURL:      qs.ImageURL,
		})
	}
	return t
}

// contentString stores text as is and structured content as JSON.
func contentString(v any) (string, error) {
	switch c := v.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return "", fmt.Errorf("encode content: %w", err)
		}
		return string(b), nil
	}
}
