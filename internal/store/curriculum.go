package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/khianthai/khian/internal/ids"
)

type curriculumRepo struct {
	conn
}

var (
	lessonCols   = []string{"id", "classroom_id", "title", "chapter", "order_index", "content", "is_active", "created_at"}
	testCols     = []string{"id", "lesson_id", "classroom_id", "title", "type", "passing_score", "is_active", "created_at"}
	questionCols = []string{"id", "test_id", "text", "options", "correct_answer", "order_index", "explanation", "image_url"}
	gameCols     = []string{"id", "lesson_id", "classroom_id", "title", "type", "settings", "is_active", "created_at"}
)

func (r *curriculumRepo) CreateLesson(ctx context.Context, l *Lesson) error {
	if l.ID.IsZero() {
		l.ID = ids.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := r.exec(ctx, r.sql().Insert(tableLessons).
		Columns(lessonCols...).
		Values(string(l.ID), string(l.ClassroomID), l.Title, l.Chapter, l.OrderIndex, l.Content, l.IsActive, l.CreatedAt))
	if err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

func (r *curriculumRepo) GetLesson(ctx context.Context, id ids.ID) (*Lesson, error) {
	lessons, err := r.lessons(ctx, r.selectFrom(tableLessons, lessonCols...).Where(entsql.EQ("id", string(id))))
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if len(lessons) == 0 {
		return nil, notFound("lesson", id)
	}
	return &lessons[0], nil
}

func (r *curriculumRepo) ActiveLessons(ctx context.Context, classroomID ids.ID) ([]Lesson, error) {
	sel := r.selectFrom(tableLessons, lessonCols...).
		Where(entsql.And(entsql.EQ("classroom_id", string(classroomID)), entsql.EQ("is_active", true))).
		OrderBy("order_index")
	lessons, err := r.lessons(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list active lessons: %w", err)
	}
	return lessons, nil
}

func (r *curriculumRepo) AllLessons(ctx context.Context) ([]Lesson, error) {
	lessons, err := r.lessons(ctx, r.selectFrom(tableLessons, lessonCols...).OrderBy("classroom_id", "order_index"))
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

func (r *curriculumRepo) UpdateLessonContent(ctx context.Context, id ids.ID, content string) error {
	_, err := r.exec(ctx, r.sql().Update(tableLessons).Set("content", content).Where(entsql.EQ("id", string(id))))
	if err != nil {
		return fmt.Errorf("update lesson content: %w", err)
	}
	return nil
}

func (r *curriculumRepo) lessons(ctx context.Context, sel *entsql.Selector) ([]Lesson, error) {
	var out []Lesson
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		var l Lesson
		if err := rows.Scan(&l.ID, &l.ClassroomID, &l.Title, &l.Chapter, &l.OrderIndex, &l.Content, &l.IsActive, &l.CreatedAt); err != nil {
			return err
		}
		out = append(out, l)
		return nil
	})
	return out, err
}

func (r *curriculumRepo) CreateTest(ctx context.Context, t *Test) error {
	if t.ID.IsZero() {
		t.ID = ids.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.exec(ctx, r.sql().Insert(tableTests).
		Columns(testCols...).
		Values(string(t.ID), string(t.LessonID), string(t.ClassroomID), t.Title, string(t.Type), t.PassingScore, t.IsActive, t.CreatedAt))
	if err != nil {
		return fmt.Errorf("create test: %w", err)
	}
	for i := range t.Questions {
		q := &t.Questions[i]
		q.TestID = t.ID
		if err := r.CreateQuestion(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (r *curriculumRepo) GetTest(ctx context.Context, id ids.ID) (*Test, error) {
	tests, err := r.tests(ctx, r.selectFrom(tableTests, testCols...).Where(entsql.EQ("id", string(id))))
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}
	if len(tests) == 0 {
		return nil, notFound("test", id)
	}
	t := &tests[0]

	questions, err := r.questions(ctx, r.selectFrom(tableQuestions, questionCols...).
		Where(entsql.EQ("test_id", string(id))).
		OrderBy("order_index"))
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	t.Questions = questions
	return t, nil
}

func (r *curriculumRepo) ActiveTests(ctx context.Context, lessonIDs []ids.ID) ([]Test, error) {
	if len(lessonIDs) == 0 {
		return nil, nil
	}
	sel := r.selectFrom(tableTests, testCols...).
		Where(entsql.And(entsql.In("lesson_id", anyIDs(lessonIDs)...), entsql.EQ("is_active", true))).
		OrderBy("created_at")
	tests, err := r.tests(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list active tests: %w", err)
	}
	return tests, nil
}

func (r *curriculumRepo) tests(ctx context.Context, sel *entsql.Selector) ([]Test, error) {
	var out []Test
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		var t Test
		var typ string
		if err := rows.Scan(&t.ID, &t.LessonID, &t.ClassroomID, &t.Title, &typ, &t.PassingScore, &t.IsActive, &t.CreatedAt); err != nil {
			return err
		}
		t.Type = TestType(typ)
		out = append(out, t)
		return nil
	})
	return out, err
}

func (r *curriculumRepo) CreateQuestion(ctx context.Context, q *Question) error {
	if q.ID.IsZero() {
		q.ID = ids.New()
	}
	options, err := encodeJSON(q.Options)
	if err != nil {
		return err
	}
	answer, err := encodeJSON(q.CorrectAnswer)
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, r.sql().Insert(tableQuestions).
		Columns(questionCols...).
		Values(string(q.ID), string(q.TestID), q.Text, options, answer, q.OrderIndex, q.Explanation, q.ImageURL))
	if err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

func (r *curriculumRepo) AllQuestions(ctx context.Context) ([]Question, error) {
	questions, err := r.questions(ctx, r.selectFrom(tableQuestions, questionCols...).OrderBy("test_id", "order_index"))
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

func (r *curriculumRepo) UpdateQuestion(ctx context.Context, q *Question) error {
	_, err := r.exec(ctx, r.sql().Update(tableQuestions).
		Set("text", q.Text).
		Set("explanation", q.Explanation).
		Set("image_url", q.ImageURL).
		Where(entsql.EQ("id", string(q.ID))))
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return nil
}

func (r *curriculumRepo) questions(ctx context.Context, sel *entsql.Selector) ([]Question, error) {
	var out []Question
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		var (
			q               Question
			options, answer []byte
		)
		if err := rows.Scan(&q.ID, &q.TestID, &q.Text, &options, &answer, &q.OrderIndex, &q.Explanation, &q.ImageURL); err != nil {
			return err
		}
		if err := decodeJSON(options, &q.Options); err != nil {
			return fmt.Errorf("question %s options: %w", q.ID, err)
		}
		if err := decodeJSON(answer, &q.CorrectAnswer); err != nil {
			return fmt.Errorf("question %s answer: %w", q.ID, err)
		}
		out = append(out, q)
		return nil
	})
	return out, err
}

func (r *curriculumRepo) CreateGame(ctx context.Context, g *Game) error {
	if g.ID.IsZero() {
		g.ID = ids.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	settings, err := encodeJSON(g.Settings)
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, r.sql().Insert(tableGames).
		Columns(gameCols...).
		Values(string(g.ID), string(g.LessonID), string(g.ClassroomID), g.Title, g.Type, settings, g.IsActive, g.CreatedAt))
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

func (r *curriculumRepo) GetGame(ctx context.Context, id ids.ID) (*Game, error) {
	games, err := r.games(ctx, r.selectFrom(tableGames, gameCols...).Where(entsql.EQ("id", string(id))))
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	if len(games) == 0 {
		return nil, notFound("game", id)
	}
	return &games[0], nil
}

func (r *curriculumRepo) ActiveGames(ctx context.Context, lessonIDs []ids.ID) ([]Game, error) {
	if len(lessonIDs) == 0 {
		return nil, nil
	}
	sel := r.selectFrom(tableGames, gameCols...).
		Where(entsql.And(entsql.In("lesson_id", anyIDs(lessonIDs)...), entsql.EQ("is_active", true))).
		OrderBy("created_at")
	games, err := r.games(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list active games: %w", err)
	}
	return games, nil
}

func (r *curriculumRepo) AllGames(ctx context.Context) ([]Game, error) {
	games, err := r.games(ctx, r.selectFrom(tableGames, gameCols...).OrderBy("created_at"))
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

func (r *curriculumRepo) UpdateGameSettings(ctx context.Context, id ids.ID, settings map[string]any) error {
	encoded, err := encodeJSON(settings)
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, r.sql().Update(tableGames).Set("settings", encoded).Where(entsql.EQ("id", string(id))))
	if err != nil {
		return fmt.Errorf("update game settings: %w", err)
	}
	return nil
}

func (r *curriculumRepo) games(ctx context.Context, sel *entsql.Selector) ([]Game, error) {
	var out []Game
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		var (
			g        Game
			settings []byte
		)
		if err := rows.Scan(&g.ID, &g.LessonID, &g.ClassroomID, &g.Title, &g.Type, &settings, &g.IsActive, &g.CreatedAt); err != nil {
			return err
		}
		if err := decodeJSON(settings, &g.Settings); err != nil {
			return fmt.Errorf("game %s settings: %w", g.ID, err)
		}
		out = append(out, g)
		return nil
	})
	return out, err
}
