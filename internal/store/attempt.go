package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/khianthai/khian/internal/ids"
)

type attemptRepo struct {
	conn
}

var (
	testAttemptCols    = []string{"id", "student_id", "test_id", "attempt_number", "score", "is_passed", "answers", "time_spent", "completed_at"}
	gameAttemptCols    = []string{"id", "student_id", "game_id", "attempt_number", "score", "level", "is_passed", "time_spent", "data", "completed_at"}
	writingAttemptCols = []string{"id", "student_id", "target_word", "detected_text", "is_correct", "confidence", "explanation", "method", "image_path", "image_url", "image_data", "created_at"}
)

func (r *attemptRepo) CreateTestAttempt(ctx context.Context, a *TestAttempt) error {
	if a.ID.IsZero() {
		a.ID = ids.New()
	}
	if a.CompletedAt.IsZero() {
		a.CompletedAt = time.Now().UTC()
	}
	answers, err := encodeJSON(a.Answers)
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, r.sql().Insert(tableTestAttempts).
		Columns(testAttemptCols...).
		Values(string(a.ID), string(a.StudentID), string(a.TestID), a.AttemptNumber, a.Score, a.IsPassed, answers, a.TimeSpent, a.CompletedAt))
	if err != nil {
		return fmt.Errorf("create test attempt: %w", err)
	}
	return nil
}

func (r *attemptRepo) MaxTestAttemptNumber(ctx context.Context, studentID, testID ids.ID) (int, error) {
	n, err := r.maxAttempt(ctx, tableTestAttempts, "test_id", studentID, testID)
	if err != nil {
		return 0, fmt.Errorf("max test attempt: %w", err)
	}
	return n, nil
}

func (r *attemptRepo) CountTestAttempts(ctx context.Context, studentID ids.ID, testIDs []ids.ID) (map[ids.ID]int, error) {
	counts := make(map[ids.ID]int)
	if len(testIDs) == 0 {
		return counts, nil
	}
	sel := r.selectFrom(tableTestAttempts, "test_id", entsql.Count("*")).
		Where(entsql.And(entsql.EQ("student_id", string(studentID)), entsql.In("test_id", anyIDs(testIDs)...))).
		GroupBy("test_id")
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		var (
			id ids.ID
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		counts[id] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count test attempts: %w", err)
	}
	return counts, nil
}

func (r *attemptRepo) ListTestAttempts(ctx context.Context, studentID, testID ids.ID) ([]TestAttempt, error) {
	sel := r.selectFrom(tableTestAttempts, testAttemptCols...).
		Where(entsql.And(entsql.EQ("student_id", string(studentID)), entsql.EQ("test_id", string(testID)))).
		OrderBy("attempt_number")
	var out []TestAttempt
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		var (
			a       TestAttempt
			answers []byte
		)
		if err := rows.Scan(&a.ID, &a.StudentID, &a.TestID, &a.AttemptNumber, &a.Score, &a.IsPassed, &answers, &a.TimeSpent, &a.CompletedAt); err != nil {
			return err
		}
		if err := decodeJSON(answers, &a.Answers); err != nil {
			return fmt.Errorf("attempt %s answers: %w", a.ID, err)
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list test attempts: %w", err)
	}
	return out, nil
}

func (r *attemptRepo) CreateGameAttempt(ctx context.Context, a *GameAttempt) error {
	if a.ID.IsZero() {
		a.ID = ids.New()
	}
	if a.CompletedAt.IsZero() {
		a.CompletedAt = time.Now().UTC()
	}
	data, err := encodeJSON(a.Data)
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, r.sql().Insert(tableGameAttempts).
		Columns(gameAttemptCols...).
		Values(string(a.ID), string(a.StudentID), string(a.GameID), a.AttemptNumber, a.Score, a.Level, a.IsPassed, a.TimeSpent, data, a.CompletedAt))
	if err != nil {
		return fmt.Errorf("create game attempt: %w", err)
	}
	return nil
}

func (r *attemptRepo) MaxGameAttemptNumber(ctx context.Context, studentID, gameID ids.ID) (int, error) {
	n, err := r.maxAttempt(ctx, tableGameAttempts, "game_id", studentID, gameID)
	if err != nil {
		return 0, fmt.Errorf("max game attempt: %w", err)
	}
	return n, nil
}

func (r *attemptRepo) PassedGames(ctx context.Context, studentID ids.ID, gameIDs []ids.ID) (map[ids.ID]bool, error) {
	passed := make(map[ids.ID]bool)
	if len(gameIDs) == 0 {
		return passed, nil
	}
	sel := r.selectFrom(tableGameAttempts, "game_id").
		Distinct().
		Where(entsql.And(
			entsql.EQ("student_id", string(studentID)),
			entsql.In("game_id", anyIDs(gameIDs)...),
			entsql.EQ("is_passed", true),
		))
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		var id ids.ID
		if err := rows.Scan(&id); err != nil {
			return err
		}
		passed[id] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("passed games: %w", err)
	}
	return passed, nil
}

func (r *attemptRepo) maxAttempt(ctx context.Context, table, refColumn string, studentID, refID ids.ID) (int, error) {
	sel := r.selectFrom(table, entsql.Max("attempt_number")).
		Where(entsql.And(entsql.EQ("student_id", string(studentID)), entsql.EQ(refColumn, string(refID))))
	var max sql.NullInt64
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		return rows.Scan(&max)
	})
	if err != nil {
		return 0, err
	}
	return int(max.Int64), nil
}

func (r *attemptRepo) CreateWritingAttempt(ctx context.Context, a *WritingAttempt) error {
	if a.ID.IsZero() {
		a.ID = ids.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	var imageData sql.NullString
	if a.ImageData != "" {
		imageData = sql.NullString{String: a.ImageData, Valid: true}
	}
	_, err := r.exec(ctx, r.sql().Insert(tableWritingAttempts).
		Columns(writingAttemptCols...).
		Values(string(a.ID), string(a.StudentID), a.TargetWord, a.DetectedText, a.IsCorrect, a.Confidence,
			a.Explanation, a.Method, a.ImagePath, a.ImageURL, imageData, a.CreatedAt))
	if err != nil {
		return fmt.Errorf("create writing attempt: %w", err)
	}
	return nil
}

func (r *attemptRepo) ListWritingAttempts(ctx context.Context, studentID ids.ID, opts QueryOpts) ([]WritingAttempt, error) {
	sel := r.selectFrom(tableWritingAttempts, writingAttemptCols...).
		Where(entsql.EQ("student_id", string(studentID))).
		OrderBy(entsql.Desc("created_at"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
		if opts.Offset > 0 {
			sel.Offset(opts.Offset)
		}
	}
	var out []WritingAttempt
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		var (
			a         WritingAttempt
			imageData sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.StudentID, &a.TargetWord, &a.DetectedText, &a.IsCorrect, &a.Confidence,
			&a.Explanation, &a.Method, &a.ImagePath, &a.ImageURL, &imageData, &a.CreatedAt); err != nil {
			return err
		}
		a.ImageData = imageData.String
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list writing attempts: %w", err)
	}
	return out, nil
}

func (r *attemptRepo) CountWritingAttempts(ctx context.Context, studentID ids.ID) (int, error) {
	sel := r.selectFrom(tableWritingAttempts, entsql.Count("*")).
		Where(entsql.EQ("student_id", string(studentID)))
	var n int
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		return rows.Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count writing attempts: %w", err)
	}
	return n, nil
}
