package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/khianthai/khian/internal/ids"
)

type progressRepo struct {
	conn
}

var progressCols = []string{"student_id", "lesson_id", "is_completed", "completed_at", "time_spent", "activity_results", "updated_at"}

func (r *progressRepo) GetProgress(ctx context.Context, studentID, lessonID ids.ID) (*LessonProgress, error) {
	sel := r.selectFrom(tableLessonProgress, progressCols...).
		Where(entsql.And(entsql.EQ("student_id", string(studentID)), entsql.EQ("lesson_id", string(lessonID))))
	rows, err := r.progress(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *progressRepo) ListProgress(ctx context.Context, studentID ids.ID) ([]LessonProgress, error) {
	rows, err := r.progress(ctx, r.selectFrom(tableLessonProgress, progressCols...).
		Where(entsql.EQ("student_id", string(studentID))))
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return rows, nil
}

func (r *progressRepo) UpsertProgress(ctx context.Context, p *LessonProgress) error {
	p.UpdatedAt = time.Now().UTC()
	results, err := encodeJSON(p.ActivityResults)
	if err != nil {
		return err
	}
	var completedAt sql.NullTime
	if p.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *p.CompletedAt, Valid: true}
	}
	_, err = r.exec(ctx, r.sql().Insert(tableLessonProgress).
		Columns(progressCols...).
		Values(string(p.StudentID), string(p.LessonID), p.IsCompleted, completedAt, p.TimeSpent, results, p.UpdatedAt).
		OnConflict(
			entsql.ConflictColumns("student_id", "lesson_id"),
			entsql.ResolveWithNewValues(),
		))
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (r *progressRepo) progress(ctx context.Context, sel *entsql.Selector) ([]LessonProgress, error) {
	var out []LessonProgress
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		var (
			p           LessonProgress
			completedAt sql.NullTime
			results     []byte
		)
		if err := rows.Scan(&p.StudentID, &p.LessonID, &p.IsCompleted, &completedAt, &p.TimeSpent, &results, &p.UpdatedAt); err != nil {
			return err
		}
		if completedAt.Valid {
			t := completedAt.Time
			p.CompletedAt = &t
		}
		if err := decodeJSON(results, &p.ActivityResults); err != nil {
			return fmt.Errorf("progress %s/%s activity results: %w", p.StudentID, p.LessonID, err)
		}
		out = append(out, p)
		return nil
	})
	return out, err
}
