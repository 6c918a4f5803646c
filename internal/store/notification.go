package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/khianthai/khian/internal/ids"
)

type notificationRepo struct {
	conn
}

var notificationCols = []string{"id", "student_id", "title", "message", "type", "is_read", "created_at", "updated_at"}

func (r *notificationRepo) CreateNotification(ctx context.Context, n *Notification) error {
	if n.ID.IsZero() {
		n.ID = ids.New()
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	if n.Type == "" {
		n.Type = NotifyInfo
	}
	_, err := r.exec(ctx, r.sql().Insert(tableNotifications).
		Columns(notificationCols...).
		Values(string(n.ID), string(n.StudentID), n.Title, n.Message, string(n.Type), n.IsRead, n.CreatedAt, n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *notificationRepo) ListNotifications(ctx context.Context, studentID ids.ID, unreadOnly bool, limit int) ([]Notification, error) {
	sel := r.selectFrom(tableNotifications, notificationCols...).
		Where(entsql.EQ("student_id", string(studentID))).
		OrderBy(entsql.Desc("created_at"))
	if unreadOnly {
		sel.Where(entsql.EQ("is_read", false))
	}
	if limit > 0 {
		sel.Limit(limit)
	}
	var out []Notification
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		var (
			n   Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.StudentID, &n.Title, &n.Message, &typ, &n.IsRead, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return err
		}
		n.Type = NotificationType(typ)
		out = append(out, n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, studentID, notificationID ids.ID) error {
	owned := entsql.And(entsql.EQ("id", string(notificationID)), entsql.EQ("student_id", string(studentID)))

	// Existence is checked separately: MySQL reports zero affected rows
	// when the flag is already set.
	var n int
	err := r.query(ctx, r.selectFrom(tableNotifications, entsql.Count("*")).Where(owned), func(rows *sql.Rows) error {
		return rows.Scan(&n)
	})
	if err != nil {
		return fmt.Errorf("find notification: %w", err)
	}
	if n == 0 {
		return notFound("notification", notificationID)
	}

	_, err = r.exec(ctx, r.sql().Update(tableNotifications).
		Set("is_read", true).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.And(entsql.EQ("id", string(notificationID)), entsql.EQ("student_id", string(studentID)))))
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
