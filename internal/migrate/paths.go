// Package migrate rewrites stored curriculum content in place. Migrations
// run from the CLI at deploy time; read paths never patch content.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/khianthai/khian/internal/store"
)

// PathMigration replaces legacy asset path prefixes with To.
type PathMigration struct {
	From []string
	To   string
}

// DefaultPathMigration moves vocabulary images from the old chapter folders
// to the merged one.
func DefaultPathMigration() PathMigration {
	return PathMigration{
		From: []string{"/คำศัพท์บท1-4/", "/คำศัพท์บท1-3/"},
		To:   "/คำศัพท์บท1-8/",
	}
}

// PathReport counts rewritten rows per entity.
type PathReport struct {
	Lessons   int
	Questions int
	Games     int
}

// Total returns the number of rewritten rows.
func (r PathReport) Total() int { return r.Lessons + r.Questions + r.Games }

// Rewrite returns s with every legacy prefix replaced and whether anything
// changed.
func (m PathMigration) Rewrite(s string) (string, bool) {
	out := s
	for _, from := range m.From {
		if from == "" || from == m.To {
			continue
		}
		out = strings.ReplaceAll(out, from, m.To)
	}
	return out, out != s
}

// rewriteValue rewrites every string reachable from v.
func (m PathMigration) rewriteValue(v any) (any, bool) {
	switch x := v.(type) {
	case string:
		return m.Rewrite(x)
	case map[string]any:
		changed := false
		for k, e := range x {
			if ne, ok := m.rewriteValue(e); ok {
				x[k] = ne
				changed = true
			}
		}
		return x, changed
	case []any:
		changed := false
		for i, e := range x {
			if ne, ok := m.rewriteValue(e); ok {
				x[i] = ne
				changed = true
			}
		}
		return x, changed
	default:
		return v, false
	}
}

// Run applies the migration to every lesson, question and game. Running it
// a second time changes nothing.
func (m PathMigration) Run(ctx context.Context, repo store.CurriculumRepo) (*PathReport, error) {
	if m.To == "" {
		return nil, fmt.Errorf("path migration: empty target")
	}
	report := &PathReport{}

	lessons, err := repo.AllLessons(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range lessons {
		content, ok := m.Rewrite(l.Content)
		if !ok {
			continue
		}
		if err := repo.UpdateLessonContent(ctx, l.ID, content); err != nil {
			return report, err
		}
		slog.Info("lesson paths rewritten", "lesson", l.ID, "order", l.OrderIndex)
		report.Lessons++
	}

	questions, err := repo.AllQuestions(ctx)
	if err != nil {
		return report, err
	}
	for i := range questions {
		q := &questions[i]
		var changed, ok bool
		if q.Text, ok = m.Rewrite(q.Text); ok {
			changed = true
		}
		if q.Explanation, ok = m.Rewrite(q.Explanation); ok {
			changed = true
		}
		if q.ImageURL, ok = m.Rewrite(q.ImageURL); ok {
			changed = true
		}
		if !changed {
			continue
		}
		if err := repo.UpdateQuestion(ctx, q); err != nil {
			return report, err
		}
		report.Questions++
	}

	games, err := repo.AllGames(ctx)
	if err != nil {
		return report, err
	}
	for _, g := range games {
		if g.Settings == nil {
			continue
		}
		if _, ok := m.rewriteValue(g.Settings); !ok {
			continue
		}
		if err := repo.UpdateGameSettings(ctx, g.ID, g.Settings); err != nil {
			return report, err
		}
		report.Games++
	}

	slog.Info("path migration finished",
		"lessons", report.Lessons, "questions", report.Questions, "games", report.Games)
	return report, nil
}
