package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/khianthai/khian/internal/ids"
)

// conn pairs a database handle with the dialect used to render queries.
// Queries are built with ent's dialect-aware builder so placeholders and
// upsert clauses match the selected driver.
type conn struct {
	db      *sql.DB
	dialect string
}

// querier is implemented by every ent SQL builder.
type querier interface {
	Query() (string, []any)
}

func (c conn) sql() *entsql.DialectBuilder {
	return entsql.Dialect(c.dialect)
}

func (c conn) selectFrom(table string, columns ...string) *entsql.Selector {
	b := c.sql()
	return b.Select(columns...).From(b.Table(table))
}

func (c conn) exec(ctx context.Context, q querier) (sql.Result, error) {
	query, args := q.Query()
	return c.db.ExecContext(ctx, query, args...)
}

// query runs q and calls scan once per row. scan must not issue queries
// of its own: SQLite stores run on a single connection.
func (c conn) query(ctx context.Context, q querier, scan func(*sql.Rows) error) error {
	query, args := q.Query()
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func anyIDs(list []ids.ID) []any {
	out := make([]any, len(list))
	for i, id := range list {
		out[i] = string(id)
	}
	return out
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(b), nil
}

func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}
