package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// eventRepo implements EventRepo. Events are append-only and ordered by
// their auto-increment ID.
type eventRepo struct {
	conn
}

var visionEventCols = []string{
	"id", "provider", "model", "purpose", "input_tokens", "output_tokens", "latency_ms",
	"success", "error_message", "request_body", "response_body", "timestamp",
}

func (r *eventRepo) AppendVisionRequest(ctx context.Context, data VisionRequestEventData) error {
	_, err := r.exec(ctx, r.sql().Insert(tableVisionEvents).
		Columns(visionEventCols[1:]...).
		Values(data.Provider, data.Model, data.Purpose, data.InputTokens, data.OutputTokens, data.LatencyMs,
			data.Success, data.ErrorMessage, data.RequestBody, data.ResponseBody, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("save vision request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryVisionEvents(ctx context.Context, opts QueryOpts) ([]VisionRequestEvent, error) {
	sel := r.selectFrom(tableVisionEvents, visionEventCols...).OrderBy(entsql.Desc("id"))
	if opts.Purpose != "" {
		sel.Where(entsql.EQ("purpose", opts.Purpose))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
		if opts.Offset > 0 {
			sel.Offset(opts.Offset)
		}
	}
	events, err := r.events(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("query vision events: %w", err)
	}
	return events, nil
}

func (r *eventRepo) GetVisionEvent(ctx context.Context, id int) (*VisionRequestEvent, error) {
	events, err := r.events(ctx, r.selectFrom(tableVisionEvents, visionEventCols...).Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, fmt.Errorf("get vision event: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (r *eventRepo) UsageByPurpose(ctx context.Context) ([]UsageStat, error) {
	stats, err := r.usage(ctx, "purpose")
	if err != nil {
		return nil, fmt.Errorf("usage by purpose: %w", err)
	}
	for i := range stats {
		stats[i].Purpose, stats[i].Model = stats[i].Model, ""
	}
	return stats, nil
}

func (r *eventRepo) UsageByModel(ctx context.Context) ([]UsageStat, error) {
	stats, err := r.usage(ctx, "model")
	if err != nil {
		return nil, fmt.Errorf("usage by model: %w", err)
	}
	return stats, nil
}

// usage groups events by column; the group key is returned in Model.
func (r *eventRepo) usage(ctx context.Context, column string) ([]UsageStat, error) {
	sel := r.selectFrom(tableVisionEvents,
		column,
		entsql.Count("*"),
		entsql.Sum("input_tokens"),
		entsql.Sum("output_tokens"),
		entsql.Avg("latency_ms"),
	).GroupBy(column).OrderBy(column)

	var out []UsageStat
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		var (
			st            UsageStat
			inTok, outTok sql.NullInt64
			avg           sql.NullFloat64
		)
		if err := rows.Scan(&st.Model, &st.Calls, &inTok, &outTok, &avg); err != nil {
			return err
		}
		st.InputTokens = int(inTok.Int64)
		st.OutputTokens = int(outTok.Int64)
		st.AvgLatencyMs = int64(avg.Float64)
		out = append(out, st)
		return nil
	})
	return out, err
}

func (r *eventRepo) events(ctx context.Context, sel *entsql.Selector) ([]VisionRequestEvent, error) {
	var out []VisionRequestEvent
	err := r.query(ctx, sel, func(rows *sql.Rows) error {
		var e VisionRequestEvent
		if err := rows.Scan(&e.ID, &e.Provider, &e.Model, &e.Purpose, &e.InputTokens, &e.OutputTokens, &e.LatencyMs,
			&e.Success, &e.ErrorMessage, &e.RequestBody, &e.ResponseBody, &e.Timestamp); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}
