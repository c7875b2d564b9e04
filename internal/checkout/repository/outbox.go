package repository

import (
	"context"
	"fmt"
)

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var (
			e                  OutboxEvent
			payload, createdAt string
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		e.Payload = []byte(payload)
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("created_at of event %d: %w", e.ID, err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	query := `UPDATE outbox_events SET processed_at = $1 WHERE id = $2 AND processed_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, formatTime(r.now()), id); err != nil {
		return fmt.Errorf("failed to mark outbox event %d processed: %w", id, err)
	}
	return nil
}
