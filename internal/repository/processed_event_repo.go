package repository

import (
	"context"
)

// ProcessedEventRepository tracks Stripe event ids that have already been
// handled, so webhook deliveries are idempotent across retries.
type ProcessedEventRepository struct {
	db DBTX
}

func NewProcessedEventRepository(db DBTX) *ProcessedEventRepository {
	return &ProcessedEventRepository{db: db}
}

// MarkProcessed records the event id. It returns true if the event was seen
// before, in which case the caller must skip processing.
func (r *ProcessedEventRepository) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	query := `
		INSERT INTO processed_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 0, nil
}
