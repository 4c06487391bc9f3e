package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/courierhq/courier/internal/domain"
)

type MessageHistoryRepo struct {
	db Querier
}

func NewMessageHistoryRepo(db Querier) *MessageHistoryRepo {
	return &MessageHistoryRepo{db: db}
}

func (r *MessageHistoryRepo) Create(ctx context.Context, h *domain.MessageHistory) error {
	query := `
		INSERT INTO message_history (id, message_id, old_body, old_type, edited_by, edited_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query,
		h.ID, h.MessageID, h.OldBody, h.OldType, h.EditedBy, h.EditedAt,
	)
	return err
}

func (r *MessageHistoryRepo) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]domain.MessageHistory, error) {
	query := `
		SELECT id, message_id, old_body, old_type, edited_by, edited_at
		FROM message_history
		WHERE message_id = $1
		ORDER BY edited_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.MessageHistory
	for rows.Next() {
		var h domain.MessageHistory
		if err := rows.Scan(&h.ID, &h.MessageID, &h.OldBody, &h.OldType, &h.EditedBy, &h.EditedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *MessageHistoryRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM message_history
		WHERE message_id IN (
			SELECT id FROM messages WHERE sender_id = $1 OR receiver_id = $1
		)`
	tag, err := r.db.Exec(ctx, query, userID)
	return tag.RowsAffected(), err
}
