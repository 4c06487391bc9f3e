package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/courierhq/courier/internal/domain"
	"github.com/courierhq/courier/pkg/pagination"
)

type ConversationRepo struct {
	db Querier
}

func NewConversationRepo(db Querier) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	query := `INSERT INTO conversations (id, created_at) VALUES ($1, $2)`
	if _, err := r.db.Exec(ctx, query, conv.ID, conv.CreatedAt); err != nil {
		return err
	}

	for _, userID := range conv.ParticipantIDs {
		_, err := r.db.Exec(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)`,
			conv.ID, userID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.QueryRow(ctx,
		`SELECT id, created_at FROM conversations WHERE id = $1`, id,
	).Scan(&conv.ID, &conv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM conversation_participants WHERE conversation_id = $1 ORDER BY user_id`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		conv.ParticipantIDs = append(conv.ParticipantIDs, userID)
	}
	return &conv, rows.Err()
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, after *pagination.Cursor, limit int) ([]domain.Conversation, error) {
	var (
		query string
		args  []any
	)

	if after != nil {
		query = `
			SELECT c.id, c.created_at
			FROM conversations c
			JOIN conversation_participants p ON p.conversation_id = c.id
			WHERE p.user_id = $1 AND (c.created_at, c.id) < ($2, $3)
			ORDER BY c.created_at DESC, c.id DESC
			LIMIT $4`
		args = []any{userID, after.Timestamp, after.ID, limit}
	} else {
		query = `
			SELECT c.id, c.created_at
			FROM conversations c
			JOIN conversation_participants p ON p.conversation_id = c.id
			WHERE p.user_id = $1
			ORDER BY c.created_at DESC, c.id DESC
			LIMIT $2`
		args = []any{userID, limit}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	var ids []uuid.UUID
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(&conv.ID, &conv.CreatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
		ids = append(ids, conv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return convs, nil
	}

	prows, err := r.db.Query(ctx,
		`SELECT conversation_id, user_id FROM conversation_participants WHERE conversation_id = ANY($1) ORDER BY user_id`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer prows.Close()

	participants := make(map[uuid.UUID][]uuid.UUID, len(convs))
	for prows.Next() {
		var convID, uid uuid.UUID
		if err := prows.Scan(&convID, &uid); err != nil {
			return nil, err
		}
		participants[convID] = append(participants[convID], uid)
	}
	if err := prows.Err(); err != nil {
		return nil, err
	}

	for i := range convs {
		convs[i].ParticipantIDs = participants[convs[i].ID]
	}
	return convs, nil
}

func (r *ConversationRepo) DeleteParticipant(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM conversation_participants WHERE user_id = $1`, userID)
	return tag.RowsAffected(), err
}
