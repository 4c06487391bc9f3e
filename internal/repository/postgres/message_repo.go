package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/courierhq/courier/internal/domain"
	"github.com/courierhq/courier/internal/repository"
)

const messageColumns = `m.id, m.conversation_id, m.sender_id, m.receiver_id, m.body, m.type,
	m.parent_id, m.sent_at, m.is_read, m.edited, u.username, u.display_name`

type MessageRepo struct {
	db Querier
}

func NewMessageRepo(db Querier) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, receiver_id, body, type, parent_id, sent_at, is_read, edited)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.ReceiverID,
		msg.Body, msg.Type, msg.ParentID, msg.SentAt, msg.Read, msg.Edited,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1`
	var msg domain.Message
	err := r.db.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
		&msg.Body, &msg.Type, &msg.ParentID, &msg.SentAt, &msg.Read, &msg.Edited,
		&msg.SenderUsername, &msg.SenderDisplayName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &msg, err
}

// GetForUpdate locks the message row for the rest of the enclosing
// transaction, so a concurrent editor cannot read the same pre-edit body.
func (r *MessageRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, receiver_id, body, type, parent_id, sent_at, is_read, edited
		FROM messages
		WHERE id = $1
		FOR UPDATE`
	var msg domain.Message
	err := r.db.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
		&msg.Body, &msg.Type, &msg.ParentID, &msg.SentAt, &msg.Read, &msg.Edited,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &msg, err
}

func (r *MessageRepo) UpdateBody(ctx context.Context, id uuid.UUID, body string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE messages SET body = $1, edited = TRUE WHERE id = $2`, body, id)
	return err
}

// MarkRead flips the read flag and reports how many rows actually changed.
// The is_read guard makes repeat calls count zero instead of re-counting.
func (r *MessageRepo) MarkRead(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE messages SET is_read = TRUE WHERE id = $1 AND is_read = FALSE`, id)
	return tag.RowsAffected(), err
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID, filter repository.MessageFilter, page repository.MessagePage) ([]domain.Message, error) {
	conds := []string{"m.conversation_id = $1"}
	args := []any{conversationID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(m.body ILIKE %s OR u.username ILIKE %s OR u.email ILIKE %s)", p, p, p))
	}
	if filter.SenderID != nil {
		conds = append(conds, "m.sender_id = "+arg(*filter.SenderID))
	}
	if filter.SentAfter != nil {
		conds = append(conds, "m.sent_at >= "+arg(*filter.SentAfter))
	}
	if filter.SentBefore != nil {
		conds = append(conds, "m.sent_at <= "+arg(*filter.SentBefore))
	}
	if filter.Unread != nil {
		conds = append(conds, "m.is_read = "+arg(!*filter.Unread))
	}

	cmp, order := "<", "DESC"
	if page.Ascending {
		cmp, order = ">", "ASC"
	}
	if page.After != nil {
		conds = append(conds, fmt.Sprintf("(m.sent_at, m.id) %s (%s, %s)",
			cmp, arg(page.After.Timestamp), arg(page.After.ID)))
	}

	query := fmt.Sprintf(`
		SELECT `+messageColumns+`
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE %s
		ORDER BY m.sent_at %s, m.id %s
		LIMIT %s`,
		strings.Join(conds, " AND "), order, order, arg(page.Limit))

	return r.scanMessages(ctx, query, args...)
}

func (r *MessageRepo) ListUnreadForUser(ctx context.Context, userID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.receiver_id = $1 AND m.is_read = FALSE
		ORDER BY m.sent_at DESC, m.id DESC`
	return r.scanMessages(ctx, query, userID)
}

func (r *MessageRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM messages WHERE sender_id = $1 OR receiver_id = $1`, userID)
	return tag.RowsAffected(), err
}

func (r *MessageRepo) scanMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
			&msg.Body, &msg.Type, &msg.ParentID, &msg.SentAt, &msg.Read, &msg.Edited,
			&msg.SenderUsername, &msg.SenderDisplayName,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
