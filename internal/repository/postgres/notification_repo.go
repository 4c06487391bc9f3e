package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/courierhq/courier/internal/domain"
)

type NotificationRepo struct {
	db Querier
}

func NewNotificationRepo(db Querier) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, message_id, type, content, created_at, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		n.ID, n.UserID, n.MessageID, n.Type, n.Content, n.CreatedAt, n.Read,
	)
	return err
}

func (r *NotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := `
		SELECT id, user_id, message_id, type, content, created_at, is_read
		FROM notifications
		WHERE id = $1`
	var n domain.Notification
	err := r.db.QueryRow(ctx, query, id).Scan(
		&n.ID, &n.UserID, &n.MessageID, &n.Type, &n.Content, &n.CreatedAt, &n.Read,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &n, err
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.Notification, error) {
	query := `
		SELECT id, user_id, message_id, type, content, created_at, is_read
		FROM notifications
		WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.MessageID, &n.Type, &n.Content, &n.CreatedAt, &n.Read); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND is_read = FALSE`, id)
	return tag.RowsAffected(), err
}

// MarkAllRead runs as a single statement, so concurrent callers split the
// previously-unread rows between them without double counting.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	return tag.RowsAffected(), err
}

func (r *NotificationRepo) DeleteAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM notifications WHERE user_id = $1 AND is_read = TRUE`, userID)
	return tag.RowsAffected(), err
}

func (r *NotificationRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM notifications WHERE user_id = $1`, userID)
	return tag.RowsAffected(), err
}
