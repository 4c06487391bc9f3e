// Package repotest provides in-memory repository fakes for tests. The fakes
// mirror the store's observable behavior: WithinTx rolls everything back on
// error, and deleting a message takes its history rows and notifications
// with it the way the schema's foreign keys do.
package repotest

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/courierhq/courier/internal/domain"
	"github.com/courierhq/courier/internal/repository"
	"github.com/courierhq/courier/pkg/pagination"
)

type Store struct {
	mu sync.Mutex

	Users         map[uuid.UUID]domain.User
	Conversations map[uuid.UUID]domain.Conversation
	Messages      map[uuid.UUID]domain.Message
	History       map[uuid.UUID]domain.MessageHistory
	Notifications map[uuid.UUID]domain.Notification

	// NotificationCreateErr, when set, makes every notification insert fail.
	NotificationCreateErr error
}

func New() *Store {
	return &Store{
		Users:         make(map[uuid.UUID]domain.User),
		Conversations: make(map[uuid.UUID]domain.Conversation),
		Messages:      make(map[uuid.UUID]domain.Message),
		History:       make(map[uuid.UUID]domain.MessageHistory),
		Notifications: make(map[uuid.UUID]domain.Notification),
	}
}

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Users:         &userRepo{s},
		Conversations: &conversationRepo{s},
		Messages:      &messageRepo{s},
		History:       &historyRepo{s},
		Notifications: &notificationRepo{s},
	}
}

// WithinTx snapshots all tables and restores them if fn fails, giving tests
// the same commit-or-nothing behavior as the real store.
func (s *Store) WithinTx(ctx context.Context, fn func(r repository.Repositories) error) error {
	s.mu.Lock()
	users := cloneMap(s.Users)
	convs := cloneMap(s.Conversations)
	msgs := cloneMap(s.Messages)
	hist := cloneMap(s.History)
	notifs := cloneMap(s.Notifications)
	s.mu.Unlock()

	if err := fn(s.Repositories()); err != nil {
		s.mu.Lock()
		s.Users, s.Conversations, s.Messages, s.History, s.Notifications =
			users, convs, msgs, hist, notifs
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[V any](m map[uuid.UUID]V) map[uuid.UUID]V {
	out := make(map[uuid.UUID]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AddUser is a test convenience for seeding a user with just a username.
func (s *Store) AddUser(username string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.Users[id] = domain.User{
		ID:       id,
		Email:    username + "@example.com",
		Username: username,
	}
	return id
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.Users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.Users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.Users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.Users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.Users[id]; !ok {
		return 0, nil
	}
	delete(r.s.Users, id)
	return 1, nil
}

type conversationRepo struct{ s *Store }

func (r *conversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.Conversations[conv.ID] = *conv
	return nil
}

func (r *conversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.Conversations[id]; ok {
		c.ParticipantIDs = append([]uuid.UUID(nil), c.ParticipantIDs...)
		return &c, nil
	}
	return nil, nil
}

func (r *conversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, after *pagination.Cursor, limit int) ([]domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var convs []domain.Conversation
	for _, c := range r.s.Conversations {
		if !c.IsParticipant(userID) {
			continue
		}
		if after != nil && !keyLess(c.CreatedAt, c.ID, after.Timestamp, after.ID) {
			continue
		}
		convs = append(convs, c)
	}
	sort.Slice(convs, func(i, j int) bool {
		return keyLess(convs[j].CreatedAt, convs[j].ID, convs[i].CreatedAt, convs[i].ID)
	})
	if len(convs) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

func (r *conversationRepo) DeleteParticipant(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var count int64
	for id, c := range r.s.Conversations {
		var kept []uuid.UUID
		for _, pid := range c.ParticipantIDs {
			if pid == userID {
				count++
				continue
			}
			kept = append(kept, pid)
		}
		c.ParticipantIDs = kept
		r.s.Conversations[id] = c
	}
	return count, nil
}

type messageRepo struct{ s *Store }

func (r *messageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.Messages[msg.ID] = *msg
	return nil
}

func (r *messageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.Messages[id]; ok {
		r.join(&m)
		return &m, nil
	}
	return nil, nil
}

func (r *messageRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	return r.GetByID(ctx, id)
}

func (r *messageRepo) UpdateBody(ctx context.Context, id uuid.UUID, body string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.Messages[id]; ok {
		m.Body = body
		m.Edited = true
		r.s.Messages[id] = m
	}
	return nil
}

func (r *messageRepo) MarkRead(ctx context.Context, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.Messages[id]
	if !ok || m.Read {
		return 0, nil
	}
	m.Read = true
	r.s.Messages[id] = m
	return 1, nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID, filter repository.MessageFilter, page repository.MessagePage) ([]domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var msgs []domain.Message
	for _, m := range r.s.Messages {
		if m.ConversationID != conversationID {
			continue
		}
		if !r.matches(m, filter) {
			continue
		}
		if page.After != nil {
			if page.Ascending && !keyLess(page.After.Timestamp, page.After.ID, m.SentAt, m.ID) {
				continue
			}
			if !page.Ascending && !keyLess(m.SentAt, m.ID, page.After.Timestamp, page.After.ID) {
				continue
			}
		}
		r.join(&m)
		msgs = append(msgs, m)
	}

	sort.Slice(msgs, func(i, j int) bool {
		if page.Ascending {
			return keyLess(msgs[i].SentAt, msgs[i].ID, msgs[j].SentAt, msgs[j].ID)
		}
		return keyLess(msgs[j].SentAt, msgs[j].ID, msgs[i].SentAt, msgs[i].ID)
	})
	if len(msgs) > page.Limit {
		msgs = msgs[:page.Limit]
	}
	return msgs, nil
}

func (r *messageRepo) matches(m domain.Message, filter repository.MessageFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		sender := r.s.Users[m.SenderID]
		if !strings.Contains(strings.ToLower(m.Body), search) &&
			!strings.Contains(strings.ToLower(sender.Username), search) &&
			!strings.Contains(strings.ToLower(sender.Email), search) {
			return false
		}
	}
	if filter.SenderID != nil && m.SenderID != *filter.SenderID {
		return false
	}
	if filter.SentAfter != nil && m.SentAt.Before(*filter.SentAfter) {
		return false
	}
	if filter.SentBefore != nil && m.SentAt.After(*filter.SentBefore) {
		return false
	}
	if filter.Unread != nil && m.Read == *filter.Unread {
		return false
	}
	return true
}

func (r *messageRepo) ListUnreadForUser(ctx context.Context, userID uuid.UUID) ([]domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var msgs []domain.Message
	for _, m := range r.s.Messages {
		if m.ReceiverID == nil || *m.ReceiverID != userID || m.Read {
			continue
		}
		r.join(&m)
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool {
		return keyLess(msgs[j].SentAt, msgs[j].ID, msgs[i].SentAt, msgs[i].ID)
	})
	return msgs, nil
}

func (r *messageRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var count int64
	for id, m := range r.s.Messages {
		if m.SenderID != userID && (m.ReceiverID == nil || *m.ReceiverID != userID) {
			continue
		}
		delete(r.s.Messages, id)
		count++
		// Foreign keys cascade to history and notifications.
		for hid, h := range r.s.History {
			if h.MessageID == id {
				delete(r.s.History, hid)
			}
		}
		for nid, n := range r.s.Notifications {
			if n.MessageID != nil && *n.MessageID == id {
				delete(r.s.Notifications, nid)
			}
		}
	}
	return count, nil
}

func (r *messageRepo) join(m *domain.Message) {
	if u, ok := r.s.Users[m.SenderID]; ok {
		m.SenderUsername = u.Username
		m.SenderDisplayName = u.DisplayName
	}
}

type historyRepo struct{ s *Store }

func (r *historyRepo) Create(ctx context.Context, h *domain.MessageHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.History[h.ID] = *h
	return nil
}

func (r *historyRepo) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]domain.MessageHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var history []domain.MessageHistory
	for _, h := range r.s.History {
		if h.MessageID == messageID {
			history = append(history, h)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return keyLess(history[j].EditedAt, history[j].ID, history[i].EditedAt, history[i].ID)
	})
	return history, nil
}

func (r *historyRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var count int64
	for hid, h := range r.s.History {
		m, ok := r.s.Messages[h.MessageID]
		if !ok {
			continue
		}
		if m.SenderID == userID || (m.ReceiverID != nil && *m.ReceiverID == userID) {
			delete(r.s.History, hid)
			count++
		}
	}
	return count, nil
}

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.NotificationCreateErr != nil {
		return r.s.NotificationCreateErr
	}
	r.s.Notifications[n.ID] = *n
	return nil
}

func (r *notificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n, ok := r.s.Notifications[id]; ok {
		return &n, nil
	}
	return nil, nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var notifs []domain.Notification
	for _, n := range r.s.Notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		notifs = append(notifs, n)
	}
	sort.Slice(notifs, func(i, j int) bool {
		return keyLess(notifs[j].CreatedAt, notifs[j].ID, notifs[i].CreatedAt, notifs[i].ID)
	})
	return notifs, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.Notifications[id]
	if !ok || n.Read {
		return 0, nil
	}
	n.Read = true
	r.s.Notifications[id] = n
	return 1, nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var count int64
	for id, n := range r.s.Notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			r.s.Notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) DeleteAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var count int64
	for id, n := range r.s.Notifications {
		if n.UserID == userID && n.Read {
			delete(r.s.Notifications, id)
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var count int64
	for id, n := range r.s.Notifications {
		if n.UserID == userID {
			delete(r.s.Notifications, id)
			count++
		}
	}
	return count, nil
}

// keyLess orders by (timestamp, id), matching the store's keyset comparison.
func keyLess(t1 time.Time, id1 uuid.UUID, t2 time.Time, id2 uuid.UUID) bool {
	if !t1.Equal(t2) {
		return t1.Before(t2)
	}
	return bytes.Compare(id1[:], id2[:]) < 0
}
