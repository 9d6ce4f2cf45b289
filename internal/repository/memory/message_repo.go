// Package memory holds process-local repositories used for development and
// tests. Data does not survive a restart.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/noobsquad/chatcore/internal/domain"
	"github.com/noobsquad/chatcore/internal/repository"
)

type MessageRepo struct {
	mu   sync.RWMutex
	seq  int64
	msgs []domain.Message
	now  func() time.Time
}

// NewMessageRepo returns an empty store. A nil clock means time.Now.
func NewMessageRepo(now func() time.Time) *MessageRepo {
	if now == nil {
		now = time.Now
	}
	return &MessageRepo{now: now}
}

func (r *MessageRepo) Append(ctx context.Context, senderID, receiverID int64, body domain.Body) (*domain.Message, error) {
	if err := repository.ValidateParticipants(senderID, receiverID); err != nil {
		return nil, err
	}
	if err := body.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	msg := domain.Message{
		ID:         r.seq,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  r.now().UTC(),
	}
	r.msgs = append(r.msgs, msg)
	return &msg, nil
}

func (r *MessageRepo) History(ctx context.Context, a, b int64) ([]domain.Message, error) {
	out := r.filter(func(m *domain.Message) bool { return m.Between(a, b) })
	slices.SortFunc(out, func(x, y domain.Message) int {
		if c := x.CreatedAt.Compare(y.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	return out, nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, from, to int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for i := range r.msgs {
		m := &r.msgs[i]
		if m.SenderID == from && m.ReceiverID == to && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) UnreadCount(ctx context.Context, from, to int64) (int, error) {
	unread := r.filter(func(m *domain.Message) bool {
		return m.SenderID == from && m.ReceiverID == to && !m.IsRead
	})
	return len(unread), nil
}

func (r *MessageRepo) ListInvolving(ctx context.Context, userID int64) ([]domain.Message, error) {
	out := r.filter(func(m *domain.Message) bool {
		return m.SenderID == userID || m.ReceiverID == userID
	})
	slices.SortFunc(out, func(x, y domain.Message) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(y.ID, x.ID)
	})
	return out, nil
}

// filter copies the matching messages so callers never alias the store.
func (r *MessageRepo) filter(keep func(*domain.Message) bool) []domain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Message
	for i := range r.msgs {
		if keep(&r.msgs[i]) {
			out = append(out, r.msgs[i])
		}
	}
	return out
}

var _ repository.MessageRepository = (*MessageRepo)(nil)
