package repository

import (
	"context"

	"github.com/noobsquad/chatcore/internal/domain"
)

// UserRepository reads profile snapshots from the user directory.
// GetByID returns nil, nil when the user does not exist.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Profile, error)
}

// MessageRepository is the durable message log.
type MessageRepository interface {
	Append(ctx context.Context, senderID, receiverID int64, body domain.Body) (*domain.Message, error)
	// History returns the conversation of a and b ordered by created_at, then id.
	History(ctx context.Context, a, b int64) ([]domain.Message, error)
	// MarkRead flags every unread message from -> to as read and returns how
	// many rows changed.
	MarkRead(ctx context.Context, from, to int64) (int64, error)
	UnreadCount(ctx context.Context, from, to int64) (int, error)
	// ListInvolving returns every message sent or received by userID, newest first.
	ListInvolving(ctx context.Context, userID int64) ([]domain.Message, error)
}

// ValidateParticipants rejects zero and identical participant ids.
func ValidateParticipants(senderID, receiverID int64) error {
	if senderID == 0 {
		return domain.NewValidationError("sender_id", "required")
	}
	if receiverID == 0 {
		return domain.NewValidationError("receiver_id", "required")
	}
	if senderID == receiverID {
		return domain.NewValidationError("receiver_id", "cannot message yourself")
	}
	return nil
}
