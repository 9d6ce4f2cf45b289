package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/noobsquad/chatcore/internal/domain"
	"github.com/noobsquad/chatcore/internal/metrics"
	"github.com/noobsquad/chatcore/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

type ChatService struct {
	msgRepo  repository.MessageRepository
	userRepo repository.UserRepository
	logger   *slog.Logger
}

func NewChatService(msgRepo repository.MessageRepository, userRepo repository.UserRepository, logger *slog.Logger) *ChatService {
	return &ChatService{
		msgRepo:  msgRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

// SendInput is one outgoing message as received from a client.
type SendInput struct {
	ReceiverID  int64
	Content     *string
	FileURL     *string
	MessageType string
}

// Send validates in and appends it to the log. Rejections are
// *domain.ValidationError; any other error comes from the user directory or
// the store.
func (s *ChatService) Send(ctx context.Context, senderID int64, in SendInput) (*domain.Message, error) {
	if in.ReceiverID == 0 {
		return nil, domain.NewValidationError("receiver_id", "required")
	}
	if in.ReceiverID == senderID {
		return nil, domain.NewValidationError("receiver_id", "cannot message yourself")
	}

	kind, err := domain.ParseKind(in.MessageType)
	if err != nil {
		return nil, err
	}
	body, err := domain.NewBody(kind, in.Content, in.FileURL)
	if err != nil {
		return nil, err
	}

	receiver, err := s.userRepo.GetByID(ctx, in.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("lookup receiver %d: %w", in.ReceiverID, err)
	}
	if receiver == nil {
		return nil, domain.NewValidationError("receiver_id", "unknown user")
	}

	msg, err := s.msgRepo.Append(ctx, senderID, in.ReceiverID, body)
	if err != nil {
		return nil, err
	}
	metrics.MessagesPersisted.WithLabelValues(string(kind)).Inc()
	return msg, nil
}

// History returns the conversation between viewer and counterpart, oldest
// first, and marks everything counterpart sent to viewer as read.
func (s *ChatService) History(ctx context.Context, viewer, counterpart int64) ([]domain.Message, error) {
	if counterpart == 0 || counterpart == viewer {
		return nil, domain.NewValidationError("user_id", "must be another user")
	}
	other, err := s.userRepo.GetByID(ctx, counterpart)
	if err != nil {
		return nil, fmt.Errorf("lookup user %d: %w", counterpart, err)
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	msgs, err := s.msgRepo.History(ctx, viewer, counterpart)
	if err != nil {
		return nil, err
	}

	marked, err := s.msgRepo.MarkRead(ctx, counterpart, viewer)
	if err != nil {
		return nil, err
	}
	if marked > 0 {
		for i := range msgs {
			if msgs[i].SenderID == counterpart {
				msgs[i].IsRead = true
			}
		}
	}

	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// ListConversations folds every message involving viewer into one summary
// per counterpart, newest conversation first.
func (s *ChatService) ListConversations(ctx context.Context, viewer int64) ([]domain.ConversationSummary, error) {
	msgs, err := s.msgRepo.ListInvolving(ctx, viewer)
	if err != nil {
		return nil, err
	}

	latest := make(map[int64]domain.Message)
	for _, m := range msgs {
		other := m.Counterpart(viewer)
		cur, ok := latest[other]
		if !ok || newer(m, cur) {
			latest[other] = m
		}
	}

	summaries := make([]domain.ConversationSummary, 0, len(latest))
	for other, last := range latest {
		profile, err := s.userRepo.GetByID(ctx, other)
		if err != nil {
			return nil, fmt.Errorf("lookup user %d: %w", other, err)
		}
		if profile == nil {
			s.logger.Debug("skipping conversation with unknown user", "viewer", viewer, "user_id", other)
			continue
		}

		unread, err := s.msgRepo.UnreadCount(ctx, other, viewer)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, domain.NewConversationSummary(viewer, *profile, last, unread))
	}

	slices.SortFunc(summaries, func(a, b domain.ConversationSummary) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.LastMessageID(), a.LastMessageID())
	})
	return summaries, nil
}

func newer(a, b domain.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
