package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/noobsquad/chatcore/internal/domain"
	"github.com/noobsquad/chatcore/internal/repository"
)

const messageColumns = `id, sender_id, receiver_id, content, file_url, message_type, created_at, is_read`

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Append(ctx context.Context, senderID, receiverID int64, body domain.Body) (*domain.Message, error) {
	if err := repository.ValidateParticipants(senderID, receiverID); err != nil {
		return nil, err
	}
	if err := body.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO messages (sender_id, receiver_id, content, file_url, message_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, is_read`
	msg := domain.Message{SenderID: senderID, ReceiverID: receiverID, Body: body}
	err := r.pool.QueryRow(ctx, query,
		senderID, receiverID, body.Content, body.FileURL, string(body.Kind),
	).Scan(&msg.ID, &msg.CreatedAt, &msg.IsRead)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &msg, nil
}

func (r *MessageRepo) History(ctx context.Context, a, b int64) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
			OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, a, b)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return scanMessages(rows)
}

func (r *MessageRepo) MarkRead(ctx context.Context, from, to int64) (int64, error) {
	query := `
		UPDATE messages SET is_read = TRUE
		WHERE sender_id = $1 AND receiver_id = $2 AND is_read = FALSE`
	tag, err := r.pool.Exec(ctx, query, from, to)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepo) UnreadCount(ctx context.Context, from, to int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM messages
		WHERE sender_id = $1 AND receiver_id = $2 AND is_read = FALSE`
	var count int
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func (r *MessageRepo) ListInvolving(ctx context.Context, userID int64) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query messages of user: %w", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var (
			msg  domain.Message
			kind string
		)
		if err := rows.Scan(
			&msg.ID, &msg.SenderID, &msg.ReceiverID,
			&msg.Body.Content, &msg.Body.FileURL, &kind,
			&msg.CreatedAt, &msg.IsRead,
		); err != nil {
			return nil, err
		}
		msg.Body.Kind = domain.MessageKind(kind)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

var _ repository.MessageRepository = (*MessageRepo)(nil)
