package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)

	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

// The users table belongs to the profile service; only messages is owned here.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id           BIGSERIAL PRIMARY KEY,
	sender_id    BIGINT NOT NULL,
	receiver_id  BIGINT NOT NULL,
	content      TEXT,
	file_url     TEXT,
	message_type VARCHAR(10) NOT NULL DEFAULT 'text',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
	is_read      BOOLEAN NOT NULL DEFAULT FALSE,
	CONSTRAINT messages_distinct_participants CHECK (sender_id <> receiver_id),
	CONSTRAINT messages_body_kind CHECK (
		(message_type IN ('text', 'link') AND content IS NOT NULL AND file_url IS NULL) OR
		(message_type IN ('image', 'file') AND file_url IS NOT NULL AND content IS NULL)
	)
);

CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages (sender_id, receiver_id, created_at, id);
CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages (receiver_id, created_at, id);
CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages (sender_id, receiver_id) WHERE NOT is_read;
`

// EnsureSchema creates the messages table and its indexes if missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
