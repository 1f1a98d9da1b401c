// Package messages provides the PostgreSQL-backed message repository.
// Message parts are stored as a jsonb array.
package messages

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, msg *models.Message) error {
	parts, err := json.Marshal(msg.Parts)
	if err != nil {
		return fmt.Errorf("encode parts: %w", err)
	}

	query :=
		`INSERT INTO messages (id, chat_id, role, parts)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	if err := r.db.QueryRowContext(ctx, query,
		msg.ID, msg.ChatID, string(msg.Role), parts).Scan(&msg.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	query :=
		`SELECT id, chat_id, role, parts, created_at FROM messages
		 WHERE id = $1
		 `

	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return msg, nil
}

// ListByChatID returns the chat history oldest first.
func (r *PostgresRepository) ListByChatID(ctx context.Context, chatID string) ([]*models.Message, error) {
	query :=
		`SELECT id, chat_id, role, parts, created_at FROM messages
		 WHERE chat_id = $1
		 ORDER BY created_at ASC
		 `
	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteByChatIDAfterTimestamp removes the messages of a chat created at or
// after ts.
func (r *PostgresRepository) DeleteByChatIDAfterTimestamp(ctx context.Context, chatID string, ts time.Time) (int64, error) {
	query := `DELETE FROM messages WHERE chat_id = $1 AND created_at >= $2`

	return dbx.Exec(ctx, r.db, query, chatID, ts)
}

// CountByUserSince counts the user authored messages across all chats of the
// user since the given instant.
func (r *PostgresRepository) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	query :=
		`SELECT COUNT(*) FROM messages m
		 JOIN chats c ON c.id = m.chat_id
		 WHERE c.user_id = $1 AND m.role = 'user' AND m.created_at >= $2
		 `

	var n int
	if err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func scanMessage(s dbx.Scanner) (*models.Message, error) {
	var (
		msg   models.Message
		role  string
		parts []byte
	)
	if err := s.Scan(&msg.ID, &msg.ChatID, &role, &parts, &msg.CreatedAt); err != nil {
		return nil, err
	}
	msg.Role = models.Role(role)
	if len(parts) > 0 {
		if err := json.Unmarshal(parts, &msg.Parts); err != nil {
			return nil, fmt.Errorf("decode parts: %w", err)
		}
	}
	return &msg, nil
}
