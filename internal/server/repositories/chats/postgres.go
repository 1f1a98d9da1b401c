// Package chats provides the PostgreSQL-backed chat repository.
package chats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

// Create inserts a chat with a caller supplied id.
func (r *PostgresRepository) Create(ctx context.Context, chat *models.Chat) (*models.Chat, error) {
	query :=
		`INSERT INTO chats (id, user_id, title, visibility)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		chat.ID, chat.UserID, chat.Title, string(chat.Visibility)).Scan(&chat.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return chat, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	query :=
		`SELECT id, user_id, title, visibility, created_at FROM chats
		 WHERE id = $1
		 `

	chat := &models.Chat{}
	var visibility string
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&chat.ID, &chat.UserID, &chat.Title, &visibility, &chat.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	chat.Visibility = models.Visibility(visibility)

	return chat, nil
}

func (r *PostgresRepository) UpdateVisibility(ctx context.Context, id string, visibility models.Visibility) error {
	query := `UPDATE chats SET visibility = $2 WHERE id = $1`

	n, err := dbx.Exec(ctx, r.db, query, id, string(visibility))
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeleteByUserID removes every chat owned by the user and reports how many
// were removed. Messages go with them via ON DELETE CASCADE.
func (r *PostgresRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM chats WHERE user_id = $1`

	return dbx.Exec(ctx, r.db, query, userID)
}
