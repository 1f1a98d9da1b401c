package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	Save(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	ListByChatID(ctx context.Context, chatID string) ([]*models.Message, error)
	DeleteByChatIDAfterTimestamp(ctx context.Context, chatID string, ts time.Time) (int64, error)
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error)
}
