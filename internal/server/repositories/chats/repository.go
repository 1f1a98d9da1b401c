package chats

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, chat *models.Chat) (*models.Chat, error)
	GetByID(ctx context.Context, id string) (*models.Chat, error)
	UpdateVisibility(ctx context.Context, id string, visibility models.Visibility) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}
