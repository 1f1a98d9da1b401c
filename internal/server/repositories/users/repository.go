package users

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	GetUserByUsername(ctx context.Context, userName string) (*models.User, error)
	EnsureUserByUsername(ctx context.Context, userName string) (*models.User, error)
	DeleteByUsername(ctx context.Context, userName string) (*models.User, error)
}
