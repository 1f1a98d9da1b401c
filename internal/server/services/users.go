// Package services contains server-side business logic. This file implements
// UserService, which resolves usernames to accounts through a short-lived
// identity cache and handles account removal and pool warm-up.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/cache"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
)

// WarmupUsername is looked up to force the pool to open a connection. It is
// not a valid sign-in name for anyone in practice.
const WarmupUsername = "__pool-warmup-check__"

// DeletedUser reports what clear-user removed.
type DeletedUser struct {
	User  *models.User
	Chats int64
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       *cache.Cache[string, *models.User]
	log         logging.Logger
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		cache:       cache.New[string, *models.User](cfg.UserCacheTTL),
		log:         log.With("module", "users"),
	}
}

// EnsureUserByUsername returns the account for userName, creating it on first
// sight. Hits are served from the identity cache.
func (s *UserService) EnsureUserByUsername(ctx context.Context, userName string) (*models.User, error) {
	if u, ok := s.cache.Get(userName); ok {
		s.log.Debug(ctx, "user cache hit", "username", userName)
		return u, nil
	}

	u, err := s.repomanager.Users(s.db).EnsureUserByUsername(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("error ensuring user: %w", err)
	}

	s.cache.Set(userName, u)
	return u, nil
}

func (s *UserService) GetUserByUsername(ctx context.Context, userName string) (*models.User, error) {
	if u, ok := s.cache.Get(userName); ok {
		return u, nil
	}

	u, err := s.repomanager.Users(s.db).GetUserByUsername(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	s.cache.Set(userName, u)
	return u, nil
}

// DeleteUserByUsername removes the account together with its chats in one
// transaction. Another server process may keep serving the account from its
// own cache until the entry expires.
func (s *UserService) DeleteUserByUsername(ctx context.Context, userName string) (*DeletedUser, error) {
	out, err := dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*DeletedUser, error) {
		users := s.repomanager.Users(tx)

		u, err := users.GetUserByUsername(ctx, userName)
		if err != nil {
			return nil, err
		}

		n, err := s.repomanager.Chats(tx).DeleteByUserID(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("error deleting chats: %w", err)
		}

		if _, err := users.DeleteByUsername(ctx, userName); err != nil {
			return nil, fmt.Errorf("error deleting user: %w", err)
		}

		return &DeletedUser{User: u, Chats: n}, nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Clear()
	return out, nil
}

// WarmUp opens a pooled connection and runs a throwaway lookup so the first
// real sign-in does not pay connection setup.
func (s *UserService) WarmUp(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	_, err := s.repomanager.Users(s.db).GetUserByUsername(ctx, WarmupUsername)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("warm-up lookup: %w", err)
	}
	return nil
}
