package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/spf13/cobra"
)

type userDeleter interface {
	DeleteUserByUsername(ctx context.Context, userName string) (*services.DeletedUser, error)
}

var openUsers = func(cfg *config.Config) (userDeleter, func() error, error) {
	db, err := repomanager.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return services.NewUserService(db, rm, cfg, logging.Discard()), db.Close, nil
}

func newClearUserCmd(cfg configFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-user <username>",
		Short: "Delete a user together with their chats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg()
			if err != nil {
				return err
			}
			userName, err := services.ValidateUsername(args[0])
			if err != nil {
				return err
			}

			users, closeFn, err := openUsers(c)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer closeFn()

			deleted, err := users.DeleteUserByUsername(cmd.Context(), userName)
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("user %q not found", userName)
			}
			if err != nil {
				return fmt.Errorf("delete user: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %q (id %s) and %d chat(s)\n", deleted.User.UserName, deleted.User.ID, deleted.Chats)
			return nil
		},
	}
}
