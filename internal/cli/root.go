// Package cli implements the gophchat maintenance commands.
package cli

import (
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/spf13/cobra"
)

// NewRootCmd returns the top-level command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "gophchat-cli",
		Short:        "Maintenance tools for the gophchat server",
		Long:         "Operate on a gophchat deployment: remove users, check auth and storage settings, run migrations and talk to the configured models.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (JSON or TOML); environment variables still apply")

	cfg := func() (*config.Config, error) {
		return loadConfig(configPath)
	}

	root.AddCommand(
		newClearUserCmd(cfg),
		newVerifyAuthCmd(cfg),
		newMigrateCmd(cfg),
		newAskCmd(cfg),
		newVerifyStorageCmd(cfg),
	)
	return root
}

type configFunc func() (*config.Config, error)

var loadConfig = func(path string) (*config.Config, error) {
	var args []string
	if path != "" {
		args = []string{"-c", path}
	}
	return config.Load(args)
}
