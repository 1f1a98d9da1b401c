package cli

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/spf13/cobra"
)

// authProblems lists what keeps the session setup from being production
// ready. An empty result means the configuration passes.
func authProblems(c *config.Config) []string {
	var out []string

	switch c.SecretKey {
	case "":
		out = append(out, "AUTH_SECRET is not set")
	case config.DefaultSecretKey:
		out = append(out, "AUTH_SECRET still has the development default")
	default:
		if len(c.SecretKey) < 32 {
			out = append(out, "AUTH_SECRET is shorter than 32 characters")
		}
	}

	if c.PublicURL == "" {
		out = append(out, "public URL is not set")
	} else if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
		out = append(out, fmt.Sprintf("public URL %q is not an absolute URL", c.PublicURL))
	} else if u.Scheme != "https" {
		out = append(out, "public URL is not https; session cookies will not be Secure")
	}

	return out
}

func newVerifyAuthCmd(cfg configFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-auth",
		Short: "Check that the session secret and public URL are configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg()
			if err != nil {
				return err
			}

			problems := authProblems(c)
			for _, p := range problems {
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s\n", p)
			}
			if len(problems) > 0 {
				return errors.New("auth configuration is incomplete")
			}

			fmt.Fprintln(cmd.OutOrStdout(), "OK    auth configuration looks good")
			return nil
		},
	}
}
