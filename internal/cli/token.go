package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/video-credits/internal/lib/jwt"
)

func newTokenCmd(e *Env) *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a signed access token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.loadConfig(); err != nil {
				return err
			}
			maker := jwt.NewMaker(e.Config.JWTSecretKey, e.Config.Audience, ttl)
			token, err := maker.GenerateToken(args[0], email, "authenticated")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
