package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSyncCreditsCmd(e *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-credits <user-id>",
		Short: "Recompute the profile credit balance from the active subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withServices(cmd.Context(), func(svc *Services) error {
				credits, err := svc.Ledger.SyncProfileCredits(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %s: %d credits\n", args[0], credits)
				return nil
			})
		},
	}
}

func newGrantCreditsCmd(e *Env) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "grant-credits <user-id> <amount>",
		Short: "Record a manual credit grant in the transaction log",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil || amount <= 0 {
				return errors.New("amount must be a positive integer")
			}
			return e.withServices(cmd.Context(), func(svc *Services) error {
				tx, err := svc.Ledger.GrantCredits(cmd.Context(), args[0], amount, description, "")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "granted %d credits to %s (transaction %s)\n", tx.Amount, tx.UserID, tx.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "Manual credit grant", "transaction description")
	return cmd
}
