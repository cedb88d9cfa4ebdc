package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReconcileCmd(e *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over recorded but ungranted payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withServices(cmd.Context(), func(svc *Services) error {
				report, err := svc.Settlement.Reconcile(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "checked: %d, granted: %d, failed: %d\n",
					report.Checked, report.Granted, report.Failed)
				return nil
			})
		},
	}
}
