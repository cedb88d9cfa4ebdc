package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPlansCmd(e *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the plan catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withServices(cmd.Context(), func(svc *Services) error {
				plans, err := svc.Ledger.ListPlans(cmd.Context())
				if err != nil {
					return err
				}
				if len(plans) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No plans.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCREDITS/MONTH\tMONTHS\tSTRIPE PRICE")
				for _, p := range plans {
					fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d\t%d\t%s\n",
						p.ID, p.Name, p.Price, p.CreditsPerMonth, p.DurationMonths, p.StripePriceID)
				}
				return tw.Flush()
			})
		},
	}
}
