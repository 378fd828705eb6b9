package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"herdcore/internal/core"
)

func newPendingCmd(a *app) *cobra.Command {
	var asOf string
	var horizon int
	cmd := &cobra.Command{
		Use:   "pending <diagnoses|births> <property-id>",
		Short: "List due pregnancy checks or expected births",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(asOf)
			if err != nil {
				return err
			}
			ctx := a.context(cmd)
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			switch args[0] {
			case "diagnoses":
				due, err := svc.PendingDiagnoses(ctx, args[1], day)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "TAG\tINSEMINATED\tDUE")
				for _, d := range due {
					fmt.Fprintf(w, "%s\t%s\t%s\n", d.Tag, d.InseminatedOn.Format(time.DateOnly), d.DueOn.Format(time.DateOnly))
				}
			case "births":
				due, err := svc.PendingBirths(ctx, args[1], day, horizon)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "TAG\tDUE")
				for _, b := range due {
					fmt.Fprintf(w, "%s\t%s\n", b.Tag, b.DueOn.Format(time.DateOnly))
				}
			default:
				return fmt.Errorf("unknown pending list %q (want diagnoses or births)", args[0])
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "reference date (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&horizon, "horizon", core.DefaultBirthHorizonDays, "days ahead to look for births")
	return cmd
}
