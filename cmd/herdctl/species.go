package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newSpeciesCmd(a *app) *cobra.Command {
	var breeds bool
	cmd := &cobra.Command{
		Use:   "species",
		Short: "Print the species reference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SPECIES\tREF WEIGHT\tGESTATION\tDIAGNOSIS\tFALLBACK AU\tCATEGORIES")
			for _, sp := range a.catalog.List() {
				fmt.Fprintf(w, "%s\t%s kg\t%d d\t+%d d\t%s\t%s\n",
					sp.Kind,
					humanize.FtoaWithDigits(sp.ReferenceWeightKg, 1),
					sp.GestationDays,
					sp.DiagnosisOffsetDays,
					humanize.FtoaWithDigits(sp.FallbackAnimalUnit, 2),
					strings.Join(sp.Categories, ","),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if !breeds {
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout())
			w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BREED\tSPECIES\tNAME\tORIGIN")
			for _, sp := range a.catalog.List() {
				for _, b := range sp.Breeds {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, sp.Kind, b.Name, b.Origin)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&breeds, "breeds", false, "also list breeds")
	return cmd
}
