package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"herdcore/internal/core"
	"herdcore/pkg/domain"
)

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print herd reports",
	}
	cmd.AddCommand(newPropertyReportCmd(a), newSeasonReportCmd(a), newGroupReportCmd(a))
	return cmd
}

func newPropertyReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "property <property-id>",
		Short: "Property dashboard with stocking rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			dash, err := svc.Aggregator().PropertyDashboard(ctx, args[0])
			if err != nil {
				return err
			}
			writePropertyDashboard(cmd.OutOrStdout(), dash)
			return nil
		},
	}
}

func writePropertyDashboard(out io.Writer, d core.PropertyDashboard) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Property\t%s (%s)\n", d.Name, d.PropertyID)
	fmt.Fprintf(w, "Total area\t%s ha\n", humanize.FtoaWithDigits(d.TotalAreaHa, 2))
	fmt.Fprintf(w, "Areas\t%s (%s ha, %s ha occupied)\n", humanize.Comma(int64(d.Areas)), humanize.FtoaWithDigits(d.AreaHa, 2), humanize.FtoaWithDigits(d.OccupiedAreaHa, 2))
	fmt.Fprintf(w, "Groups\t%s\n", humanize.Comma(int64(d.Groups)))
	fmt.Fprintf(w, "Active animals\t%s\n", humanize.Comma(int64(d.Animals)))
	fmt.Fprintf(w, "Pregnant\t%s\n", humanize.Comma(int64(d.Pregnant)))
	fmt.Fprintf(w, "Animal units\t%s AU\n", humanize.FtoaWithDigits(d.AnimalUnits, 2))
	fmt.Fprintf(w, "Stocking rate\t%s AU/ha\n", humanize.FtoaWithDigits(d.StockingRate, 3))
	for _, k := range sortedKeys(d.BySpecies) {
		fmt.Fprintf(w, "  %s\t%d\n", k, d.BySpecies[k])
	}
	for _, k := range sortedKeys(d.ByCategory) {
		fmt.Fprintf(w, "  %s\t%d\n", k, d.ByCategory[k])
	}
	for _, k := range sortedKeys(d.BySex) {
		fmt.Fprintf(w, "  %s\t%d\n", k, d.BySex[k])
	}
	_ = w.Flush()
}

func newSeasonReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "season <season-id>",
		Short: "Breeding season pregnancy and birth rates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			r, err := svc.SeasonReport(ctx, args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Season\t%s (%s to %s)\n", r.Name, r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
			fmt.Fprintf(w, "Females\t%d\n", r.Females)
			fmt.Fprintf(w, "Inseminations\t%d\n", r.Inseminations)
			fmt.Fprintf(w, "Diagnosed\t%d (+%d / -%d / ?%d)\n", r.Diagnosed, r.Positive, r.Negative, r.Inconclusive)
			fmt.Fprintf(w, "Pregnancy rate\t%s%%\n", humanize.FtoaWithDigits(r.PregnancyRate, 1))
			fmt.Fprintf(w, "Births\t%d (%d live, %d offspring)\n", r.Births, r.LiveBirths, r.Offspring)
			fmt.Fprintf(w, "Birth rate\t%s%%\n", humanize.FtoaWithDigits(r.BirthRate, 1))
			return w.Flush()
		},
	}
}

func newGroupReportCmd(a *app) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "group <group-id>",
		Short: "Group head count, weights and gain",
		Args:  cobra.ExactArgs(1),
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
			st, err := svc.Aggregator().GroupStatistics(ctx, args[0], day)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Group\t%s\n", st.Name)
			fmt.Fprintf(w, "Head\t%d\n", st.Head)
			fmt.Fprintf(w, "Animal units\t%s AU\n", humanize.FtoaWithDigits(st.AnimalUnits, 2))
			fmt.Fprintf(w, "Average weight\t%s\n", optional(st.AverageWeightKg, st.HasAverageWeight, "kg"))
			fmt.Fprintf(w, "Average daily gain\t%s\n", optional(st.AverageDailyGain, st.HasAverageDailyGain, "kg/day"))
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "reference date (YYYY-MM-DD, default today)")
	return cmd
}

func optional(v float64, ok bool, unit string) string {
	if !ok {
		return "n/a"
	}
	return humanize.FtoaWithDigits(v, 2) + " " + unit
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, domain.Invalid("as-of", "expected YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
