package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"herdcore/internal/archive"
)

func newArchiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Write, list and restore store snapshots",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "now",
			Short: "Archive the current store state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := a.context(cmd)
				arch, src, err := a.archiver(ctx)
				if err != nil {
					return err
				}
				m, err := arch.Archive(ctx, src)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "archived %s: %s records, %s\n", m.ID, humanize.Comma(int64(m.Records)), humanize.Bytes(uint64(m.Size())))
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List complete archives, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := a.context(cmd)
				arch, _, err := a.archiver(ctx)
				if err != nil {
					return err
				}
				manifests, err := arch.List(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCREATED\tRECORDS\tSIZE")
				for _, m := range manifests {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, humanize.Time(m.CreatedAt), humanize.Comma(int64(m.Records)), humanize.Bytes(uint64(m.Size())))
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "restore [archive-id]",
			Short: "Restore an archive (default latest) into an empty store",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := a.context(cmd)
				arch, dst, err := a.archiver(ctx)
				if err != nil {
					return err
				}
				var id string
				if len(args) == 1 {
					id = args[0]
				} else {
					latest, err := arch.Latest(ctx)
					if err != nil {
						return err
					}
					id = latest.ID
				}
				m, err := arch.Restore(ctx, dst, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restored %s: %s records\n", m.ID, humanize.Comma(int64(m.Records)))
				return nil
			},
		},
		newArchiveScheduleCmd(a),
	)
	return cmd
}

func newArchiveScheduleCmd(a *app) *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Archive on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(a.context(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			arch, src, err := a.archiver(ctx)
			if err != nil {
				return err
			}
			if spec == "" {
				spec = a.cfg.Archive.Schedule
			}
			sched, err := archive.NewScheduler(arch, src, spec, a.cfg.Archive.Timeout)
			if err != nil {
				return err
			}
			sched.Start()
			fmt.Fprintf(cmd.OutOrStdout(), "next archive at %s\n", sched.Next().Format(time.RFC3339))
			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Archive.Timeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d archive runs\n", sched.Runs())
			return nil
		},
	}
	cmd.Flags().StringVar(&spec, "cron", "", "cron spec (default HERDCORE_ARCHIVE_SCHEDULE)")
	return cmd
}
