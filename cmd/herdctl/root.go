package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"herdcore/internal/archive"
	"herdcore/internal/blob"
	"herdcore/internal/config"
	"herdcore/internal/core"
	"herdcore/internal/logging"
	"herdcore/internal/reference"
	"herdcore/pkg/domain"
)

// app holds the wiring shared by subcommands. It is built lazily so that
// commands such as species do not open a store.
type app struct {
	envFile string
	actor   string

	cfg      config.Config
	logger   *logging.Logger
	catalog  *domain.SpeciesCatalog
	registry *prometheus.Registry
	store    core.PersistentStore
	svc      *core.Service
}

// execute runs herdctl with args and releases the store even when the
// command fails.
func execute(args []string, out io.Writer) error {
	a := &app{}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)
	err := cmd.Execute()
	return errors.Join(err, a.close())
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "herdctl",
		Short: "herdctl inspects and archives herdcore stores",
		Long: `herdctl reads herd reports from a herdcore store and manages its
snapshot archives.

Configuration comes from HERDCORE_* environment variables, optionally seeded
from a .env file:
  HERDCORE_STORAGE_DRIVER   memory|sqlite|postgres (default sqlite)
  HERDCORE_SQLITE_PATH      sqlite database file
  HERDCORE_POSTGRES_DSN     postgres connection string
  HERDCORE_SPECIES_FILE     species reference YAML (default: built in)
  HERDCORE_BLOB_DRIVER      memory|fs|s3 archive target (default fs)
  HERDCORE_ARCHIVE_SCHEDULE cron spec for "archive schedule" (default @daily)
  HERDCORE_METRICS_ADDR     listen address for "metrics" (default :9464)`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "optional .env file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&a.actor, "actor", "herdctl", "actor recorded on audit entries")

	cmd.AddCommand(
		newSpeciesCmd(a),
		newReportCmd(a),
		newPendingCmd(a),
		newArchiveCmd(a),
		newMetricsCmd(a),
	)
	return cmd
}

func (a *app) load() error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = logger.Named("herdctl")
	if cfg.SpeciesFile != "" {
		a.catalog, err = reference.LoadFile(cfg.SpeciesFile)
	} else {
		a.catalog, err = reference.Default()
	}
	return err
}

// service opens the configured store on first use.
func (a *app) service(ctx context.Context) (*core.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	store, err := core.OpenPersistentStore(ctx, a.cfg.Storage, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Storage.Driver, err)
	}
	a.registry = prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetricsRecorder(a.registry)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.svc = core.NewService(store, a.catalog,
		core.WithLogger(a.logger),
		core.WithMetricsRecorder(metrics),
		core.WithAuditRecorder(core.LoggerAuditRecorder{Logger: a.logger.Named("audit")}),
	)
	return a.svc, nil
}

func (a *app) archiver(ctx context.Context) (*archive.Archiver, archive.Target, error) {
	if _, err := a.service(ctx); err != nil {
		return nil, nil, err
	}
	target, ok := a.store.(archive.Target)
	if !ok {
		return nil, nil, fmt.Errorf("%T cannot be archived", a.store)
	}
	store, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return nil, nil, err
	}
	return archive.New(store, archive.WithPrefix(a.cfg.Archive.Prefix), archive.WithLogger(a.logger.Named("archive"))), target, nil
}

func (a *app) context(cmd *cobra.Command) context.Context {
	return core.WithActor(cmd.Context(), a.actor)
}

func (a *app) close() error {
	var errs []error
	if closer, ok := a.store.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if a.logger != nil {
		// Sync on a terminal stderr returns EINVAL.
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
