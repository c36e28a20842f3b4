package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmigrate/internal/bootstrap"
	"github.com/kailas-cloud/vecmigrate/internal/config"
	"github.com/kailas-cloud/vecmigrate/internal/metrics"
	"github.com/kailas-cloud/vecmigrate/internal/progress"
	"github.com/kailas-cloud/vecmigrate/internal/repository/audit"
	"github.com/kailas-cloud/vecmigrate/internal/usecase/migrate"
	"github.com/kailas-cloud/vecmigrate/internal/usecase/verify"
	"github.com/kailas-cloud/vecmigrate/internal/version"
)

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func migrateCommand(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.cfg.ValidateMigration(); err != nil {
		return err
	}

	ctx, stop := signalContext(c)
	defer stop()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterMigrationMetrics()
	rt.serveMetrics(rt.cfg.Metrics.ListenAddr)

	runID := uuid.NewString()
	opts := []migrate.Option{migrate.WithRunID(runID)}
	if !c.Bool("no-progress") {
		opts = append(opts, migrate.WithProgress(progress.NewBar(c.App.ErrWriter, "documents")))
	}
	if path := rt.cfg.Audit.Path; path != "" {
		store, err := audit.Open(path)
		if err != nil {
			return err
		}
		rt.onClose(func() { _ = store.Close() })
		opts = append(opts, migrate.WithAudit(store))
	}

	svc, source, target, err := buildMigration(ctx, rt, opts...)
	if err != nil {
		return err
	}

	rt.logger.Info("Starting migration",
		zap.String("version", version.Version),
		zap.String("run_id", runID),
		zap.String("source", source.Name()),
		zap.String("target", target.Name()),
	)

	report, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, report.String())

	if c.Bool("skip-verify") || rt.cfg.Migration.SkipVerify {
		return nil
	}
	_, err = verify.New(source, target, rt.cfg.Migration.SettleDelay(), rt.logger).Verify(ctx)
	return err
}

func schemaCommand(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.cfg.ValidateMigration(); err != nil {
		return err
	}

	ctx, stop := signalContext(c)
	defer stop()

	metrics.RegisterMigrationMetrics()

	svc, _, target, err := buildMigration(ctx, rt)
	if err != nil {
		return err
	}
	plan, err := svc.TransferSchema(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "index %s ready: key %s, %s paging\n", target.Name(), plan.KeyField.Name, plan.Mode)
	return nil
}

func verifyCommand(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.cfg.ValidateIndexes(); err != nil {
		return err
	}

	ctx, stop := signalContext(c)
	defer stop()

	metrics.RegisterMigrationMetrics()

	source, target, err := openIndexes(ctx, rt)
	if err != nil {
		return err
	}

	settle := rt.cfg.Migration.SettleDelay()
	if c.IsSet("settle") {
		settle = c.Duration("settle")
	}
	res, err := verify.New(source, target, settle, rt.logger).Verify(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "source %s: %d, target %s: %d, match: %t\n",
		source.Name(), res.Source, target.Name(), res.Target, res.Match)
	return nil
}

func auditRunsCommand(c *cli.Context) error {
	store, err := openAudit(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Runs()
	if err != nil {
		return err
	}
	for _, id := range runs {
		fmt.Fprintln(c.App.Writer, id)
	}
	return nil
}

func auditShowCommand(c *cli.Context) error {
	runID := c.Args().First()
	if runID == "" {
		return fmt.Errorf("run id is required")
	}

	store, err := openAudit(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	report, err := store.Summary(runID)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	pages, err := store.Pages(runID)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	w := c.App.Writer
	fmt.Fprintln(w, report.String())
	if !report.FinishedAt.IsZero() {
		fmt.Fprintf(w, "duration: %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	} else {
		fmt.Fprintln(w, "run did not complete")
	}
	for _, p := range pages {
		fmt.Fprintf(w, "page %d: size %d, processed %d, failed %d, last key %q, %s\n",
			p.Seq, p.Size, p.Processed, p.Failed, p.LastKey, p.Duration.Round(time.Millisecond))
	}
	for _, f := range report.Failures {
		fmt.Fprintf(w, "failed %s (%s): %s\n", f.Key, f.Reason, f.Message)
	}
	return nil
}

// openAudit opens the audit trail from --path, falling back to the config.
func openAudit(c *cli.Context) (*audit.Store, error) {
	path := c.String("path")
	if path == "" {
		cfg, err := config.Load(config.Options{
			Env:     c.String("env"),
			Path:    c.String("config"),
			EnvFile: c.String("env-file"),
		})
		if err != nil {
			return nil, err
		}
		path = cfg.Audit.Path
	}
	if path == "" {
		return nil, fmt.Errorf("no audit trail configured: set audit.path or pass --path")
	}
	return audit.Open(path)
}

func openIndexes(ctx context.Context, rt *session) (source, target bootstrap.Index, err error) {
	source, closeSrc, err := bootstrap.OpenIndex(ctx, rt.cfg.Source, rt.logger)
	rt.onClose(closeSrc)
	if err != nil {
		return nil, nil, fmt.Errorf("open source index: %w", err)
	}
	target, closeDst, err := bootstrap.OpenIndex(ctx, rt.cfg.Target, rt.logger)
	rt.onClose(closeDst)
	if err != nil {
		return nil, nil, fmt.Errorf("open target index: %w", err)
	}
	return source, target, nil
}

// buildMigration is the composition root of a migration run.
func buildMigration(
	ctx context.Context, rt *session, opts ...migrate.Option,
) (*migrate.Service, bootstrap.Index, bootstrap.Index, error) {
	cfg := rt.cfg

	m, err := config.LoadVectorMapping(cfg.Mapping.File)
	if err != nil {
		return nil, nil, nil, err
	}
	vs, err := config.LoadVectorSearch(cfg.Vectorizers.DefinitionsFile, cfg.Vectorizers.APIKeys)
	if err != nil {
		return nil, nil, nil, err
	}

	source, target, err := openIndexes(ctx, rt)
	if err != nil {
		return nil, nil, nil, err
	}

	var cache bootstrap.Cache
	if cfg.Cache.Enabled {
		store, err := bootstrap.OpenRedis(ctx, cfg.Cache.Redis)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open embedding cache: %w", err)
		}
		rt.onClose(store.Close)
		cache = store
	}

	embedder, err := bootstrap.Embedder(cfg.Embedding, cache, cfg.Cache.Redis.KeyPrefix, rt.logger)
	if err != nil {
		return nil, nil, nil, err
	}

	svc := migrate.New(source, target, embedder, m, vs, migrate.Config{
		PageSize:   cfg.Migration.PageSize,
		MaxRecords: cfg.Migration.MaxRecords,
	}, rt.logger, opts...)
	return svc, source, target, nil
}
