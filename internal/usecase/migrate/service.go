// Package migrate copies an index and its documents into a target index, recomputing mapped
// vector fields on the way.
package migrate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmigrate/internal/domain/document"
	"github.com/kailas-cloud/vecmigrate/internal/domain/mapping"
	"github.com/kailas-cloud/vecmigrate/internal/domain/migration"
	"github.com/kailas-cloud/vecmigrate/internal/domain/vectorizer"
	"github.com/kailas-cloud/vecmigrate/internal/metrics"
)

// Defaults for Config fields left at zero.
const (
	DefaultPageSize   = 1000
	DefaultMaxRecords = 100000
)

// Config holds the paging limits of a run.
type Config struct {
	PageSize   int
	MaxRecords int
}

// Service runs one migration pass.
type Service struct {
	source       Source
	target       Target
	enricher     *Enricher
	mapping      mapping.Mapping
	vectorSearch *vectorizer.VectorSearch
	pageSize     int
	maxRecords   int
	runID        string
	progress     Progress
	audit        AuditSink
	logger       *zap.Logger
}

// Option tunes a Service.
type Option func(*Service)

// WithProgress reports processed documents to p.
func WithProgress(p Progress) Option {
	return func(s *Service) { s.progress = p }
}

// WithAudit records the run in a.
func WithAudit(a AuditSink) Option {
	return func(s *Service) { s.audit = a }
}

// WithRunID sets the run identifier used in logs and the audit trail.
func WithRunID(id string) Option {
	return func(s *Service) { s.runID = id }
}

// New creates a migration service. vs replaces the source vector-search configuration when
// non-nil; its credentials must already be injected.
func New(
	source Source, target Target, embedder Embedder,
	m mapping.Mapping, vs *vectorizer.VectorSearch,
	cfg Config, logger *zap.Logger, opts ...Option,
) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = DefaultMaxRecords
	}
	s := &Service{
		source:       source,
		target:       target,
		enricher:     NewEnricher(embedder, m),
		mapping:      m,
		vectorSearch: vs,
		pageSize:     cfg.PageSize,
		maxRecords:   cfg.MaxRecords,
		progress:     nopProgress{},
		logger:       logger,
	}
	for _, o := range opts {
		o(s)
	}
	if s.runID != "" {
		s.logger = s.logger.With(zap.String("run_id", s.runID))
	}
	return s
}

// Run transfers the schema, then streams every source page through enrichment and upload.
// Per-document failures are collected in the report; only schema, source and context errors
// end the run early.
func (s *Service) Run(ctx context.Context) (migration.Report, error) {
	report := migration.Report{
		RunID:       s.runID,
		SourceIndex: s.source.Name(),
		TargetIndex: s.target.Name(),
		StartedAt:   time.Now().UTC(),
	}

	plan, err := s.TransferSchema(ctx)
	if err != nil {
		return report, err
	}
	report.Mode = plan.Mode

	total, err := s.source.Count(ctx)
	if err != nil {
		s.logger.Warn("Source document count unavailable, progress total unknown", zap.Error(err))
		total = 0
	}
	report.SourceCount = total

	if s.audit != nil {
		if err := s.audit.Begin(ctx, report); err != nil {
			return report, fmt.Errorf("begin audit trail: %w", err)
		}
	}

	s.logger.Info("Backing up and restoring documents",
		zap.String("source", report.SourceIndex),
		zap.String("target", report.TargetIndex),
		zap.Int64("source_count", total),
		zap.Int("page_size", s.pageSize),
	)

	s.progress.Start(total)
	runErr := s.copyDocuments(ctx, plan, &report)
	s.progress.Finish()

	report.FinishedAt = time.Now().UTC()
	s.logSummary(&report, runErr)

	if s.audit != nil {
		if err := s.audit.Complete(ctx, report); err != nil {
			s.logger.Warn("Failed to complete audit trail", zap.Error(err))
		}
	}
	return report, runErr
}

func (s *Service) copyDocuments(ctx context.Context, plan SchemaPlan, report *migration.Report) error {
	exporter := NewExporter(s.source, plan.KeyField.Name, plan.Mode, s.pageSize, s.maxRecords, plan.ExportFields...)
	seq := 0
	for docs, err := range exporter.Pages(ctx) {
		if err != nil {
			return fmt.Errorf("export source documents: %w", err)
		}
		seq++
		page, failures, err := s.processPage(ctx, seq, docs, plan.KeyField.Name)
		if err != nil {
			return err
		}
		report.AddPage(page, failures)
		s.progress.Advance(page.Processed)

		if s.audit != nil {
			if err := s.audit.RecordPage(ctx, s.runID, page, failures); err != nil {
				s.logger.Warn("Failed to record page in audit trail", zap.Int("page", seq), zap.Error(err))
			}
		}
	}
	return nil
}

// processPage enriches and uploads one page. Only context cancellation is returned as an error.
func (s *Service) processPage(
	ctx context.Context, seq int, docs []document.Document, keyField string,
) (migration.Page, []migration.Failure, error) {
	start := time.Now()
	page := migration.Page{Seq: seq, Size: len(docs)}
	page.LastKey, _ = docs[len(docs)-1].Key(keyField)

	var failures []migration.Failure
	enriched := make([]document.Document, 0, len(docs))
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return page, nil, err
		}
		key, _ := d.Key(keyField)
		out, err := s.enricher.Enrich(ctx, d)
		if err != nil {
			s.logger.Warn("Document enrichment error", zap.String("key", key), zap.Error(err))
			failures = append(failures, migration.Failure{Key: key, Reason: migration.ReasonEnrich, Message: err.Error()})
			continue
		}
		enriched = append(enriched, out)
	}

	if len(enriched) > 0 {
		processed, uploadFailures, err := s.upload(ctx, enriched, keyField)
		if err != nil && ctx.Err() != nil {
			return page, nil, ctx.Err()
		}
		page.Processed = processed
		failures = append(failures, uploadFailures...)
	}

	page.Failed = len(failures)
	page.Duration = time.Since(start)

	metrics.DocumentsProcessedTotal.Add(float64(page.Processed))
	for _, f := range failures {
		metrics.DocumentsFailedTotal.WithLabelValues(string(f.Reason)).Inc()
	}
	metrics.PageDuration.Observe(page.Duration.Seconds())

	s.logger.Debug("Page migrated",
		zap.Int("page", seq),
		zap.Int("size", page.Size),
		zap.Int("processed", page.Processed),
		zap.Int("failed", page.Failed),
		zap.String("last_key", page.LastKey),
		zap.Duration("duration", page.Duration),
	)
	return page, failures, nil
}

// upload sends one page and classifies the per-document results. A failed request fails
// every document of the page. Documents the service did not report on are failures too.
func (s *Service) upload(
	ctx context.Context, docs []document.Document, keyField string,
) (int, []migration.Failure, error) {
	keys := document.Keys(docs, keyField)

	results, err := s.target.Upload(ctx, docs)
	if err != nil {
		s.logger.Error("Page upload failed", zap.Int("documents", len(docs)), zap.Error(err))
		failures := make([]migration.Failure, len(keys))
		for i, k := range keys {
			failures[i] = migration.Failure{Key: k, Reason: migration.ReasonPage, Message: err.Error()}
		}
		return 0, failures, err
	}

	var failures []migration.Failure
	reported := make(map[string]bool, len(results))
	for i, r := range results {
		key := r.Key()
		if key == "" && i < len(keys) {
			key = keys[i]
		}
		reported[key] = true
		if r.Succeeded() {
			continue
		}
		s.logger.Warn("Document upload error: "+r.Message(),
			zap.String("key", key),
			zap.Int("status_code", r.StatusCode()),
		)
		failures = append(failures, migration.Failure{Key: key, Reason: migration.ReasonUpload, Message: r.Message()})
	}

	if len(results) != len(docs) {
		s.logger.Warn("Upload result count differs from page size",
			zap.Int("sent", len(docs)),
			zap.Int("reported", len(results)),
		)
		for _, k := range keys {
			if !reported[k] {
				failures = append(failures, migration.Failure{
					Key: k, Reason: migration.ReasonUpload, Message: "no result reported by target",
				})
			}
		}
	}
	return len(results), failures, nil
}

func (s *Service) logSummary(r *migration.Report, runErr error) {
	if r.Failed() > 0 {
		s.logger.Warn(fmt.Sprintf("Failed documents: %d", r.Failed()),
			zap.Strings("failed_keys", r.FailedKeys()),
		)
	} else if runErr == nil {
		s.logger.Info("All documents uploaded successfully.")
	}

	if runErr != nil {
		s.logger.Error("Migration stopped before the source was exhausted",
			zap.Int("pages", r.Pages),
			zap.Int("processed", r.Processed),
			zap.Error(runErr),
		)
		return
	}
	s.logger.Info(fmt.Sprintf("Successfully backed up '%s' and restored to '%s'", r.SourceIndex, r.TargetIndex),
		zap.Int("pages", r.Pages),
		zap.Int("processed", r.Processed),
		zap.Int("failed", r.Failed()),
		zap.Duration("duration", r.FinishedAt.Sub(r.StartedAt)),
	)
}

type nopProgress struct{}

func (nopProgress) Start(int64) {}
func (nopProgress) Advance(int) {}
func (nopProgress) Finish()     {}
