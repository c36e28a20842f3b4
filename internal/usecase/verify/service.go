// Package verify compares document counts of the source and target indexes after a run.
package verify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Counter counts the documents of one index.
type Counter interface {
	Name() string
	Count(ctx context.Context) (int64, error)
}

// Result is the outcome of a count comparison.
type Result struct {
	Source int64
	Target int64
	Match  bool
}

// Service compares counts. A mismatch is reported, never retried.
type Service struct {
	source Counter
	target Counter
	settle time.Duration
	logger *zap.Logger
}

// New creates a verification service. settle is the wait before the target is counted,
// covering the target's indexing latency.
func New(source, target Counter, settle time.Duration, logger *zap.Logger) *Service {
	return &Service{source: source, target: target, settle: settle, logger: logger}
}

// Verify counts the source, waits for the target to settle, then counts the target.
func (s *Service) Verify(ctx context.Context) (Result, error) {
	src, err := s.source.Count(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("count source %q: %w", s.source.Name(), err)
	}

	if s.settle > 0 {
		s.logger.Debug("Waiting for target index to settle", zap.Duration("delay", s.settle))
		timer := time.NewTimer(s.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	dst, err := s.target.Count(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("count target %q: %w", s.target.Name(), err)
	}

	res := Result{Source: src, Target: dst, Match: src == dst}
	fields := []zap.Field{
		zap.String("source", s.source.Name()),
		zap.Int64("source_count", src),
		zap.String("target", s.target.Name()),
		zap.Int64("target_count", dst),
	}
	if res.Match {
		s.logger.Info("Document counts match.", fields...)
	} else {
		s.logger.Warn("Document counts do not match.", fields...)
	}
	return res, nil
}
