// Package audit keeps a durable, page-by-page record of migration runs in a bbolt file.
package audit

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kailas-cloud/vecmigrate/internal/domain"
	"github.com/kailas-cloud/vecmigrate/internal/domain/migration"
)

var (
	runsBucket     = []byte("runs")
	pagesBucket    = []byte("pages")
	failuresBucket = []byte("failures")
	summaryKey     = []byte("summary")
)

// Store writes one nested bucket per run: runs/<run id>/{pages,failures,summary}.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the audit file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open audit file %q: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin creates the run bucket and writes the initial summary.
func (s *Store) Begin(ctx context.Context, report migration.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if report.RunID == "" {
		return fmt.Errorf("audit: run id is required")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		run, err := tx.Bucket(runsBucket).CreateBucket([]byte(report.RunID))
		if err != nil {
			return fmt.Errorf("create run %q: %w", report.RunID, err)
		}
		if _, err := run.CreateBucket(pagesBucket); err != nil {
			return err
		}
		if _, err := run.CreateBucket(failuresBucket); err != nil {
			return err
		}
		return putJSON(run, summaryKey, report)
	})
}

// RecordPage appends one page summary and its failures in a single transaction.
func (s *Store) RecordPage(ctx context.Context, runID string, page migration.Page, failures []migration.Failure) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		run, err := runBucket(tx, runID)
		if err != nil {
			return err
		}
		if err := putJSON(run.Bucket(pagesBucket), seqKey(uint64(page.Seq)), page); err != nil {
			return err
		}
		fb := run.Bucket(failuresBucket)
		for _, f := range failures {
			n, err := fb.NextSequence()
			if err != nil {
				return err
			}
			if err := putJSON(fb, seqKey(n), f); err != nil {
				return err
			}
		}
		return nil
	})
}

// Complete overwrites the run summary with the final report. Failures are kept in their own
// bucket and not repeated in the summary.
func (s *Store) Complete(ctx context.Context, report migration.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	summary := report
	summary.Failures = nil
	return s.db.Update(func(tx *bbolt.Tx) error {
		run, err := runBucket(tx, report.RunID)
		if err != nil {
			return err
		}
		return putJSON(run, summaryKey, summary)
	})
}

// Runs lists the recorded run ids in key order.
func (s *Store) Runs() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(runsBucket).ForEachBucket(func(k []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// Summary returns the latest summary of a run. Failures are filled from the failures bucket.
func (s *Store) Summary(runID string) (migration.Report, error) {
	var report migration.Report
	err := s.db.View(func(tx *bbolt.Tx) error {
		run, err := runBucket(tx, runID)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(run.Get(summaryKey), &report); err != nil {
			return fmt.Errorf("decode summary: %w", err)
		}
		report.Failures, err = readAll[migration.Failure](run.Bucket(failuresBucket))
		return err
	})
	return report, err
}

// Pages returns the page summaries of a run in page order.
func (s *Store) Pages(runID string) ([]migration.Page, error) {
	var pages []migration.Page
	err := s.db.View(func(tx *bbolt.Tx) error {
		run, err := runBucket(tx, runID)
		if err != nil {
			return err
		}
		pages, err = readAll[migration.Page](run.Bucket(pagesBucket))
		return err
	})
	return pages, err
}

func runBucket(tx *bbolt.Tx, runID string) (*bbolt.Bucket, error) {
	run := tx.Bucket(runsBucket).Bucket([]byte(runID))
	if run == nil {
		return nil, fmt.Errorf("run %q: %w", runID, domain.ErrNotFound)
	}
	return run, nil
}

func putJSON(b *bbolt.Bucket, key []byte, v any) error {
	if b == nil {
		return errors.New("audit: bucket missing")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	return b.Put(key, data)
}

func readAll[T any](b *bbolt.Bucket) ([]T, error) {
	var out []T
	err := b.ForEach(func(_, v []byte) error {
		var item T
		if err := json.Unmarshal(v, &item); err != nil {
			return err
		}
		out = append(out, item)
		return nil
	})
	return out, err
}

// seqKey encodes n big-endian so byte order matches numeric order.
func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}
