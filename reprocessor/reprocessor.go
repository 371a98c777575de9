// Package reprocessor retries issues whose pipeline run failed.
package reprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"meriawaaz-be/metrics"
	"meriawaaz-be/models"
	"meriawaaz-be/repository"
	"meriawaaz-be/worker"
)

type Options struct {
	// StaleAfter is how long an issue must have sat in error before retry.
	StaleAfter time.Duration
	// BatchSize caps the retries per run.
	BatchSize int
	// ScanLimit caps how many stale error records one run reads.
	ScanLimit int
}

func (o Options) withDefaults() Options {
	if o.StaleAfter <= 0 {
		o.StaleAfter = time.Hour
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.ScanLimit <= 0 {
		o.ScanLimit = 500
	}
	return o
}

type Failure struct {
	IssueID string `json:"issueId"`
	Error   string `json:"error"`
}

// Report summarises one run.
type Report struct {
	Scanned    int       `json:"scanned"`
	Stale      int       `json:"stale"`
	Dispatched []string  `json:"dispatched"`
	Failures   []Failure `json:"failures"`
}

type Reprocessor struct {
	issues     repository.IssueRepository
	dispatcher worker.Dispatcher
	opts       Options
	metrics    metrics.Recorder
	log        *zap.SugaredLogger
	now        func() time.Time
}

func New(issues repository.IssueRepository, dispatcher worker.Dispatcher, opts Options, rec metrics.Recorder, log *zap.SugaredLogger) *Reprocessor {
	if rec == nil {
		rec = metrics.Nop
	}
	return &Reprocessor{
		issues:     issues,
		dispatcher: dispatcher,
		opts:       opts.withDefaults(),
		metrics:    rec,
		log:        log,
		now:        time.Now,
	}
}

// RunOnce resets up to BatchSize stale failed issues to pending and
// schedules them again. Candidates are taken in list order, newest first.
// The staleness cutoff is part of the query, so recent failures never use
// up the scan limit. A failure on one issue is recorded and the batch
// continues.
func (r *Reprocessor) RunOnce(ctx context.Context) (Report, error) {
	cutoff := r.now().Add(-r.opts.StaleAfter)
	failed, err := r.issues.List(ctx, repository.ListFilter{
		ProcessingStatus: string(models.ProcessingError),
		UpdatedBefore:    cutoff,
		Limit:            r.opts.ScanLimit,
	})
	if err != nil {
		return Report{}, fmt.Errorf("list failed issues: %w", err)
	}

	report := Report{Scanned: len(failed), Dispatched: []string{}, Failures: []Failure{}}

	batch := make([]*models.Issue, 0, r.opts.BatchSize)
	for _, issue := range failed {
		if issue.ProcessingStatus != models.ProcessingError || !issue.UpdatedAt.Before(cutoff) {
			continue
		}
		report.Stale++
		if len(batch) < r.opts.BatchSize {
			batch = append(batch, issue)
		}
	}

	for _, issue := range batch {
		if err := r.retry(ctx, issue.ID); err != nil {
			r.log.Errorw("failed to reprocess issue", "issue_id", issue.ID, "error", err)
			report.Failures = append(report.Failures, Failure{IssueID: issue.ID, Error: err.Error()})
			continue
		}
		report.Dispatched = append(report.Dispatched, issue.ID)
	}

	r.metrics.RecordReprocess("dispatched", len(report.Dispatched))
	r.metrics.RecordReprocess("failed", len(report.Failures))
	r.log.Infow("reprocessor run finished",
		"scanned", report.Scanned,
		"stale", report.Stale,
		"dispatched", len(report.Dispatched),
		"failed", len(report.Failures),
	)
	return report, nil
}

func (r *Reprocessor) retry(ctx context.Context, issueID string) error {
	pending := models.ProcessingPending
	if err := r.issues.Update(ctx, issueID, repository.IssuePatch{ProcessingStatus: &pending}); err != nil {
		return fmt.Errorf("reset to pending: %w", err)
	}

	if err := r.dispatcher.Dispatch(ctx, issueID); err != nil {
		// Put it back in error so a later run picks it up again.
		status := models.ProcessingError
		msg := fmt.Sprintf("reprocess dispatch failed: %v", err)
		if uerr := r.issues.Update(ctx, issueID, repository.IssuePatch{ProcessingStatus: &status, ProcessingError: &msg}); uerr != nil {
			r.log.Errorw("failed to restore error status", "issue_id", issueID, "error", uerr)
		}
		return fmt.Errorf("dispatch: %w", err)
	}
	return nil
}

// Schedule registers RunOnce to run every interval. Runs never overlap.
func (r *Reprocessor) Schedule(s *gocron.Scheduler, interval time.Duration) (*gocron.Job, error) {
	return s.Every(interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.Errorw("reprocessor run failed", "error", err)
		}
	})
}
