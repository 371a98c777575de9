// Package pipeline runs an issue through the vision, analysis and triage
// stages and writes the outcome back to the issue.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"meriawaaz-be/metrics"
	"meriawaaz-be/models"
	"meriawaaz-be/repository"
	"meriawaaz-be/worker"
)

// ErrIssueNotFound is terminal: the issue will not be retried.
var ErrIssueNotFound = errors.New("issue not found")

type Options struct {
	// RunTimeout bounds a whole run, StageTimeout each stage call. Zero
	// disables the bound.
	RunTimeout   time.Duration
	StageTimeout time.Duration
	// Limiter, when set, gates every stage call.
	Limiter *rate.Limiter
}

// Result is the outcome of a successful run.
type Result struct {
	IssueID     string               `json:"issueId"`
	AISummary   string               `json:"aiSummary"`
	Priority    models.Priority      `json:"priority"`
	Category    models.IssueCategory `json:"category"`
	ProcessedAt time.Time            `json:"processedAt"`
}

type Orchestrator struct {
	issues   repository.IssueRepository
	vision   VisionStage
	analysis AnalysisStage
	triage   TriageStage
	opts     Options
	metrics  metrics.Recorder
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewOrchestrator(
	issues repository.IssueRepository,
	vision VisionStage,
	analysis AnalysisStage,
	triage TriageStage,
	opts Options,
	rec metrics.Recorder,
	log *zap.SugaredLogger,
) *Orchestrator {
	if rec == nil {
		rec = metrics.Nop
	}
	return &Orchestrator{
		issues:   issues,
		vision:   vision,
		analysis: analysis,
		triage:   triage,
		opts:     opts,
		metrics:  rec,
		log:      log,
		now:      time.Now,
	}
}

// Process runs the pipeline for one issue. On failure the issue is left in
// processingStatus=error with the failure message, and the error is
// returned.
func (o *Orchestrator) Process(ctx context.Context, issueID string) (*Result, error) {
	start := o.now()
	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.RunTimeout)
		defer cancel()
	}

	o.log.Infow("starting AI processing", "issue_id", issueID)

	result, err := o.run(ctx, issueID)
	switch {
	case errors.Is(err, ErrIssueNotFound):
		o.log.Warnw("issue vanished before processing", "issue_id", issueID)
		o.metrics.RecordPipelineRun("not_found", o.now().Sub(start))
		return nil, err
	case err != nil:
		o.log.Errorw("AI processing failed", "issue_id", issueID, "error", err)
		o.markFailed(issueID, err)
		o.metrics.RecordPipelineRun("error", o.now().Sub(start))
		return nil, err
	}

	o.log.Infow("AI processing completed",
		"issue_id", issueID,
		"priority", result.Priority,
		"category", result.Category,
		"duration", o.now().Sub(start),
	)
	o.metrics.RecordPipelineRun("triaged", o.now().Sub(start))
	return result, nil
}

// Task adapts Process to a worker task. A missing issue counts as done.
func (o *Orchestrator) Task() worker.ProcessFunc {
	return func(ctx context.Context, issueID string) error {
		_, err := o.Process(ctx, issueID)
		if errors.Is(err, ErrIssueNotFound) {
			return nil
		}
		return err
	}
}

func (o *Orchestrator) run(ctx context.Context, issueID string) (*Result, error) {
	processing := models.ProcessingInProgress
	if err := o.issues.Update(ctx, issueID, repository.IssuePatch{ProcessingStatus: &processing}); err != nil {
		return nil, notFoundOr(issueID, err, "mark processing")
	}

	issue, err := o.issues.Get(ctx, issueID)
	if err != nil {
		return nil, notFoundOr(issueID, err, "fetch issue")
	}

	imageSummary := ""
	if mediaURL := issue.PrimaryMediaURL(); mediaURL != "" {
		vision, err := runStage(ctx, o, "vision", func(ctx context.Context) (*VisionResult, error) {
			return o.vision.Describe(ctx, mediaURL)
		})
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(vision)
		if err != nil {
			return nil, fmt.Errorf("encode vision result: %w", err)
		}
		imageSummary = string(encoded)
	}

	analysis, err := runStage(ctx, o, "analysis", func(ctx context.Context) (*AnalysisResult, error) {
		return o.analysis.Analyze(ctx, AnalysisInput{
			Description:  issue.Description,
			ImageSummary: imageSummary,
		})
	})
	if err != nil {
		return nil, err
	}

	location := Location{Address: issue.Address}
	if issue.Location != nil {
		lat, lon := issue.Location.Latitude, issue.Location.Longitude
		location.Latitude, location.Longitude = &lat, &lon
	}
	triage, err := runStage(ctx, o, "triage", func(ctx context.Context) (*TriageResult, error) {
		return o.triage.Triage(ctx, TriageInput{
			Analysis:    *analysis,
			Description: issue.Description,
			Location:    location,
		})
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		IssueID:     issueID,
		AISummary:   analysis.AISummary,
		Priority:    models.NormalizePriority(triage.Priority),
		Category:    models.NormalizeCategory(triage.Category),
		ProcessedAt: o.now().UTC(),
	}

	triaged := models.ProcessingTriaged
	cleared := ""
	err = o.issues.Update(ctx, issueID, repository.IssuePatch{
		AISummary:        &result.AISummary,
		Priority:         &result.Priority,
		Category:         &result.Category,
		ProcessingStatus: &triaged,
		ProcessingError:  &cleared,
	})
	if err != nil {
		return nil, notFoundOr(issueID, err, "write AI results")
	}
	return result, nil
}

func runStage[T any](ctx context.Context, o *Orchestrator, name string, call func(context.Context) (*T, error)) (*T, error) {
	if o.opts.Limiter != nil {
		if err := o.opts.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s stage: %w", name, err)
		}
	}

	stageCtx := ctx
	if o.opts.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, o.opts.StageTimeout)
		defer cancel()
	}

	start := o.now()
	out, err := call(stageCtx)
	if err == nil && out == nil {
		err = errors.New("empty result")
	}
	o.metrics.RecordStage(name, o.now().Sub(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s stage: %w", name, err)
	}

	o.log.Debugw("stage completed", "stage", name, "duration", o.now().Sub(start))
	return out, nil
}

// markFailed records the failure on the issue. It uses its own context so a
// cancelled or timed out run can still be recorded.
func (o *Orchestrator) markFailed(issueID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status := models.ProcessingError
	msg := cause.Error()
	err := o.issues.Update(ctx, issueID, repository.IssuePatch{
		ProcessingStatus: &status,
		ProcessingError:  &msg,
	})
	if err != nil {
		o.log.Errorw("failed to record processing error", "issue_id", issueID, "error", err)
	}
}

func notFoundOr(issueID string, err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", op, issueID, ErrIssueNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, issueID, err)
}
