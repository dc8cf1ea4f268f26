package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/fairprobe/internal/bias"
	"github.com/raphaelgruber/fairprobe/internal/metrics"
	"github.com/raphaelgruber/fairprobe/internal/models"
	"github.com/raphaelgruber/fairprobe/internal/population"
	"github.com/raphaelgruber/fairprobe/internal/predict"
)

// Progress ceilings per stage. Generation fills 0-20, querying 20-80,
// analysis closes out to 100.
const (
	progressGenerated = 20
	progressQueried   = 80
	progressDone      = 100
)

// run executes the pipeline for one job on a background goroutine. The job
// waits in created until a pipeline slot frees up; the wall-clock ceiling
// starts once it holds one.
func (s *AnalysisService) run(jobID string) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("analysis goroutine panicked", "job_id", jobID, "panic", r)
			s.failJob(context.Background(), jobID, fmt.Errorf("internal panic: %v", r))
		}
	}()

	if err := s.jobs.Acquire(context.Background(), 1); err != nil {
		s.failJob(context.Background(), jobID, err)
		return
	}
	defer s.jobs.Release(1)

	timeout := s.cfg.JobTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.execute(ctx, jobID); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: job exceeded the %s wall clock", models.ErrTimeout, timeout)
		}
		// The job context may already be dead; failure writes get a
		// fresh one.
		s.failJob(context.Background(), jobID, err)
	}
}

// execute walks the job through its stages, persisting status, progress, and
// stage output at each boundary before starting the next.
func (s *AnalysisService) execute(ctx context.Context, jobID string) error {
	job, err := s.store.GetAnalysisJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: job %s vanished before start", models.ErrNotFound, jobID)
	}

	count := job.Options.Count
	if count <= 0 {
		count = s.cfg.PopulationSize
	}

	status := job.Status
	if err := s.setStatus(ctx, jobID, status, models.StatusGeneratingData, nil); err != nil {
		return err
	}
	status = models.StatusGeneratingData

	genStart := time.Now()
	inputs, err := population.Generate(count, s.schema, population.Options{Seed: job.Options.Seed})
	if err != nil {
		return err
	}
	s.metrics.RecordTiming(metrics.OpGenerate, time.Since(genStart))
	slog.Info("population generated", "job_id", jobID, "records", len(inputs))

	if err := s.setStatus(ctx, jobID, status, models.StatusQueryingModel, map[string]any{
		"synthetic_inputs": inputs,
		"progress":         progressGenerated,
	}); err != nil {
		return err
	}
	status = models.StatusQueryingModel

	outputs, err := s.queryModel(ctx, jobID, job.TargetEndpoint, inputs)
	if err != nil {
		return err
	}

	if err := s.setStatus(ctx, jobID, status, models.StatusAnalyzing, nil); err != nil {
		return err
	}
	status = models.StatusAnalyzing

	analyzeStart := time.Now()
	result, err := bias.Analyze(inputs, outputs, s.schema, s.cfg.DecisionThreshold)
	if err != nil {
		return err
	}
	s.metrics.RecordTiming(metrics.OpAnalyze, time.Since(analyzeStart))

	if err := s.setStatus(ctx, jobID, status, models.StatusCompleted, map[string]any{
		"results":      result,
		"progress":     progressDone,
		"completed_at": time.Now().UTC(),
	}); err != nil {
		return err
	}

	slog.Info("analysis completed",
		"job_id", jobID,
		"overall_bias", result.OverallBiasScore,
		"outputs", len(outputs),
		"inputs", len(inputs))
	s.logRunMetrics(jobID)
	return nil
}

// queryModel probes the endpoint with every input record. Successful
// outcomes are appended to the job as they arrive; progress for dropped
// records is persisted on a debounce so a lossy endpoint still moves the
// bar.
func (s *AnalysisService) queryModel(ctx context.Context, jobID, endpoint string, inputs []models.FeatureRecord) ([]models.OutcomeRecord, error) {
	total := len(inputs)
	lastWrite := time.Now()

	onResult := func(outcome *models.OutcomeRecord, attempted, _ int) {
		progress := progressGenerated + (progressQueried-progressGenerated)*attempted/total

		if outcome != nil {
			if err := s.store.AppendModelOutput(ctx, jobID, *outcome, progress); err != nil {
				slog.Warn("failed to persist model output", "job_id", jobID, "record_id", outcome.RecordID, "error", err)
				return
			}
			lastWrite = time.Now()
			return
		}

		// Debounce plain progress writes - every 5 seconds, every 10
		// records, or on the final one.
		if time.Since(lastWrite) > 5*time.Second || attempted%10 == 0 || attempted == total {
			if err := s.store.UpdateAnalysisJob(ctx, jobID, map[string]any{"progress": progress}); err != nil {
				slog.Warn("failed to persist job progress", "job_id", jobID, "error", err)
				return
			}
			lastWrite = time.Now()
		}
	}

	outputs, err := s.client.InvokeAll(ctx, endpoint, inputs, predict.Options{
		Concurrency:       s.cfg.Concurrency,
		DropRateThreshold: s.cfg.DropRateThreshold,
		OnResult:          onResult,
	})
	if err != nil {
		return nil, err
	}
	return outputs, nil
}

// setStatus transitions a job and persists the new status together with any
// extra fields in a single write.
func (s *AnalysisService) setStatus(ctx context.Context, jobID string, from, to models.JobStatus, extra map[string]any) error {
	if !models.CanTransition(from, to) {
		return fmt.Errorf("illegal status transition %s to %s", from, to)
	}

	fields := map[string]any{"status": string(to)}
	for k, v := range extra {
		fields[k] = v
	}
	if err := s.store.UpdateAnalysisJob(ctx, jobID, fields); err != nil {
		return fmt.Errorf("persist status %s: %w", to, err)
	}

	slog.Info("analysis stage", "job_id", jobID, "status", to)
	return nil
}

// failJob records the terminal failure state with a sanitized detail string.
func (s *AnalysisService) failJob(ctx context.Context, jobID string, cause error) {
	fields := map[string]any{
		"status":       string(models.StatusFailed),
		"error_detail": sanitizeError(cause),
		"completed_at": time.Now().UTC(),
	}
	if err := s.store.UpdateAnalysisJob(ctx, jobID, fields); err != nil {
		slog.Error("failed to persist job failure", "job_id", jobID, "error", err)
	}
	slog.Error("analysis failed", "job_id", jobID, "error", cause)
}

// sanitizeError renders a cause as a single bounded line fit for storage and
// table display.
func sanitizeError(err error) string {
	const maxDetail = 500

	detail := strings.Join(strings.Fields(err.Error()), " ")
	if len(detail) > maxDetail {
		detail = detail[:maxDetail]
	}
	return detail
}

// logRunMetrics surfaces the collector state after a finished run.
func (s *AnalysisService) logRunMetrics(jobID string) {
	snap := s.metrics.Snapshot()
	if snap.ModelInvoke == nil {
		return
	}
	slog.Debug("run metrics",
		"job_id", jobID,
		"invoke_count", snap.ModelInvoke.Count,
		"invoke_avg_ms", snap.ModelInvoke.AvgTimeMs,
		"retries", *snap.ModelInvoke.Retries,
		"drops", *snap.ModelInvoke.Drops)
}
