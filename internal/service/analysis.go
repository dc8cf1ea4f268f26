// Package service orchestrates bias analysis runs end to end: population
// generation, model probing, fairness analysis, and job state persistence.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/fairprobe/internal/config"
	"github.com/raphaelgruber/fairprobe/internal/db"
	"github.com/raphaelgruber/fairprobe/internal/metrics"
	"github.com/raphaelgruber/fairprobe/internal/models"
	"github.com/raphaelgruber/fairprobe/internal/population"
	"github.com/raphaelgruber/fairprobe/internal/predict"
	"github.com/raphaelgruber/fairprobe/internal/report"
	"golang.org/x/sync/semaphore"
)

// Store is the persistence surface the orchestrator writes through.
// *db.Client implements it; pipeline tests substitute an in-memory fake.
type Store interface {
	CreateAnalysisJob(ctx context.Context, id, targetEndpoint string, options models.JobOptions) (*models.AnalysisJob, error)
	GetAnalysisJob(ctx context.Context, id string) (*models.AnalysisJob, error)
	UpdateAnalysisJob(ctx context.Context, id string, fields map[string]any) error
	AppendModelOutput(ctx context.Context, id string, record models.OutcomeRecord, progress int) error
	ListAnalysisJobs(ctx context.Context, opts db.ListOptions) ([]models.AnalysisSummary, error)
	MarkStaleJobsFailed(ctx context.Context, olderThanSecs int, detail string) ([]string, error)
}

// StartOptions are the caller-tunable parameters for one analysis run.
type StartOptions struct {
	// Count is the synthetic population size; 0 uses the configured default.
	Count int
	// Seed fixes the generator sequence for reproducible populations.
	Seed *int64
}

// AnalysisService runs analysis jobs. The service is the only writer of job
// status, progress, results, and error detail.
type AnalysisService struct {
	store   Store
	cfg     config.Config
	client  *predict.Client
	metrics *metrics.Collector
	schema  *population.Schema

	// jobs bounds how many pipelines run at once; a job waiting for a
	// slot stays in created.
	jobs *semaphore.Weighted

	wg sync.WaitGroup
}

// NewAnalysisService builds the orchestrator. The feature schema is loaded
// once here (config file or built-in default), so schema problems surface at
// startup rather than mid-pipeline.
func NewAnalysisService(store Store, cfg config.Config, collector *metrics.Collector) (*AnalysisService, error) {
	schema := population.Default()
	if cfg.SchemaFile != "" {
		s, err := population.LoadSchemaFile(cfg.SchemaFile)
		if err != nil {
			return nil, err
		}
		schema = s
	}

	if collector == nil {
		collector = metrics.NewCollector()
	}

	maxJobs := cfg.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = 4
	}

	return &AnalysisService{
		store: store,
		cfg:   cfg,
		client: predict.NewClient(predict.Config{
			Timeout:    cfg.RequestTimeout,
			MaxRetries: cfg.MaxRetries,
			Recorder:   collector,
		}),
		metrics: collector,
		schema:  schema,
		jobs:    semaphore.NewWeighted(maxJobs),
	}, nil
}

// Schema returns the feature schema analyses run against.
func (s *AnalysisService) Schema() *population.Schema {
	return s.schema
}

// StartAnalysis validates the target, creates the job record, and schedules
// the pipeline on a background goroutine. It returns as soon as the record
// exists; callers observe progress by polling GetAnalysis.
func (s *AnalysisService) StartAnalysis(ctx context.Context, targetEndpoint string, opts StartOptions) (*models.AnalysisJob, error) {
	endpoint, err := NormalizeEndpoint(targetEndpoint)
	if err != nil {
		return nil, err
	}

	count := opts.Count
	if count == 0 {
		count = s.cfg.PopulationSize
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: population count must be positive, got %d", models.ErrConfiguration, count)
	}

	// Short ID for convenience
	id := uuid.New().String()[:8]
	job, err := s.store.CreateAnalysisJob(ctx, id, endpoint, models.JobOptions{
		Count: count,
		Seed:  opts.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("create analysis job: %w", err)
	}

	jobID, err := models.RecordIDString(job.ID)
	if err != nil {
		return nil, fmt.Errorf("created job id: %w", err)
	}

	slog.Info("analysis started", "job_id", jobID, "endpoint", endpoint, "count", count)

	s.wg.Add(1)
	go s.run(jobID)

	return job, nil
}

// GetAnalysis reads the last persisted snapshot of a job. It never blocks on
// a running pipeline.
func (s *AnalysisService) GetAnalysis(ctx context.Context, jobID string) (*models.AnalysisJob, error) {
	job, err := s.store.GetAnalysisJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: job %s", models.ErrNotFound, jobID)
	}
	return job, nil
}

// ListAnalyses returns job summaries newest first.
func (s *AnalysisService) ListAnalyses(ctx context.Context, opts db.ListOptions) ([]models.AnalysisSummary, error) {
	return s.store.ListAnalysisJobs(ctx, opts)
}

// GetReportArtifact assembles the renderable payload for a completed job.
// Returns models.ErrNotReady while the pipeline is still running.
func (s *AnalysisService) GetReportArtifact(ctx context.Context, jobID string) (*report.Artifact, error) {
	job, err := s.GetAnalysis(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return report.Build(job)
}

// Sweep fails every abandoned job whose last write is older than the cutoff.
// Running jobs refresh updated_at with each progress write and are not
// touched. Returns the ids of the jobs swept.
func (s *AnalysisService) Sweep(ctx context.Context, olderThan time.Duration) ([]string, error) {
	secs := int(olderThan.Seconds())
	if secs < 1 {
		secs = 1
	}

	ids, err := s.store.MarkStaleJobsFailed(ctx, secs, "interrupted")
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		slog.Info("swept stale jobs", "count", len(ids), "older_than", olderThan)
	}
	return ids, nil
}

// Wait blocks until every in-flight pipeline has finished. Used on shutdown
// so background runs are not cut off mid-write.
func (s *AnalysisService) Wait() {
	s.wg.Wait()
}

var _ Store = (*db.Client)(nil)
