package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/raphaelgruber/fairprobe/internal/db"
	"github.com/raphaelgruber/fairprobe/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// fakeStore is an in-memory Store that captures every write, so pipeline
// tests can assert on the exact transition and progress sequences.
type fakeStore struct {
	mu   sync.Mutex
	jobs map[string]*models.AnalysisJob

	created       int
	statusTrail   []models.JobStatus
	progressTrail []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*models.AnalysisJob)}
}

func cloneJob(j *models.AnalysisJob) *models.AnalysisJob {
	c := *j
	c.SyntheticInputs = append([]models.FeatureRecord(nil), j.SyntheticInputs...)
	c.ModelOutputs = append([]models.OutcomeRecord(nil), j.ModelOutputs...)
	return &c
}

func (f *fakeStore) CreateAnalysisJob(_ context.Context, id, targetEndpoint string, options models.JobOptions) (*models.AnalysisJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	job := &models.AnalysisJob{
		ID:              surrealmodels.RecordID{Table: "analysis_job", ID: id},
		TargetEndpoint:  targetEndpoint,
		Status:          models.StatusCreated,
		Options:         options,
		SyntheticInputs: []models.FeatureRecord{},
		ModelOutputs:    []models.OutcomeRecord{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.jobs[id] = job
	f.created++
	return cloneJob(job), nil
}

func (f *fakeStore) GetAnalysisJob(_ context.Context, id string) (*models.AnalysisJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	return cloneJob(job), nil
}

func (f *fakeStore) UpdateAnalysisJob(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("unknown job %s", id)
	}
	for k, v := range fields {
		switch k {
		case "status":
			job.Status = models.JobStatus(v.(string))
			f.statusTrail = append(f.statusTrail, job.Status)
		case "progress":
			job.Progress = v.(int)
			f.progressTrail = append(f.progressTrail, job.Progress)
		case "synthetic_inputs":
			job.SyntheticInputs = v.([]models.FeatureRecord)
		case "results":
			job.Results = v.(*models.AnalysisResult)
		case "error_detail":
			detail := v.(string)
			job.ErrorDetail = &detail
		case "completed_at":
			ts := v.(time.Time)
			job.CompletedAt = &ts
		default:
			return fmt.Errorf("unexpected field %q", k)
		}
	}
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeStore) AppendModelOutput(_ context.Context, id string, record models.OutcomeRecord, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("unknown job %s", id)
	}
	job.ModelOutputs = append(job.ModelOutputs, record)
	job.Progress = progress
	job.UpdatedAt = time.Now().UTC()
	f.progressTrail = append(f.progressTrail, progress)
	return nil
}

func (f *fakeStore) ListAnalysisJobs(_ context.Context, opts db.ListOptions) ([]models.AnalysisSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	jobs := make([]*models.AnalysisJob, 0, len(f.jobs))
	for _, j := range f.jobs {
		if opts.Status != nil && j.Status != *opts.Status {
			continue
		}
		jobs = append(jobs, j)
	}
	slices.SortFunc(jobs, func(a, b *models.AnalysisJob) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	out := []models.AnalysisSummary{}
	for i := opts.Skip; i < len(jobs) && len(out) < limit; i++ {
		j := jobs[i]
		sum := models.AnalysisSummary{
			ID:             j.ID,
			TargetEndpoint: j.TargetEndpoint,
			Status:         j.Status,
			Progress:       j.Progress,
			ErrorDetail:    j.ErrorDetail,
			CreatedAt:      j.CreatedAt,
			CompletedAt:    j.CompletedAt,
		}
		if j.Results != nil {
			score := j.Results.OverallBiasScore
			sum.OverallBiasScore = &score
		}
		out = append(out, sum)
	}
	return out, nil
}

func (f *fakeStore) MarkStaleJobsFailed(_ context.Context, olderThanSecs int, detail string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().Add(-time.Duration(olderThanSecs) * time.Second)
	var ids []string
	for id, j := range f.jobs {
		if j.Status.IsTerminal() || j.UpdatedAt.After(cutoff) {
			continue
		}
		j.Status = models.StatusFailed
		d := detail
		j.ErrorDetail = &d
		now := time.Now().UTC()
		j.CompletedAt = &now
		j.UpdatedAt = now
		ids = append(ids, id)
	}
	return ids, nil
}

// get returns the current state of a job, or nil.
func (f *fakeStore) get(id string) *models.AnalysisJob {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return nil
	}
	return cloneJob(job)
}

// trails returns the recorded status and progress write sequences.
func (f *fakeStore) trails() ([]models.JobStatus, []int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.statusTrail), slices.Clone(f.progressTrail)
}

// setUpdatedAt backdates a job for sweep tests.
func (f *fakeStore) setUpdatedAt(id string, ts time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if job, ok := f.jobs[id]; ok {
		job.UpdatedAt = ts
	}
}
