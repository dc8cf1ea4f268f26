// Package report assembles the renderable payload for a finished analysis.
// Rendering beyond the operational JSON form stays outside this module; the
// Renderer interface is the seam external layout engines plug into.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/raphaelgruber/fairprobe/internal/models"
)

// Artifact bundles a job's computed results with the metadata a report
// needs for context. It is the renderer's input, not a layout.
type Artifact struct {
	JobID          string                 `json:"job_id"`
	TargetEndpoint string                 `json:"target_endpoint"`
	Options        models.JobOptions      `json:"options"`
	InputCount     int                    `json:"input_count"`
	OutputCount    int                    `json:"output_count"`
	Results        *models.AnalysisResult `json:"results"`
	CreatedAt      time.Time              `json:"created_at"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// Build assembles the artifact for a job. Only completed jobs carry results,
// so any other status returns models.ErrNotReady.
func Build(job *models.AnalysisJob) (*Artifact, error) {
	id, err := models.RecordIDString(job.ID)
	if err != nil {
		return nil, fmt.Errorf("job id: %w", err)
	}
	if job.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: job %s is %s", models.ErrNotReady, id, job.Status)
	}
	if job.Results == nil {
		return nil, fmt.Errorf("job %s is completed but has no results", id)
	}

	return &Artifact{
		JobID:          id,
		TargetEndpoint: job.TargetEndpoint,
		Options:        job.Options,
		InputCount:     len(job.SyntheticInputs),
		OutputCount:    len(job.ModelOutputs),
		Results:        job.Results,
		CreatedAt:      job.CreatedAt,
		CompletedAt:    job.CompletedAt,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// Renderer turns an artifact into one concrete output form.
type Renderer interface {
	// Render writes the artifact to w.
	Render(w io.Writer, a *Artifact) error
	// Ext is the file extension for rendered output, without the dot.
	Ext() string
}

// JSONRenderer emits the artifact as indented JSON. This is the operational
// renderer the CLI ships with.
type JSONRenderer struct{}

func (JSONRenderer) Render(w io.Writer, a *Artifact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("render report %s: %w", a.JobID, err)
	}
	return nil
}

func (JSONRenderer) Ext() string { return "json" }
