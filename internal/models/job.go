// Package models defines the shared data contracts for fairprobe analyses.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobStatus represents the lifecycle state of an analysis job.
type JobStatus string

const (
	StatusCreated        JobStatus = "created"
	StatusGeneratingData JobStatus = "generating_data"
	StatusQueryingModel  JobStatus = "querying_model"
	StatusAnalyzing      JobStatus = "analyzing"
	StatusCompleted      JobStatus = "completed"
	StatusFailed         JobStatus = "failed"
)

// IsTerminal reports whether the status is a terminal state.
// Terminal jobs are immutable.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// forward holds the single legal forward transition for each non-terminal state.
var forward = map[JobStatus]JobStatus{
	StatusCreated:        StatusGeneratingData,
	StatusGeneratingData: StatusQueryingModel,
	StatusQueryingModel:  StatusAnalyzing,
	StatusAnalyzing:      StatusCompleted,
}

// CanTransition reports whether from → to is a legal status transition.
// The state machine is strictly forward: each stage advances to exactly one
// successor, and any non-terminal state may fail.
func CanTransition(from, to JobStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return forward[from] == to
}

// AnalysisJob is the persisted unit of work: one bias-analysis run against
// one target endpoint. Mutated exclusively by the orchestrator.
type AnalysisJob struct {
	ID              surrealmodels.RecordID `json:"id"`
	TargetEndpoint  string                 `json:"target_endpoint"`
	Status          JobStatus              `json:"status"`
	Progress        int                    `json:"progress"`
	Options         JobOptions             `json:"options"`
	SyntheticInputs []FeatureRecord        `json:"synthetic_inputs"`
	ModelOutputs    []OutcomeRecord        `json:"model_outputs"`
	Results         *AnalysisResult        `json:"results,omitempty"`
	ErrorDetail     *string                `json:"error_detail,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
}

// JobOptions records the generation parameters a job was started with,
// so a run can be inspected and repeated.
type JobOptions struct {
	Count int    `json:"count"`
	Seed  *int64 `json:"seed,omitempty"`
}

// FeatureRecord is one synthetic input: a full feature vector for a single
// simulated individual. Values are float64 for numeric features and string
// for categorical ones.
type FeatureRecord struct {
	RecordID    string         `json:"record_id"`
	Features    map[string]any `json:"features"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// OutcomeRecord is the model's answer for one FeatureRecord. RawResponse
// keeps the body as returned; DecisionScore is the extracted scalar in [0,1].
type OutcomeRecord struct {
	RecordID      string         `json:"record_id"`
	RawResponse   map[string]any `json:"raw_response"`
	DecisionScore float64        `json:"decision_score"`
	ReceivedAt    time.Time      `json:"received_at"`
}

// AnalysisSummary is the list-view projection of a job: scalar fields only,
// without the input/output arrays.
type AnalysisSummary struct {
	ID               surrealmodels.RecordID `json:"id"`
	TargetEndpoint   string                 `json:"target_endpoint"`
	Status           JobStatus              `json:"status"`
	Progress         int                    `json:"progress"`
	OverallBiasScore *float64               `json:"overall_bias_score,omitempty"`
	ErrorDetail      *string                `json:"error_detail,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
}
