package models

// Metric names emitted by the analyzer.
const (
	MetricDemographicParity = "demographic_parity"
	MetricScoreGap          = "score_gap"
)

// AnalysisResult holds the computed fairness statistics for a completed job.
// All orderings are deterministic: metrics and breakdown entries follow the
// schema's declaration order, influence is ranked descending.
type AnalysisResult struct {
	OverallBiasScore      float64            `json:"overall_bias_score"`
	FairnessMetrics       []FairnessMetric   `json:"fairness_metrics"`
	FeatureInfluence      []FeatureInfluence `json:"feature_influence"`
	GroupOutcomeBreakdown []GroupOutcome     `json:"group_outcome_breakdown"`
}

// FairnessMetric is one named metric value, optionally scoped to a
// protected attribute.
type FairnessMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Group string  `json:"group,omitempty"`
}

// FeatureInfluence ranks a non-protected feature by the magnitude of its
// association with the decision score.
type FeatureInfluence struct {
	Feature   string  `json:"feature"`
	Influence float64 `json:"influence"`
}

// GroupOutcome is the mean decision score for one protected category,
// labeled "<attribute>: <category>" for display.
type GroupOutcome struct {
	Group string  `json:"group"`
	Value float64 `json:"value"`
}
