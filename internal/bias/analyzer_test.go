package bias

import (
	"fmt"
	"math"
	"testing"

	"github.com/raphaelgruber/fairprobe/internal/models"
	"github.com/raphaelgruber/fairprobe/internal/population"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *population.Schema {
	return &population.Schema{Features: []population.Feature{
		{Name: "age", Kind: population.FeatureNumeric, Min: 18, Max: 80},
		{Name: "gender", Kind: population.FeatureCategorical, Protected: true, Values: []string{"male", "female"}},
		{Name: "income", Kind: population.FeatureNumeric, Min: 0, Max: 100000},
	}}
}

// buildPopulation pairs every input with an outcome. gender alternates by
// index parity unless overridden.
func buildPopulation(n int, gender func(i int) string, score func(i int) float64) ([]models.FeatureRecord, []models.OutcomeRecord) {
	inputs := make([]models.FeatureRecord, 0, n)
	outputs := make([]models.OutcomeRecord, 0, n)
	for i := 0; i < n; i++ {
		inputs = append(inputs, models.FeatureRecord{
			RecordID: fmt.Sprintf("input_%d", i),
			Features: map[string]any{
				"age":    float64(20 + i),
				"gender": gender(i),
				"income": float64(1000 * (i + 1)),
			},
		})
		outputs = append(outputs, models.OutcomeRecord{
			RecordID:      fmt.Sprintf("input_%d", i),
			DecisionScore: score(i),
		})
	}
	return inputs, outputs
}

func alternatingGender(i int) string {
	if i%2 == 0 {
		return "male"
	}
	return "female"
}

func TestAnalyzeIdenticalRatesZeroParity(t *testing.T) {
	// Both genders approve exactly half their records.
	inputs, outputs := buildPopulation(20, alternatingGender, func(i int) float64 {
		if i%4 < 2 {
			return 0.9
		}
		return 0.1
	})

	result, err := Analyze(inputs, outputs, testSchema(), 0)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, result.OverallBiasScore, 1e-9)
	require.Len(t, result.FairnessMetrics, 2)
	assert.Equal(t, models.MetricDemographicParity, result.FairnessMetrics[0].Name)
	assert.Equal(t, "gender", result.FairnessMetrics[0].Group)
	assert.InDelta(t, 0.0, result.FairnessMetrics[0].Value, 1e-9)
}

func TestAnalyzeMaximalDisparity(t *testing.T) {
	// Males always approved, females never.
	inputs, outputs := buildPopulation(20, alternatingGender, func(i int) float64 {
		if i%2 == 0 {
			return 1.0
		}
		return 0.0
	})

	result, err := Analyze(inputs, outputs, testSchema(), 0)
	require.NoError(t, err)

	require.Len(t, result.FairnessMetrics, 2)
	assert.InDelta(t, 1.0, result.FairnessMetrics[0].Value, 1e-9)
	assert.InDelta(t, 1.0, result.OverallBiasScore, 1e-9)

	gap := result.FairnessMetrics[1]
	assert.Equal(t, models.MetricScoreGap, gap.Name)
	assert.InDelta(t, 1.0, gap.Value, 1e-9)
}

func TestAnalyzeConstantPredictions(t *testing.T) {
	inputs, outputs := buildPopulation(16, alternatingGender, func(int) float64 { return 0.9 })

	result, err := Analyze(inputs, outputs, testSchema(), 0)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, result.OverallBiasScore, 1e-9)
	for _, m := range result.FairnessMetrics {
		assert.InDeltaf(t, 0.0, m.Value, 1e-9, "metric %s/%s", m.Name, m.Group)
	}
	// Constant scores have zero variance, so nothing correlates.
	for _, fi := range result.FeatureInfluence {
		assert.InDeltaf(t, 0.0, fi.Influence, 1e-9, "feature %s", fi.Feature)
	}
	for _, g := range result.GroupOutcomeBreakdown {
		assert.InDeltaf(t, 0.9, g.Value, 1e-9, "group %s", g.Group)
	}
}

func TestAnalyzeMissingCategoryFails(t *testing.T) {
	inputs, outputs := buildPopulation(10, alternatingGender, func(int) float64 { return 0.6 })

	// Keep only male outcomes; every female record becomes unpaired.
	var maleOnly []models.OutcomeRecord
	for i, o := range outputs {
		if i%2 == 0 {
			maleOnly = append(maleOnly, o)
		}
	}

	_, err := Analyze(inputs, maleOnly, testSchema(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
	assert.Contains(t, err.Error(), "gender=female")
}

func TestAnalyzeNoPairsFails(t *testing.T) {
	inputs, _ := buildPopulation(5, alternatingGender, func(int) float64 { return 0.5 })

	_, err := Analyze(inputs, nil, testSchema(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestAnalyzeUnpairedInputsIgnored(t *testing.T) {
	inputs, outputs := buildPopulation(10, alternatingGender, func(i int) float64 {
		if i%2 == 0 {
			return 0.8
		}
		return 0.2
	})
	// Drop two outcomes; both categories keep pairs, stats use the rest.
	trimmed := outputs[:8]

	result, err := Analyze(inputs, trimmed, testSchema(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.OverallBiasScore, 1e-9)
}

func TestAnalyzeMetricAndBreakdownOrdering(t *testing.T) {
	schema := &population.Schema{Features: []population.Feature{
		{Name: "gender", Kind: population.FeatureCategorical, Protected: true, Values: []string{"male", "female"}},
		{Name: "region", Kind: population.FeatureCategorical, Protected: true, Values: []string{"north", "south"}},
	}}

	var inputs []models.FeatureRecord
	var outputs []models.OutcomeRecord
	for i := 0; i < 8; i++ {
		region := "north"
		if i >= 4 {
			region = "south"
		}
		inputs = append(inputs, models.FeatureRecord{
			RecordID: fmt.Sprintf("input_%d", i),
			Features: map[string]any{"gender": alternatingGender(i), "region": region},
		})
		outputs = append(outputs, models.OutcomeRecord{
			RecordID:      fmt.Sprintf("input_%d", i),
			DecisionScore: 0.6,
		})
	}

	result, err := Analyze(inputs, outputs, schema, 0)
	require.NoError(t, err)

	// All parities first in schema order, then all score gaps.
	require.Len(t, result.FairnessMetrics, 4)
	assert.Equal(t, models.MetricDemographicParity, result.FairnessMetrics[0].Name)
	assert.Equal(t, "gender", result.FairnessMetrics[0].Group)
	assert.Equal(t, models.MetricDemographicParity, result.FairnessMetrics[1].Name)
	assert.Equal(t, "region", result.FairnessMetrics[1].Group)
	assert.Equal(t, models.MetricScoreGap, result.FairnessMetrics[2].Name)
	assert.Equal(t, "gender", result.FairnessMetrics[2].Group)
	assert.Equal(t, models.MetricScoreGap, result.FairnessMetrics[3].Name)
	assert.Equal(t, "region", result.FairnessMetrics[3].Group)

	groups := make([]string, 0, len(result.GroupOutcomeBreakdown))
	for _, g := range result.GroupOutcomeBreakdown {
		groups = append(groups, g.Group)
	}
	assert.Equal(t, []string{"gender: male", "gender: female", "region: north", "region: south"}, groups)
}

func TestAnalyzeScoreGap(t *testing.T) {
	// Same positive rate (all positive) but different mean scores: parity
	// stays 0 while the score gap exposes the drift.
	inputs, outputs := buildPopulation(10, alternatingGender, func(i int) float64 {
		if i%2 == 0 {
			return 0.8
		}
		return 0.6
	})

	result, err := Analyze(inputs, outputs, testSchema(), 0)
	require.NoError(t, err)

	require.Len(t, result.FairnessMetrics, 2)
	assert.InDelta(t, 0.0, result.FairnessMetrics[0].Value, 1e-9)
	assert.Equal(t, models.MetricScoreGap, result.FairnessMetrics[1].Name)
	assert.InDelta(t, 0.2, result.FairnessMetrics[1].Value, 1e-9)
	assert.InDelta(t, 0.0, result.OverallBiasScore, 1e-9)
}

func TestAnalyzeThreshold(t *testing.T) {
	// Scores of 0.6 for males, 0.4 for females. At the default cutoff the
	// disparity is total; at 0.7 neither group clears it.
	inputs, outputs := buildPopulation(10, alternatingGender, func(i int) float64 {
		if i%2 == 0 {
			return 0.6
		}
		return 0.4
	})

	result, err := Analyze(inputs, outputs, testSchema(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.FairnessMetrics[0].Value, 1e-9)

	result, err = Analyze(inputs, outputs, testSchema(), 0.7)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, result.FairnessMetrics[0].Value, 1e-9)
}

func TestAnalyzeThresholdIsStrict(t *testing.T) {
	// A score exactly at the cutoff does not count as positive.
	inputs, outputs := buildPopulation(10, alternatingGender, func(i int) float64 {
		if i%2 == 0 {
			return 0.5
		}
		return 0.51
	})

	result, err := Analyze(inputs, outputs, testSchema(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.FairnessMetrics[0].Value, 1e-9)
}

func TestAnalyzeInfluenceRanking(t *testing.T) {
	schema := &population.Schema{Features: []population.Feature{
		{Name: "tracked", Kind: population.FeatureNumeric, Min: 0, Max: 1},
		{Name: "flat", Kind: population.FeatureNumeric, Min: 0, Max: 1},
		{Name: "inverse", Kind: population.FeatureNumeric, Min: 0, Max: 1},
		{Name: "gender", Kind: population.FeatureCategorical, Protected: true, Values: []string{"male", "female"}},
	}}

	// Scores are exact binary fractions so the two unit correlations tie
	// bit-for-bit and the ranking falls back to declaration order.
	var inputs []models.FeatureRecord
	var outputs []models.OutcomeRecord
	for i := 0; i < 9; i++ {
		score := float64(i) / 8
		inputs = append(inputs, models.FeatureRecord{
			RecordID: fmt.Sprintf("input_%d", i),
			Features: map[string]any{
				"tracked": score,
				"flat":    0.5,
				"inverse": 1 - score,
				"gender":  alternatingGender(i),
			},
		})
		outputs = append(outputs, models.OutcomeRecord{
			RecordID:      fmt.Sprintf("input_%d", i),
			DecisionScore: score,
		})
	}

	result, err := Analyze(inputs, outputs, schema, 0)
	require.NoError(t, err)

	// tracked and inverse both correlate with magnitude 1 and tie; schema
	// order breaks the tie. The zero-variance feature ranks last at 0.
	require.Len(t, result.FeatureInfluence, 3)
	assert.Equal(t, "tracked", result.FeatureInfluence[0].Feature)
	assert.InDelta(t, 1.0, result.FeatureInfluence[0].Influence, 1e-9)
	assert.Equal(t, "inverse", result.FeatureInfluence[1].Feature)
	assert.InDelta(t, 1.0, result.FeatureInfluence[1].Influence, 1e-9)
	assert.Equal(t, "flat", result.FeatureInfluence[2].Feature)
	assert.InDelta(t, 0.0, result.FeatureInfluence[2].Influence, 1e-9)
}

func TestAnalyzeInfluenceIsAbsolute(t *testing.T) {
	inputs, outputs := buildPopulation(10, alternatingGender, func(i int) float64 {
		return 1 - float64(i)/9
	})
	// age rises with the index while the score falls, so the raw
	// correlation is negative.
	result, err := Analyze(inputs, outputs, testSchema(), 0)
	require.NoError(t, err)

	var age *models.FeatureInfluence
	for i := range result.FeatureInfluence {
		if result.FeatureInfluence[i].Feature == "age" {
			age = &result.FeatureInfluence[i]
		}
	}
	require.NotNil(t, age)
	assert.Greater(t, age.Influence, 0.99)
}

func TestAnalyzeIntegerFeatureValues(t *testing.T) {
	// Stored records decode integer features as int64.
	var inputs []models.FeatureRecord
	var outputs []models.OutcomeRecord
	for i := 0; i < 10; i++ {
		inputs = append(inputs, models.FeatureRecord{
			RecordID: fmt.Sprintf("input_%d", i),
			Features: map[string]any{
				"age":    int64(20 + i),
				"gender": alternatingGender(i),
				"income": int64(1000 * (i + 1)),
			},
		})
		outputs = append(outputs, models.OutcomeRecord{
			RecordID:      fmt.Sprintf("input_%d", i),
			DecisionScore: float64(i) / 9,
		})
	}

	result, err := Analyze(inputs, outputs, testSchema(), 0)
	require.NoError(t, err)

	require.Len(t, result.FeatureInfluence, 2)
	for _, fi := range result.FeatureInfluence {
		assert.Greaterf(t, fi.Influence, 0.99, "feature %s", fi.Feature)
	}
}

func TestAnalyzeUndeclaredCategory(t *testing.T) {
	inputs, outputs := buildPopulation(8, alternatingGender, func(int) float64 { return 0.7 })
	inputs = append(inputs, models.FeatureRecord{
		RecordID: "input_extra",
		Features: map[string]any{"age": 30.0, "gender": "nonbinary", "income": 500.0},
	})
	outputs = append(outputs, models.OutcomeRecord{RecordID: "input_extra", DecisionScore: 0.7})

	result, err := Analyze(inputs, outputs, testSchema(), 0)
	require.NoError(t, err)

	groups := make([]string, 0, 3)
	for _, g := range result.GroupOutcomeBreakdown {
		groups = append(groups, g.Group)
	}
	assert.Equal(t, []string{"gender: male", "gender: female", "gender: nonbinary"}, groups)
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		ys   []float64
		want float64
	}{
		{"perfect positive", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, 1},
		{"perfect negative", []float64{1, 2, 3, 4}, []float64{8, 6, 4, 2}, -1},
		{"zero variance x", []float64{5, 5, 5}, []float64{1, 2, 3}, 0},
		{"zero variance y", []float64{1, 2, 3}, []float64{5, 5, 5}, 0},
		{"single point", []float64{1}, []float64{2}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pearson(tt.xs, tt.ys)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("pearson() = %v, want %v", got, tt.want)
			}
		})
	}
}
