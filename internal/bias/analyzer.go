// Package bias computes fairness statistics over paired input and outcome
// records: per-attribute demographic parity and score gap, the overall bias
// score, feature influence ranking, and the per-group outcome breakdown.
package bias

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/raphaelgruber/fairprobe/internal/models"
	"github.com/raphaelgruber/fairprobe/internal/population"
)

// DefaultDecisionThreshold is the score above which a prediction counts as a
// positive outcome.
const DefaultDecisionThreshold = 0.5

type pairedRecord struct {
	features map[string]any
	score    float64
}

// Analyze pairs outcomes to inputs by record id and computes the fairness
// statistics for the run. Every protected category present in the input
// population must have at least one scored record, otherwise the analysis is
// not meaningful and models.ErrInsufficientData is returned.
//
// threshold is the positive-outcome cutoff; values <= 0 fall back to
// DefaultDecisionThreshold. All orderings in the result are deterministic:
// metrics and breakdown entries follow the schema's declaration order,
// influence is ranked by descending magnitude with schema order breaking
// ties.
func Analyze(inputs []models.FeatureRecord, outputs []models.OutcomeRecord, schema *population.Schema, threshold float64) (*models.AnalysisResult, error) {
	if threshold <= 0 {
		threshold = DefaultDecisionThreshold
	}

	scores := make(map[string]float64, len(outputs))
	for _, o := range outputs {
		scores[o.RecordID] = o.DecisionScore
	}

	paired := make([]pairedRecord, 0, len(outputs))
	for _, in := range inputs {
		s, ok := scores[in.RecordID]
		if !ok {
			continue
		}
		paired = append(paired, pairedRecord{features: in.Features, score: s})
	}
	if len(paired) == 0 {
		return nil, fmt.Errorf("%w: no outcome matches any input record", models.ErrInsufficientData)
	}

	protected := schema.Protected()

	var (
		parities  []float64
		metrics   = make([]models.FairnessMetric, 0, 2*len(protected))
		gaps      = make([]models.FairnessMetric, 0, len(protected))
		breakdown = make([]models.GroupOutcome, 0, 4*len(protected))
	)
	for _, attr := range protected {
		cats := orderedCategories(inputs, attr)
		if len(cats) == 0 {
			// Attribute absent from this population; nothing to compare.
			continue
		}

		byCat := make(map[string][]float64, len(cats))
		for _, p := range paired {
			cat, ok := categoryOf(p.features[attr.Name])
			if !ok {
				continue
			}
			byCat[cat] = append(byCat[cat], p.score)
		}
		for _, cat := range cats {
			if len(byCat[cat]) == 0 {
				return nil, fmt.Errorf("%w: protected group %s=%s has no scored records",
					models.ErrInsufficientData, attr.Name, cat)
			}
		}

		rates := make([]float64, 0, len(cats))
		means := make([]float64, 0, len(cats))
		for _, cat := range cats {
			group := byCat[cat]
			rates = append(rates, positiveRate(group, threshold))
			m := mean(group)
			means = append(means, m)
			breakdown = append(breakdown, models.GroupOutcome{
				Group: attr.Name + ": " + cat,
				Value: m,
			})
		}

		parity := slices.Max(rates) - slices.Min(rates)
		parities = append(parities, parity)
		metrics = append(metrics, models.FairnessMetric{
			Name:  models.MetricDemographicParity,
			Value: parity,
			Group: attr.Name,
		})
		gaps = append(gaps, models.FairnessMetric{
			Name:  models.MetricScoreGap,
			Value: slices.Max(means) - slices.Min(means),
			Group: attr.Name,
		})
	}
	metrics = append(metrics, gaps...)

	var overall float64
	if len(parities) > 0 {
		overall = mean(parities)
	}

	return &models.AnalysisResult{
		OverallBiasScore:      overall,
		FairnessMetrics:       metrics,
		FeatureInfluence:      featureInfluence(paired, schema),
		GroupOutcomeBreakdown: breakdown,
	}, nil
}

// featureInfluence ranks the numeric non-protected features by the absolute
// Pearson correlation between their values and the decision score. Records
// missing a usable value for a feature are excluded pairwise from that
// feature's series.
func featureInfluence(paired []pairedRecord, schema *population.Schema) []models.FeatureInfluence {
	numeric := schema.NumericUnprotected()
	influence := make([]models.FeatureInfluence, 0, len(numeric))
	for _, f := range numeric {
		xs := make([]float64, 0, len(paired))
		ys := make([]float64, 0, len(paired))
		for _, p := range paired {
			x, ok := asFloat(p.features[f.Name])
			if !ok {
				continue
			}
			xs = append(xs, x)
			ys = append(ys, p.score)
		}
		influence = append(influence, models.FeatureInfluence{
			Feature:   f.Name,
			Influence: math.Abs(pearson(xs, ys)),
		})
	}
	// Stable sort on the schema-ordered slice keeps declaration order for
	// equal magnitudes.
	sort.SliceStable(influence, func(i, j int) bool {
		return influence[i].Influence > influence[j].Influence
	})
	return influence
}

// orderedCategories returns the categories of attr present in the input
// population: declared schema values first in declaration order, then any
// undeclared values in order of first appearance.
func orderedCategories(inputs []models.FeatureRecord, attr population.Feature) []string {
	declared := make(map[string]bool, len(attr.Values))
	for _, v := range attr.Values {
		declared[v] = true
	}

	present := make(map[string]bool)
	var extras []string
	for _, in := range inputs {
		cat, ok := categoryOf(in.Features[attr.Name])
		if !ok || present[cat] {
			continue
		}
		present[cat] = true
		if !declared[cat] {
			extras = append(extras, cat)
		}
	}

	out := make([]string, 0, len(present))
	for _, v := range attr.Values {
		if present[v] {
			out = append(out, v)
		}
	}
	return append(out, extras...)
}

func categoryOf(v any) (string, bool) {
	switch c := v.(type) {
	case nil:
		return "", false
	case string:
		return c, true
	default:
		return fmt.Sprintf("%v", c), true
	}
}

// asFloat widens the numeric types a feature value can arrive as. The
// integer cases appear when stored records round-trip through CBOR.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func positiveRate(scores []float64, threshold float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var positive int
	for _, s := range scores {
		if s > threshold {
			positive++
		}
	}
	return float64(positive) / float64(len(scores))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// pearson returns the correlation coefficient of two equal-length series.
// Series shorter than two points or with zero variance correlate to 0.
func pearson(xs, ys []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	n := float64(len(xs))

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	r := cov / math.Sqrt(varX*varY)
	if math.IsNaN(r) {
		return 0
	}
	return r
}
