package population

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/raphaelgruber/fairprobe/internal/models"
)

// Options configures a generation run.
type Options struct {
	// Seed makes the draw sequence reproducible. Nil draws a fresh seed.
	Seed *int64
}

// Generate produces exactly count feature records for the given schema.
// Every record carries a value for every schema feature. For each protected
// attribute with k categories the generated population holds at least
// ceil(count/(2k)) records per category whenever count >= 2k, so later group
// comparisons never degenerate into empty or near-empty cells.
func Generate(count int, schema *Schema, opts Options) ([]models.FeatureRecord, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", models.ErrConfiguration, count)
	}
	if schema == nil {
		return nil, fmt.Errorf("%w: schema is required", models.ErrConfiguration)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if opts.Seed != nil {
		s := uint64(*opts.Seed)
		rng = rand.New(rand.NewPCG(s, s))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	// Protected attributes are assigned by stratified quota up front so the
	// per-category floor holds exactly, not just in expectation.
	assignments := make(map[string][]string)
	for _, f := range schema.Features {
		if f.Kind == FeatureCategorical && f.Protected {
			assignments[f.Name] = stratifiedAssign(rng, f, count)
		}
	}

	now := time.Now().UTC()
	records := make([]models.FeatureRecord, count)
	for i := 0; i < count; i++ {
		features := make(map[string]any, len(schema.Features))
		for _, f := range schema.Features {
			switch f.Kind {
			case FeatureNumeric:
				features[f.Name] = sampleNumeric(rng, f)
			case FeatureCategorical:
				if f.Protected {
					features[f.Name] = assignments[f.Name][i]
				} else {
					features[f.Name] = f.Values[weightedIndex(rng, f.Weights, len(f.Values))]
				}
			}
		}
		records[i] = models.FeatureRecord{
			RecordID:    fmt.Sprintf("input_%d", i),
			Features:    features,
			GeneratedAt: now,
		}
	}
	return records, nil
}

// stratifiedAssign builds the category assignment for one protected
// attribute: a minimum quota of ceil(count/(2k)) per category (when the
// population is large enough to afford it), the remainder drawn by the
// configured weights, and the whole sequence shuffled.
func stratifiedAssign(rng *rand.Rand, f Feature, count int) []string {
	k := len(f.Values)
	counts := make([]int, k)

	quota := 0
	if count >= 2*k {
		quota = (count + 2*k - 1) / (2 * k)
	}
	remaining := count
	for i := range counts {
		counts[i] = quota
		remaining -= quota
	}
	for j := 0; j < remaining; j++ {
		counts[weightedIndex(rng, f.Weights, k)]++
	}

	out := make([]string, 0, count)
	for i, c := range counts {
		for j := 0; j < c; j++ {
			out = append(out, f.Values[i])
		}
	}
	rng.Shuffle(len(out), func(a, b int) {
		out[a], out[b] = out[b], out[a]
	})
	return out
}

// weightedIndex draws an index from weights; nil or empty weights mean
// uniform. Weights are assumed validated (non-negative, positive sum).
func weightedIndex(rng *rand.Rand, weights []float64, n int) int {
	if len(weights) == 0 {
		return rng.IntN(n)
	}
	var sum float64
	for _, w := range weights {
		sum += w
	}
	r := rng.Float64() * sum
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}

// sampleNumeric draws one value for a numeric feature. Normal draws center
// on the midpoint with a 3-sigma span and clamp to [min, max]; uniform draws
// cover the range directly. Integer features round to whole values but stay
// float64 so every numeric feature shares one wire type.
func sampleNumeric(rng *rand.Rand, f Feature) float64 {
	span := f.Max - f.Min
	var v float64
	if f.Distribution == "normal" {
		mean := f.Min + span/2
		stddev := span / 6
		v = rng.NormFloat64()*stddev + mean
		v = math.Min(math.Max(v, f.Min), f.Max)
	} else {
		v = f.Min + rng.Float64()*span
	}
	if f.Integer {
		v = math.Round(v)
	}
	return v
}
