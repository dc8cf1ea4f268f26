package predict

import (
	"sort"
	"strings"
)

// scoreFields are probed in priority order for a numeric decision score.
var scoreFields = []string{"prediction", "score", "probability", "output", "result"}

// labelFields are probed in priority order for a categorical decision when
// no numeric field matched.
var labelFields = []string{"label", "decision", "outcome", "result", "class"}

// labelTokens maps categorical decision values to binary scores.
var labelTokens = map[string]float64{
	"approved": 1,
	"accepted": 1,
	"granted":  1,
	"positive": 1,
	"yes":      1,
	"true":     1,
	"rejected": 0,
	"denied":   0,
	"declined": 0,
	"negative": 0,
	"no":       0,
	"false":    0,
}

// extractScore pulls a decision score out of a response body using the
// ordered field probes: numeric-capable fields first, then label fields.
// Returns false when no probe yields a usable value; callers drop the
// record in that case rather than defaulting.
func extractScore(payload map[string]any) (float64, bool) {
	for _, field := range scoreFields {
		v, present := payload[field]
		if !present {
			continue
		}
		if score, ok := numericScore(v); ok {
			return clamp01(score), true
		}
	}

	for _, field := range labelFields {
		v, present := payload[field]
		if !present {
			continue
		}
		if score, ok := labelScore(v); ok {
			return score, true
		}
	}

	return 0, false
}

// numericScore interprets a decoded JSON value as a scalar score.
// Integer types appear when a response round-trips through CBOR.
func numericScore(v any) (float64, bool) {
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
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// labelScore maps a categorical decision value to {0,1} via the token table.
func labelScore(v any) (float64, bool) {
	switch l := v.(type) {
	case string:
		score, ok := labelTokens[strings.ToLower(strings.TrimSpace(l))]
		return score, ok
	case bool:
		if l {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// responseKeys lists a payload's top-level fields for drop diagnostics.
func responseKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
