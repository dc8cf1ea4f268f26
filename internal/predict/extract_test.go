package predict

import "testing"

func TestExtractScore(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    float64
		ok      bool
	}{
		{"numeric prediction", map[string]any{"prediction": 0.73}, 0.73, true},
		{"prediction wins over score", map[string]any{"prediction": 0.2, "score": 0.9}, 0.2, true},
		{"score fallback", map[string]any{"score": 0.9}, 0.9, true},
		{"probability", map[string]any{"probability": 0.31}, 0.31, true},
		{"output", map[string]any{"output": 1.0}, 1, true},
		{"numeric result", map[string]any{"result": 0.5}, 0.5, true},
		{"int64 value", map[string]any{"prediction": int64(1)}, 1, true},
		{"bool prediction", map[string]any{"prediction": true}, 1, true},
		{"clamped above one", map[string]any{"score": 3.2}, 1, true},
		{"clamped below zero", map[string]any{"score": -0.4}, 0, true},
		{"numeric beats label", map[string]any{"label": "rejected", "prediction": 0.8}, 0.8, true},
		{"label approved", map[string]any{"label": "approved"}, 1, true},
		{"decision denied", map[string]any{"decision": "denied"}, 0, true},
		{"outcome mixed case", map[string]any{"outcome": "YES"}, 1, true},
		{"label with whitespace", map[string]any{"label": " granted "}, 1, true},
		{"string result uses token table", map[string]any{"result": "rejected"}, 0, true},
		{"class bool", map[string]any{"class": false}, 0, true},
		{"unknown label token", map[string]any{"label": "maybe"}, 0, false},
		{"string under numeric-only field", map[string]any{"prediction": "approved"}, 0, false},
		{"nested object not probed", map[string]any{"prediction": map[string]any{"value": 0.5}}, 0, false},
		{"no recognized fields", map[string]any{"foo": 1.0, "bar": "x"}, 0, false},
		{"empty payload", map[string]any{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractScore(tt.payload)
			if ok != tt.ok || got != tt.want {
				t.Errorf("extractScore(%v) = (%v, %v), want (%v, %v)", tt.payload, got, ok, tt.want, tt.ok)
			}
		})
	}
}
