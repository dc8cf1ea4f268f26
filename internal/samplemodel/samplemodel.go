// Package samplemodel serves a deliberately simplistic scoring endpoint so
// an analysis run has a live model to probe. It is not a real model: the
// score is a fixed weighted sum of a few applicant features.
package samplemodel

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// approvalThreshold separates the approved and rejected labels.
const approvalThreshold = 0.55

// maxBodyBytes caps accepted request bodies.
const maxBodyBytes = 1 << 20

// Prediction is the /predict response body.
type Prediction struct {
	Prediction float64 `json:"prediction"`
	Label      string  `json:"label"`
}

// Score applies the toy rule: each feature contributes its weight scaled by
// how close the value is to a nominal maximum (capped there), and the sum is
// clamped to [0, 1]. Missing and non-numeric features count as zero.
func Score(features map[string]any) Prediction {
	score := 0.15*ratio(features, "age", 80) +
		0.45*ratio(features, "income", 100000) +
		0.35*ratio(features, "credit_score", 850) +
		0.05*ratio(features, "experience_years", 40)

	score = max(0, min(1, score))

	label := "rejected"
	if score >= approvalThreshold {
		label = "approved"
	}
	return Prediction{Prediction: score, Label: label}
}

// ratio divides the named feature by its nominal maximum, capped at 1.
// Negative values pass through; the final clamp in Score catches them.
func ratio(features map[string]any, name string, scale float64) float64 {
	return min(numeric(features[name])/scale, 1)
}

func numeric(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Handler returns the route table: POST /predict and GET /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/predict", handlePredict)
	return mux
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var features map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&features); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	pred := Score(features)
	slog.Debug("scored record", "prediction", pred.Prediction, "label", pred.Label)
	writeJSON(w, http.StatusOK, pred)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
