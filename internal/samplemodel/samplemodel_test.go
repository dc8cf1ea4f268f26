package samplemodel

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		features  map[string]any
		wantScore float64
		wantLabel string
	}{
		{
			name:      "empty features score zero",
			features:  map[string]any{},
			wantScore: 0,
			wantLabel: "rejected",
		},
		{
			name: "all maxed scores one",
			features: map[string]any{
				"age": 80.0, "income": 100000.0, "credit_score": 850.0, "experience_years": 40.0,
			},
			wantScore: 1,
			wantLabel: "approved",
		},
		{
			name: "values above the nominal maximum are capped",
			features: map[string]any{
				"income": 500000.0, "credit_score": 2000.0,
			},
			wantScore: 0.8,
			wantLabel: "approved",
		},
		{
			name: "low income alone rejects",
			features: map[string]any{
				"age": 40.0, "income": 20000.0,
			},
			wantScore: 0.075 + 0.09,
			wantLabel: "rejected",
		},
		{
			name: "negative values clamp at zero",
			features: map[string]any{
				"age": -400.0, "income": 10000.0,
			},
			wantScore: 0,
			wantLabel: "rejected",
		},
		{
			name: "numeric strings are coerced",
			features: map[string]any{
				"income": "100000", "credit_score": "850",
			},
			wantScore: 0.8,
			wantLabel: "approved",
		},
		{
			name: "non-numeric values count as zero",
			features: map[string]any{
				"income": "lots", "credit_score": true, "gender": "female",
			},
			wantScore: 0,
			wantLabel: "rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.features)
			assert.InDelta(t, tt.wantScore, got.Prediction, 1e-9)
			assert.Equal(t, tt.wantLabel, got.Label)
		})
	}
}

func TestPredictEndpoint(t *testing.T) {
	server := httptest.NewServer(Handler())
	defer server.Close()

	body, err := json.Marshal(map[string]any{
		"age": 40, "income": 80000, "credit_score": 700, "experience_years": 10,
	})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/predict", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var pred Prediction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pred))
	// 0.15*0.5 + 0.45*0.8 + 0.35*(700/850) + 0.05*0.25
	assert.InDelta(t, 0.075+0.36+0.35*700/850.0+0.0125, pred.Prediction, 1e-9)
	assert.Equal(t, "approved", pred.Label)
}

func TestPredictRejectsBadRequests(t *testing.T) {
	server := httptest.NewServer(Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/predict", "application/json", strings.NewReader("{broken"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(server.URL + "/predict")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	server := httptest.NewServer(Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "ok", status["status"])
}
