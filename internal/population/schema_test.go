package population

import (
	"errors"
	"testing"

	"github.com/raphaelgruber/fairprobe/internal/models"
)

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr bool
	}{
		{
			name: "valid mixed schema",
			schema: Schema{Features: []Feature{
				{Name: "age", Kind: FeatureNumeric, Min: 0, Max: 100},
				{Name: "gender", Kind: FeatureCategorical, Protected: true, Values: []string{"a", "b"}},
			}},
		},
		{
			name:    "empty schema",
			schema:  Schema{},
			wantErr: true,
		},
		{
			name: "unknown kind",
			schema: Schema{Features: []Feature{
				{Name: "x", Kind: "ordinal", Min: 0, Max: 1},
			}},
			wantErr: true,
		},
		{
			name: "numeric max not above min",
			schema: Schema{Features: []Feature{
				{Name: "x", Kind: FeatureNumeric, Min: 10, Max: 10},
			}},
			wantErr: true,
		},
		{
			name: "numeric with values",
			schema: Schema{Features: []Feature{
				{Name: "x", Kind: FeatureNumeric, Min: 0, Max: 1, Values: []string{"a"}},
			}},
			wantErr: true,
		},
		{
			name: "protected numeric",
			schema: Schema{Features: []Feature{
				{Name: "x", Kind: FeatureNumeric, Min: 0, Max: 1, Protected: true},
			}},
			wantErr: true,
		},
		{
			name: "categorical without values",
			schema: Schema{Features: []Feature{
				{Name: "x", Kind: FeatureCategorical},
			}},
			wantErr: true,
		},
		{
			name: "protected single category",
			schema: Schema{Features: []Feature{
				{Name: "x", Kind: FeatureCategorical, Protected: true, Values: []string{"only"}},
			}},
			wantErr: true,
		},
		{
			name: "weights length mismatch",
			schema: Schema{Features: []Feature{
				{Name: "x", Kind: FeatureCategorical, Values: []string{"a", "b"}, Weights: []float64{1}},
			}},
			wantErr: true,
		},
		{
			name: "negative weight",
			schema: Schema{Features: []Feature{
				{Name: "x", Kind: FeatureCategorical, Values: []string{"a", "b"}, Weights: []float64{1, -1}},
			}},
			wantErr: true,
		},
		{
			name: "zero weight sum",
			schema: Schema{Features: []Feature{
				{Name: "x", Kind: FeatureCategorical, Values: []string{"a", "b"}, Weights: []float64{0, 0}},
			}},
			wantErr: true,
		},
		{
			name: "duplicate feature names",
			schema: Schema{Features: []Feature{
				{Name: "x", Kind: FeatureNumeric, Min: 0, Max: 1},
				{Name: "x", Kind: FeatureNumeric, Min: 0, Max: 2},
			}},
			wantErr: true,
		},
		{
			name: "duplicate category values",
			schema: Schema{Features: []Feature{
				{Name: "x", Kind: FeatureCategorical, Values: []string{"a", "a"}},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, models.ErrConfiguration) {
				t.Errorf("Validate() error = %v, want ErrConfiguration class", err)
			}
		})
	}
}

func TestParseSchema(t *testing.T) {
	yamlDoc := []byte(`
features:
  - name: score_band
    kind: numeric
    min: 300
    max: 850
    integer: true
  - name: region
    kind: categorical
    protected: true
    values: [north, south]
    weights: [0.5, 0.5]
`)

	s, err := ParseSchema(yamlDoc)
	if err != nil {
		t.Fatalf("ParseSchema() error = %v", err)
	}
	if len(s.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(s.Features))
	}
	if s.Features[0].Name != "score_band" || !s.Features[0].Integer {
		t.Errorf("first feature = %+v, want integer score_band", s.Features[0])
	}
	if !s.Features[1].Protected {
		t.Errorf("region should be protected")
	}
}

func TestParseSchema_UnknownField(t *testing.T) {
	yamlDoc := []byte(`
features:
  - name: x
    kind: numeric
    min: 0
    max: 1
    shape: bell
`)
	if _, err := ParseSchema(yamlDoc); err == nil {
		t.Error("ParseSchema() with unknown field should fail")
	}
}

func TestDefaultSchemaIsValid(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("Default() schema invalid: %v", err)
	}

	protected := s.Protected()
	if len(protected) != 2 {
		t.Fatalf("Default() has %d protected attributes, want 2", len(protected))
	}
	if protected[0].Name != "gender" || protected[1].Name != "race" {
		t.Errorf("protected attributes = %s, %s; want gender, race", protected[0].Name, protected[1].Name)
	}

	numeric := s.NumericUnprotected()
	wantNumeric := []string{"age", "income", "experience_years", "credit_score"}
	if len(numeric) != len(wantNumeric) {
		t.Fatalf("got %d numeric unprotected features, want %d", len(numeric), len(wantNumeric))
	}
	for i, f := range numeric {
		if f.Name != wantNumeric[i] {
			t.Errorf("numeric[%d] = %q, want %q", i, f.Name, wantNumeric[i])
		}
	}
}

func TestSchemaEncodeRoundTrip(t *testing.T) {
	out, err := Default().Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	back, err := ParseSchema(out)
	if err != nil {
		t.Fatalf("ParseSchema(Encode()) error = %v", err)
	}
	if len(back.Features) != len(Default().Features) {
		t.Errorf("round trip lost features: %d vs %d", len(back.Features), len(Default().Features))
	}
}
