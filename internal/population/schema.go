// Package population generates the synthetic feature-vector population an
// analysis probes the target model with.
package population

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/raphaelgruber/fairprobe/internal/models"
	"gopkg.in/yaml.v3"
)

// FeatureKind discriminates numeric and categorical features.
type FeatureKind string

const (
	FeatureNumeric     FeatureKind = "numeric"
	FeatureCategorical FeatureKind = "categorical"
)

// Feature defines one attribute of the synthetic population.
// Numeric features draw from [Min, Max] with the given distribution;
// categorical features draw from Values with optional relative Weights.
// Protected marks the categorical attributes fairness is evaluated along.
type Feature struct {
	Name string      `yaml:"name" validate:"required"`
	Kind FeatureKind `yaml:"kind" validate:"required,oneof=numeric categorical"`

	// Numeric
	Min          float64 `yaml:"min,omitempty"`
	Max          float64 `yaml:"max,omitempty"`
	Distribution string  `yaml:"distribution,omitempty" validate:"omitempty,oneof=uniform normal"`
	Integer      bool    `yaml:"integer,omitempty"`

	// Categorical
	Values    []string  `yaml:"values,omitempty"`
	Weights   []float64 `yaml:"weights,omitempty"`
	Protected bool      `yaml:"protected,omitempty"`
}

// Schema is an ordered set of feature definitions. Order matters: metric
// ordering and influence tie-breaking follow declaration order.
type Schema struct {
	Features []Feature `yaml:"features" validate:"required,min=1,dive"`
}

var validate = validator.New()

// Validate checks the schema for structural and cross-field errors.
// All failures wrap models.ErrConfiguration.
func (s *Schema) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}

	seen := make(map[string]bool, len(s.Features))
	for _, f := range s.Features {
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate feature %q", models.ErrConfiguration, f.Name)
		}
		seen[f.Name] = true

		switch f.Kind {
		case FeatureNumeric:
			if f.Max <= f.Min {
				return fmt.Errorf("%w: feature %q: max must exceed min", models.ErrConfiguration, f.Name)
			}
			if len(f.Values) > 0 || len(f.Weights) > 0 {
				return fmt.Errorf("%w: feature %q: numeric features take no values or weights", models.ErrConfiguration, f.Name)
			}
			if f.Protected {
				return fmt.Errorf("%w: feature %q: protected attributes must be categorical", models.ErrConfiguration, f.Name)
			}
		case FeatureCategorical:
			if len(f.Values) == 0 {
				return fmt.Errorf("%w: feature %q: categorical features need at least one value", models.ErrConfiguration, f.Name)
			}
			if f.Protected && len(f.Values) < 2 {
				return fmt.Errorf("%w: feature %q: protected attributes need at least two categories", models.ErrConfiguration, f.Name)
			}
			if len(f.Weights) > 0 {
				if len(f.Weights) != len(f.Values) {
					return fmt.Errorf("%w: feature %q: weights must match values (%d vs %d)",
						models.ErrConfiguration, f.Name, len(f.Weights), len(f.Values))
				}
				var sum float64
				for _, w := range f.Weights {
					if w < 0 {
						return fmt.Errorf("%w: feature %q: weights must be non-negative", models.ErrConfiguration, f.Name)
					}
					sum += w
				}
				if sum <= 0 {
					return fmt.Errorf("%w: feature %q: weights must sum to a positive value", models.ErrConfiguration, f.Name)
				}
			}
			vals := make(map[string]bool, len(f.Values))
			for _, v := range f.Values {
				if vals[v] {
					return fmt.Errorf("%w: feature %q: duplicate value %q", models.ErrConfiguration, f.Name, v)
				}
				vals[v] = true
			}
		}
	}
	return nil
}

// Protected returns the protected features in declaration order.
func (s *Schema) Protected() []Feature {
	var out []Feature
	for _, f := range s.Features {
		if f.Protected {
			out = append(out, f)
		}
	}
	return out
}

// NumericUnprotected returns the numeric non-protected features in
// declaration order. These are the candidates for influence ranking.
func (s *Schema) NumericUnprotected() []Feature {
	var out []Feature
	for _, f := range s.Features {
		if f.Kind == FeatureNumeric && !f.Protected {
			out = append(out, f)
		}
	}
	return out
}

// LoadSchemaFile reads and validates a YAML schema file.
// Unknown fields are rejected.
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read schema file: %v", models.ErrConfiguration, err)
	}
	return ParseSchema(data)
}

// ParseSchema parses and validates YAML schema bytes.
func ParseSchema(data []byte) (*Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Schema
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: parse schema: %v", models.ErrConfiguration, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Default returns the built-in demographic schema used when no schema file
// is configured.
func Default() *Schema {
	return &Schema{Features: []Feature{
		{Name: "age", Kind: FeatureNumeric, Min: 18, Max: 80, Distribution: "uniform", Integer: true},
		{Name: "gender", Kind: FeatureCategorical, Protected: true,
			Values:  []string{"male", "female", "other"},
			Weights: []float64{0.48, 0.48, 0.04}},
		{Name: "race", Kind: FeatureCategorical, Protected: true,
			Values:  []string{"white", "black", "asian", "hispanic", "other"},
			Weights: []float64{0.60, 0.13, 0.06, 0.18, 0.03}},
		{Name: "education", Kind: FeatureCategorical,
			Values:  []string{"high_school", "bachelor", "master", "phd"},
			Weights: []float64{0.30, 0.40, 0.25, 0.05}},
		{Name: "income", Kind: FeatureNumeric, Min: 0, Max: 150000, Distribution: "normal"},
		{Name: "experience_years", Kind: FeatureNumeric, Min: 0, Max: 40, Distribution: "uniform", Integer: true},
		{Name: "location", Kind: FeatureCategorical,
			Values: []string{"new_york", "los_angeles", "chicago", "houston", "phoenix", "philadelphia", "san_antonio", "san_diego"}},
		{Name: "credit_score", Kind: FeatureNumeric, Min: 300, Max: 850, Distribution: "uniform", Integer: true},
	}}
}

// Encode renders the schema as YAML.
func (s *Schema) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return buf.Bytes(), nil
}
