package ml

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type ScalerKind string

const (
	StandardScaling ScalerKind = "standard"
	MinMaxScaling   ScalerKind = "minmax"
)

// Scaler is a fitted per-feature normalisation. Standard scaling follows
// sklearn's StandardScaler, min-max scaling maps [min, max] onto [0, 1].
type Scaler struct {
	Kind         ScalerKind `yaml:"kind" json:"kind"`
	FeatureNames []string   `yaml:"feature_names" json:"feature_names,omitempty"`
	Mean         []float64  `yaml:"mean" json:"mean,omitempty"`
	Scale        []float64  `yaml:"scale" json:"scale,omitempty"`
	Min          []float64  `yaml:"min" json:"min,omitempty"`
	Max          []float64  `yaml:"max" json:"max,omitempty"`
}

// LoadScaler reads a scaler document. JSON exports are accepted as well since
// the YAML decoder understands flow syntax.
func LoadScaler(path string) (*Scaler, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScaler(payload)
}

func ParseScaler(payload []byte) (*Scaler, error) {
	var scaler Scaler
	if err := yaml.Unmarshal(payload, &scaler); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	if scaler.Kind == "" {
		scaler.Kind = StandardScaling
	}
	if err := scaler.Validate(); err != nil {
		return nil, err
	}
	return &scaler, nil
}

func (s *Scaler) Validate() error {
	switch s.Kind {
	case StandardScaling:
		if len(s.Mean) == 0 {
			return errors.New("standard scaler has no mean")
		}
		if len(s.Mean) != len(s.Scale) {
			return fmt.Errorf("mean/scale length mismatch: %d != %d", len(s.Mean), len(s.Scale))
		}
	case MinMaxScaling:
		if len(s.Min) == 0 {
			return errors.New("minmax scaler has no min")
		}
		if len(s.Min) != len(s.Max) {
			return fmt.Errorf("min/max length mismatch: %d != %d", len(s.Min), len(s.Max))
		}
	default:
		return fmt.Errorf("unsupported scaler kind %q", s.Kind)
	}
	if len(s.FeatureNames) > 0 && len(s.FeatureNames) != s.Width() {
		return fmt.Errorf("scaler has %d feature names for %d features", len(s.FeatureNames), s.Width())
	}
	return nil
}

// Width is the number of features the scaler was fit on.
func (s *Scaler) Width() int {
	if s.Kind == MinMaxScaling {
		return len(s.Min)
	}
	return len(s.Mean)
}

func (s *Scaler) Transform(values []float64) ([]float64, error) {
	if len(values) != s.Width() {
		return nil, fmt.Errorf("scaler expects %d features, got %d", s.Width(), len(values))
	}
	result := make([]float64, len(values))
	for i, value := range values {
		if s.Kind == MinMaxScaling {
			result[i] = NormalizeFeature(value, s.Min[i], s.Max[i])
		} else {
			result[i] = StandardizeFeature(value, s.Mean[i], s.Scale[i])
		}
	}
	return result, nil
}

func NormalizeFeature(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}

// StandardizeFeature treats a zero scale as 1, matching sklearn for
// constant features.
func StandardizeFeature(value, mean, scale float64) float64 {
	if scale == 0 {
		scale = 1
	}
	return (value - mean) / scale
}
