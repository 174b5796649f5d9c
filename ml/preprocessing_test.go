package ml

import (
	"math"
	"strings"
	"testing"
)

func TestParseScalerStandard(t *testing.T) {
	doc := `
kind: standard
feature_names: [age, chol]
mean: [50, 200]
scale: [10, 0]
`
	scaler, err := ParseScaler([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scaler.Width() != 2 {
		t.Fatalf("expected width 2, got %d", scaler.Width())
	}
	got, err := scaler.Transform([]float64{65, 230})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got[0]-1.5) > 1e-12 {
		t.Fatalf("expected 1.5, got %v", got[0])
	}
	// zero scale is treated as 1
	if math.Abs(got[1]-30) > 1e-12 {
		t.Fatalf("expected 30, got %v", got[1])
	}
}

func TestParseScalerJSONMinMax(t *testing.T) {
	scaler, err := ParseScaler([]byte(`{"kind": "minmax", "min": [0, 2, 1], "max": [10, 4, 1]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := scaler.Transform([]float64{5, 4, 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0.5, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("feature %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestParseScalerDefaultsToStandard(t *testing.T) {
	scaler, err := ParseScaler([]byte(`{"mean": [1], "scale": [2]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scaler.Kind != StandardScaling {
		t.Fatalf("expected standard scaler, got %s", scaler.Kind)
	}
}

func TestParseScalerRejectsInvalid(t *testing.T) {
	docs := map[string]string{
		"length mismatch": `{"mean": [1, 2], "scale": [1]}`,
		"empty":           `{"kind": "standard"}`,
		"unknown kind":    `{"kind": "robust", "mean": [1], "scale": [1]}`,
		"names":           `{"feature_names": ["a"], "mean": [1, 2], "scale": [1, 1]}`,
		"minmax":          `{"kind": "minmax", "min": [0, 0], "max": [1]}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseScaler([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestScalerTransformWidthMismatch(t *testing.T) {
	scaler := &Scaler{Kind: StandardScaling, Mean: []float64{0, 0}, Scale: []float64{1, 1}}
	_, err := scaler.Transform([]float64{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for width mismatch")
	}
	if !strings.Contains(err.Error(), "expects 2 features, got 3") {
		t.Fatalf("unexpected error: %v", err)
	}
}
