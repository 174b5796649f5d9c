package ml

import (
	"context"
	"errors"
	"math/rand"
	"testing"
)

var (
	highRiskRecord = PatientRecord{
		Age: 65, Sex: 1, CP: 3, Trestbps: 170, Chol: 290, FBS: 1, RestECG: 2,
		Thalach: 125, Exang: 1, Oldpeak: 2.5, Slope: 0, CA: 3, Thal: 7,
	}
	lowRiskRecord = PatientRecord{
		Age: 40, Sex: 0, CP: 0, Trestbps: 120, Chol: 180, FBS: 0, RestECG: 0,
		Thalach: 170, Exang: 0, Oldpeak: 0.0, Slope: 2, CA: 0, Thal: 3,
	}
)

func testScaler() *Scaler {
	return &Scaler{
		Kind:  StandardScaling,
		Mean:  []float64{54.4, 0.68, 0.97, 131.6, 246.3, 0.15, 0.53, 149.6, 0.33, 1.04, 1.4, 0.73, 4.7},
		Scale: []float64{9.0, 0.47, 1.03, 17.5, 51.8, 0.36, 0.53, 22.9, 0.47, 1.16, 0.62, 1.02, 1.9},
	}
}

func newTestPredictor(t *testing.T) *Predictor {
	t.Helper()
	return NewPredictor(&Artifacts{
		Scaler:        testScaler(),
		Network:       newTestNet(t, 42),
		WeightsSource: "weights.json",
	})
}

func TestPredictorFixedSamples(t *testing.T) {
	predictor := newTestPredictor(t)
	for name, record := range map[string]PatientRecord{"high": highRiskRecord, "low": lowRiskRecord} {
		prediction, err := predictor.Predict(context.Background(), record)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if prediction.Probability < 0 || prediction.Probability > 1 {
			t.Fatalf("%s: probability out of range: %v", name, prediction.Probability)
		}
		if prediction.Confidence != ConfidenceLabel(prediction.Probability) {
			t.Fatalf("%s: confidence %s does not match probability %v", name, prediction.Confidence, prediction.Probability)
		}
	}
}

func TestPredictorArgmaxMatchesProbability(t *testing.T) {
	predictor := newTestPredictor(t)
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		record := PatientRecord{
			Age: 29 + rng.Intn(49), Sex: rng.Intn(2), CP: rng.Intn(4),
			Trestbps: 94 + rng.Intn(107), Chol: 126 + rng.Intn(438), FBS: rng.Intn(2),
			RestECG: rng.Intn(3), Thalach: 71 + rng.Intn(132), Exang: rng.Intn(2),
			Oldpeak: rng.Float64() * 6.2, Slope: rng.Intn(3), CA: rng.Intn(4), Thal: []int{3, 6, 7}[rng.Intn(3)],
		}
		prediction, err := predictor.Predict(context.Background(), record)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prediction.Probability < 0 || prediction.Probability > 1 {
			t.Fatalf("probability out of range: %v", prediction.Probability)
		}
		if (prediction.Prediction == 1) != (prediction.Probability > 0.5) {
			t.Fatalf("prediction %d inconsistent with probability %v", prediction.Prediction, prediction.Probability)
		}
	}
}

func TestPredictorMissingArtifacts(t *testing.T) {
	cases := map[string]*Artifacts{
		"scaler":  {Network: newTestNet(t, 1)},
		"network": {Scaler: testScaler()},
	}
	for name, artifacts := range cases {
		t.Run(name, func(t *testing.T) {
			predictor := NewPredictor(artifacts)
			_, err := predictor.Predict(context.Background(), highRiskRecord)
			if !errors.Is(err, ErrArtifactUnavailable) {
				t.Fatalf("expected ErrArtifactUnavailable, got %v", err)
			}
			if predictor.Status().Ready {
				t.Fatal("expected predictor not to be ready")
			}
		})
	}
}

func TestPredictorScalerWidthMismatch(t *testing.T) {
	scaler := testScaler()
	scaler.Mean = scaler.Mean[:12]
	scaler.Scale = scaler.Scale[:12]
	predictor := NewPredictor(&Artifacts{Scaler: scaler, Network: newTestNet(t, 1)})

	_, err := predictor.Predict(context.Background(), highRiskRecord)
	var inferenceErr *InferenceError
	if !errors.As(err, &inferenceErr) {
		t.Fatalf("expected InferenceError, got %v", err)
	}
	if inferenceErr.Stage != "scaler transform" {
		t.Fatalf("unexpected stage: %s", inferenceErr.Stage)
	}
}

func TestPredictorNetworkWidthMismatch(t *testing.T) {
	config := DefaultNetConfig()
	config.InputDim = 12
	net, err := NewCardioTabNet(config, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	predictor := NewPredictor(&Artifacts{Scaler: testScaler(), Network: net})

	_, err = predictor.Predict(context.Background(), lowRiskRecord)
	var inferenceErr *InferenceError
	if !errors.As(err, &inferenceErr) {
		t.Fatalf("expected InferenceError, got %v", err)
	}
	if inferenceErr.Stage != "forward pass" {
		t.Fatalf("unexpected stage: %s", inferenceErr.Stage)
	}
}

func TestPredictorCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestPredictor(t).Predict(ctx, lowRiskRecord); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPredictorStatus(t *testing.T) {
	predictor := NewPredictor(&Artifacts{
		Scaler:         testScaler(),
		Network:        newTestNet(t, 1),
		WeightsSource:  RandomInitSource,
		Degraded:       true,
		DegradedReason: "weights file not found: cardio_tabnet_best.pt",
	})
	status := predictor.Status()
	if !status.Ready || !status.Degraded {
		t.Fatalf("expected ready and degraded, got %+v", status)
	}
	if status.WeightsSource != RandomInitSource {
		t.Fatalf("unexpected weights source: %s", status.WeightsSource)
	}
	if status.Architecture.EmbedDim != 32 || len(status.FeatureNames) != FeatureCount {
		t.Fatalf("unexpected status: %+v", status)
	}
}
