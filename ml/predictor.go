package ml

import (
	"context"
	"fmt"
	"math"
)

// Predictor serves predictions from artifacts loaded once at startup. It
// never mutates them, so one Predictor is shared by all requests.
type Predictor struct {
	scaler    *Scaler
	network   *CardioTabNet
	artifacts Artifacts
}

func NewPredictor(artifacts *Artifacts) *Predictor {
	return &Predictor{
		scaler:    artifacts.Scaler,
		network:   artifacts.Network,
		artifacts: *artifacts,
	}
}

func (p *Predictor) Predict(ctx context.Context, record PatientRecord) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if p.scaler == nil {
		return Prediction{}, fmt.Errorf("%w: scaler not loaded", ErrArtifactUnavailable)
	}
	if p.network == nil {
		return Prediction{}, fmt.Errorf("%w: network not built", ErrArtifactUnavailable)
	}

	scaled, err := p.scaler.Transform(FeatureVector(record))
	if err != nil {
		return Prediction{}, &InferenceError{Stage: "scaler transform", Err: err}
	}
	logits, err := p.logits(scaled)
	if err != nil {
		return Prediction{}, &InferenceError{Stage: "forward pass", Err: err}
	}
	if len(logits) != 2 {
		return Prediction{}, &InferenceError{Stage: "forward pass", Err: fmt.Errorf("expected 2 logits, got %d", len(logits))}
	}
	probs, err := Softmax(logits)
	if err != nil {
		return Prediction{}, &InferenceError{Stage: "softmax", Err: err}
	}

	probability := math.Min(math.Max(probs[1], 0), 1)
	label := 0
	if probs[1] > probs[0] {
		label = 1
	}
	return Prediction{
		Prediction:  label,
		Probability: probability,
		Confidence:  ConfidenceLabel(probability),
	}, nil
}

// logits converts panics from the linear algebra layer into errors.
func (p *Predictor) logits(features []float64) (logits []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return p.network.Logits(features)
}

func (p *Predictor) Status() ModelStatus {
	status := ModelStatus{
		Ready:          p.scaler != nil && p.network != nil,
		Degraded:       p.artifacts.Degraded,
		DegradedReason: p.artifacts.DegradedReason,
		WeightsSource:  p.artifacts.WeightsSource,
		FeatureNames:   FeatureNames(),
	}
	if p.scaler != nil {
		status.ScalerKind = p.scaler.Kind
	}
	if p.network != nil {
		status.Architecture = p.network.Config()
	}
	return status
}
