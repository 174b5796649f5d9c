package ml

import "context"

// Prediction is the outcome for one patient. Probability is for class 1.
type Prediction struct {
	Prediction  int        `json:"prediction"`
	Probability float64    `json:"probability"`
	Confidence  Confidence `json:"confidence"`
}

// ModelStatus reports which artifacts are live.
type ModelStatus struct {
	Ready          bool       `json:"ready"`
	Degraded       bool       `json:"degraded"`
	DegradedReason string     `json:"degraded_reason,omitempty"`
	ScalerKind     ScalerKind `json:"scaler_kind,omitempty"`
	WeightsSource  string     `json:"weights_source"`
	Architecture   NetConfig  `json:"architecture"`
	FeatureNames   []string   `json:"feature_names"`
}

type ModelProvider interface {
	Predict(ctx context.Context, record PatientRecord) (Prediction, error)
	Status() ModelStatus
}
