package ml

import (
	"errors"
	"fmt"
)

// ErrArtifactUnavailable is returned when the scaler or the network was not
// loaded at startup.
var ErrArtifactUnavailable = errors.New("model artifacts unavailable")

// InferenceError is a failure while running an otherwise valid record
// through the scaler or the network.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
