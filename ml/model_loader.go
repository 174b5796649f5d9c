package ml

import (
	"errors"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"
)

const RandomInitSource = "random_init"

type LoadOptions struct {
	ScalerPath  string
	WeightsPath string
	Net         NetConfig
	// Seed fixes the random initialisation; zero seeds from the clock.
	Seed int64
}

// Artifacts is everything loaded at startup. A nil Scaler or Network means
// the artifact could not be built and predictions are unavailable.
type Artifacts struct {
	Scaler         *Scaler
	Network        *CardioTabNet
	WeightsSource  string
	Degraded       bool
	DegradedReason string
}

// LoadArtifacts never fails: problems are logged and leave the service
// either degraded (random weights) or without a usable artifact.
func LoadArtifacts(opts LoadOptions, log *zap.Logger) *Artifacts {
	artifacts := &Artifacts{}

	scaler, err := LoadScaler(opts.ScalerPath)
	if err != nil {
		log.Error("Failed to load scaler", zap.String("path", opts.ScalerPath), zap.Error(err))
	} else {
		artifacts.Scaler = scaler
		log.Info("Scaler loaded",
			zap.String("path", opts.ScalerPath),
			zap.String("kind", string(scaler.Kind)),
			zap.Int("features", scaler.Width()))
		if scaler.Width() != opts.Net.InputDim {
			log.Warn("Scaler width does not match network input",
				zap.Int("scaler", scaler.Width()), zap.Int("network", opts.Net.InputDim))
		}
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	net, err := NewCardioTabNet(opts.Net, rand.New(rand.NewSource(seed)))
	if err != nil {
		log.Error("Failed to build network", zap.Error(err))
		return artifacts
	}
	artifacts.Network = net
	artifacts.WeightsSource = RandomInitSource

	sd, err := LoadWeights(opts.WeightsPath)
	if err == nil {
		err = net.LoadStateDict(sd)
	}
	switch {
	case err == nil:
		artifacts.WeightsSource = opts.WeightsPath
		log.Info("Model weights loaded", zap.String("path", opts.WeightsPath), zap.Int("tensors", len(sd)))
	case errors.Is(err, os.ErrNotExist):
		artifacts.Degraded = true
		artifacts.DegradedReason = "weights file not found: " + opts.WeightsPath
		log.Warn("Model weights file not found. Using randomly initialized model.", zap.String("path", opts.WeightsPath))
	default:
		artifacts.Degraded = true
		artifacts.DegradedReason = "weights not loaded: " + err.Error()
		log.Error("Failed to load model weights. Using randomly initialized model.",
			zap.String("path", opts.WeightsPath), zap.Error(err))
	}
	return artifacts
}
