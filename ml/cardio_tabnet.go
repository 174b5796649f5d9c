package ml

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// NetConfig describes the CardioTabNet architecture.
type NetConfig struct {
	InputDim     int     `json:"input_dim" yaml:"input_dim"`
	EmbedDim     int     `json:"embed_dim" yaml:"embed_dim"`
	NumHeads     int     `json:"num_heads" yaml:"num_heads"`
	NumLayers    int     `json:"num_layers" yaml:"num_layers"`
	MLPHidden    int     `json:"mlp_hidden" yaml:"mlp_hidden"`
	NumClasses   int     `json:"num_classes" yaml:"num_classes"`
	LayerNormEps float64 `json:"layer_norm_eps" yaml:"layer_norm_eps"`
}

func DefaultNetConfig() NetConfig {
	return NetConfig{
		InputDim:     FeatureCount,
		EmbedDim:     32,
		NumHeads:     4,
		NumLayers:    2,
		MLPHidden:    64,
		NumClasses:   2,
		LayerNormEps: 1e-5,
	}
}

func (c NetConfig) Validate() error {
	if c.InputDim <= 0 || c.EmbedDim <= 0 || c.MLPHidden <= 0 {
		return errors.New("network dimensions must be positive")
	}
	if c.NumHeads <= 0 || c.EmbedDim%c.NumHeads != 0 {
		return fmt.Errorf("embed dim %d must be divisible by %d heads", c.EmbedDim, c.NumHeads)
	}
	if c.NumLayers <= 0 {
		return errors.New("num layers must be positive")
	}
	if c.NumClasses < 2 {
		return errors.New("num classes must be at least 2")
	}
	if c.LayerNormEps <= 0 {
		return errors.New("layer norm eps must be positive")
	}
	return nil
}

// CardioTabNet projects the feature vector into an embedding, runs it
// through a transformer encoder stack and classifies it with a two layer
// MLP head. Dropout is omitted since the network is only ever evaluated.
type CardioTabNet struct {
	config  NetConfig
	embed   *Linear
	layers  []*EncoderLayer
	hidden  *Linear
	classes *Linear
}

func NewCardioTabNet(config NetConfig, rng *rand.Rand) (*CardioTabNet, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	net := &CardioTabNet{
		config: config,
		embed:  newLinear(config.InputDim, config.EmbedDim, rng),
		layers: make([]*EncoderLayer, config.NumLayers),
	}
	for i := range net.layers {
		net.layers[i] = newEncoderLayer(config.EmbedDim, config.NumHeads, config.MLPHidden, config.LayerNormEps, rng)
	}
	net.hidden = newLinear(config.EmbedDim, config.MLPHidden, rng)
	net.classes = newLinear(config.MLPHidden, config.NumClasses, rng)
	return net, nil
}

func (n *CardioTabNet) Config() NetConfig {
	return n.config
}

// Forward treats every row of x as one token of a single sequence and
// returns one row of logits per token.
func (n *CardioTabNet) Forward(x *mat.Dense) (*mat.Dense, error) {
	h, err := n.embed.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	for i, layer := range n.layers {
		h, err = layer.Forward(h)
		if err != nil {
			return nil, fmt.Errorf("encoder layer %d: %w", i, err)
		}
	}
	h, err = n.hidden.Forward(h)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	reluInPlace(h)
	logits, err := n.classes.Forward(h)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	return logits, nil
}

// Logits runs a single feature vector through the network.
func (n *CardioTabNet) Logits(features []float64) ([]float64, error) {
	if len(features) != n.config.InputDim {
		return nil, fmt.Errorf("network expects %d features, got %d", n.config.InputDim, len(features))
	}
	x := mat.NewDense(1, len(features), append([]float64(nil), features...))
	out, err := n.Forward(x)
	if err != nil {
		return nil, err
	}
	return mat.Row(nil, 0, out), nil
}
