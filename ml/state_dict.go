package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
)

// Tensor is a dense row-major parameter as stored in a state dict.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

func (t *Tensor) NumElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

type StateDict map[string]*Tensor

type parameter struct {
	name  string
	shape []int
	data  []float64
}

func linearParameters(prefix string, l *Linear) []parameter {
	out, in := l.Weight.Dims()
	return []parameter{
		{name: prefix + ".weight", shape: []int{out, in}, data: l.Weight.RawMatrix().Data},
		{name: prefix + ".bias", shape: []int{out}, data: l.Bias},
	}
}

func normParameters(prefix string, n *LayerNorm) []parameter {
	return []parameter{
		{name: prefix + ".weight", shape: []int{len(n.Gamma)}, data: n.Gamma},
		{name: prefix + ".bias", shape: []int{len(n.Beta)}, data: n.Beta},
	}
}

// parameters lists the network weights under the names PyTorch gives them,
// backed by the live slices of the network.
func (n *CardioTabNet) parameters() []parameter {
	params := linearParameters("fc_embed", n.embed)
	for i, layer := range n.layers {
		prefix := fmt.Sprintf("transformer.layers.%d", i)
		inRows, inCols := layer.SelfAttn.InProj.Weight.Dims()
		params = append(params,
			parameter{name: prefix + ".self_attn.in_proj_weight", shape: []int{inRows, inCols}, data: layer.SelfAttn.InProj.Weight.RawMatrix().Data},
			parameter{name: prefix + ".self_attn.in_proj_bias", shape: []int{inRows}, data: layer.SelfAttn.InProj.Bias},
		)
		params = append(params, linearParameters(prefix+".self_attn.out_proj", layer.SelfAttn.OutProj)...)
		params = append(params, linearParameters(prefix+".linear1", layer.Linear1)...)
		params = append(params, linearParameters(prefix+".linear2", layer.Linear2)...)
		params = append(params, normParameters(prefix+".norm1", layer.Norm1)...)
		params = append(params, normParameters(prefix+".norm2", layer.Norm2)...)
	}
	params = append(params, linearParameters("classifier.0", n.hidden)...)
	params = append(params, linearParameters("classifier.3", n.classes)...)
	return params
}

func (n *CardioTabNet) StateDict() StateDict {
	sd := make(StateDict)
	for _, p := range n.parameters() {
		sd[p.name] = &Tensor{
			Shape: append([]int(nil), p.shape...),
			Data:  append([]float64(nil), p.data...),
		}
	}
	return sd
}

// LoadStateDict copies sd into the network. Loading is strict: missing,
// unexpected or mis-shaped entries fail and leave the network untouched.
func (n *CardioTabNet) LoadStateDict(sd StateDict) error {
	params := n.parameters()
	known := make(map[string]bool, len(params))
	var errs []error
	for _, p := range params {
		known[p.name] = true
		t, ok := sd[p.name]
		if !ok {
			errs = append(errs, fmt.Errorf("missing key %q", p.name))
			continue
		}
		if !slices.Equal(t.Shape, p.shape) {
			errs = append(errs, fmt.Errorf("size mismatch for %s: checkpoint %v, model %v", p.name, t.Shape, p.shape))
			continue
		}
		if len(t.Data) != t.NumElements() {
			errs = append(errs, fmt.Errorf("%s holds %d values for shape %v", p.name, len(t.Data), t.Shape))
		}
	}
	for name := range sd {
		if !known[name] {
			errs = append(errs, fmt.Errorf("unexpected key %q", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("load state dict: %w", errors.Join(errs...))
	}
	for _, p := range params {
		copy(p.data, sd[p.name].Data)
	}
	return nil
}

// Save writes the weights as a JSON state dict readable by LoadWeights.
func (n *CardioTabNet) Save(path string) error {
	payload, err := json.Marshal(n.StateDict())
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
