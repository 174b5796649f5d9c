package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
)

// LoadWeights reads a state dict. Files ending in .json are read as written
// by CardioTabNet.Save, anything else as a torch.save checkpoint.
func LoadWeights(path string) (StateDict, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return loadJSONStateDict(path)
	}
	return loadTorchStateDict(path)
}

func loadJSONStateDict(path string) (StateDict, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sd StateDict
	if err := json.Unmarshal(payload, &sd); err != nil {
		return nil, fmt.Errorf("decode state dict: %w", err)
	}
	return sd, nil
}

func loadTorchStateDict(path string) (StateDict, error) {
	// Stat first so a missing checkpoint always matches os.ErrNotExist.
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	obj, err := pytorch.Load(path)
	if err != nil {
		return nil, fmt.Errorf("unpickle checkpoint: %w", err)
	}
	dict, ok := obj.(*types.OrderedDict)
	if !ok {
		return nil, fmt.Errorf("checkpoint root is %T, want a state dict", obj)
	}
	sd := make(StateDict, len(dict.Map))
	for key, entry := range dict.Map {
		name, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("state dict key %v is not a string", key)
		}
		tensor, ok := entry.Value.(*pytorch.Tensor)
		if !ok {
			return nil, fmt.Errorf("%s is %T, want a tensor", name, entry.Value)
		}
		t, err := fromTorchTensor(tensor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		sd[name] = t
	}
	return sd, nil
}

// fromTorchTensor gathers a possibly strided torch tensor into row-major
// order.
func fromTorchTensor(t *pytorch.Tensor) (*Tensor, error) {
	var (
		at   func(int) float64
		size int
	)
	switch storage := t.Source.(type) {
	case *pytorch.FloatStorage:
		at = func(i int) float64 { return float64(storage.Data[i]) }
		size = len(storage.Data)
	case *pytorch.DoubleStorage:
		at = func(i int) float64 { return storage.Data[i] }
		size = len(storage.Data)
	case *pytorch.HalfStorage:
		at = func(i int) float64 { return float64(storage.Data[i]) }
		size = len(storage.Data)
	default:
		return nil, fmt.Errorf("unsupported storage %T", t.Source)
	}
	if len(t.Stride) != len(t.Size) {
		return nil, fmt.Errorf("stride %v does not match size %v", t.Stride, t.Size)
	}

	out := &Tensor{Shape: append([]int(nil), t.Size...)}
	out.Data = make([]float64, out.NumElements())
	index := make([]int, len(t.Size))
	for k := range out.Data {
		offset := t.StorageOffset
		for d, i := range index {
			offset += i * t.Stride[d]
		}
		if offset < 0 || offset >= size {
			return nil, fmt.Errorf("element %d out of storage bounds", k)
		}
		out.Data[k] = at(offset)
		for d := len(index) - 1; d >= 0; d-- {
			index[d]++
			if index[d] < t.Size[d] {
				break
			}
			index[d] = 0
		}
	}
	return out, nil
}
