package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Linear computes y = x·Wᵀ + b for every row of x. Weight is stored
// out×in like torch.nn.Linear.
type Linear struct {
	Weight *mat.Dense
	Bias   []float64
}

// newLinear draws weights and bias from U(-1/√in, 1/√in), the bound torch
// uses for its default Linear initialisation.
func newLinear(in, out int, rng *rand.Rand) *Linear {
	bound := 1 / math.Sqrt(float64(in))
	return &Linear{
		Weight: mat.NewDense(out, in, uniform(rng, out*in, bound)),
		Bias:   uniform(rng, out, bound),
	}
}

func (l *Linear) InFeatures() int {
	_, in := l.Weight.Dims()
	return in
}

func (l *Linear) OutFeatures() int {
	out, _ := l.Weight.Dims()
	return out
}

func (l *Linear) Forward(x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != l.InFeatures() {
		return nil, fmt.Errorf("linear expects %d inputs, got %d", l.InFeatures(), cols)
	}
	out := mat.NewDense(rows, l.OutFeatures(), nil)
	out.Mul(x, l.Weight.T())
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += l.Bias[j]
		}
	}
	return out, nil
}

// LayerNorm normalises each row over its last dimension.
type LayerNorm struct {
	Gamma []float64
	Beta  []float64
	Eps   float64
}

func newLayerNorm(dim int, eps float64) *LayerNorm {
	gamma := make([]float64, dim)
	for i := range gamma {
		gamma[i] = 1
	}
	return &LayerNorm{Gamma: gamma, Beta: make([]float64, dim), Eps: eps}
}

func (n *LayerNorm) Forward(x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != len(n.Gamma) {
		return nil, fmt.Errorf("layer norm expects %d features, got %d", len(n.Gamma), cols)
	}
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		in := x.RawRowView(i)
		mean := 0.0
		for _, v := range in {
			mean += v
		}
		mean /= float64(cols)
		variance := 0.0
		for _, v := range in {
			d := v - mean
			variance += d * d
		}
		variance /= float64(cols)
		inv := 1 / math.Sqrt(variance+n.Eps)
		row := out.RawRowView(i)
		for j, v := range in {
			row[j] = (v-mean)*inv*n.Gamma[j] + n.Beta[j]
		}
	}
	return out, nil
}

// MultiheadAttention is scaled dot-product self attention over the rows of
// its input. InProj packs the query, key and value projections (3d×d).
type MultiheadAttention struct {
	InProj  *Linear
	OutProj *Linear
	Heads   int
}

func newMultiheadAttention(dim, heads int, rng *rand.Rand) *MultiheadAttention {
	bound := math.Sqrt(6 / float64(dim+3*dim))
	outProj := newLinear(dim, dim, rng)
	outProj.Bias = make([]float64, dim)
	return &MultiheadAttention{
		InProj: &Linear{
			Weight: mat.NewDense(3*dim, dim, uniform(rng, 3*dim*dim, bound)),
			Bias:   make([]float64, 3*dim),
		},
		OutProj: outProj,
		Heads:   heads,
	}
}

func (a *MultiheadAttention) Forward(x *mat.Dense) (*mat.Dense, error) {
	seq, dim := x.Dims()
	if dim%a.Heads != 0 {
		return nil, fmt.Errorf("embed dim %d not divisible by %d heads", dim, a.Heads)
	}
	qkv, err := a.InProj.Forward(x)
	if err != nil {
		return nil, err
	}
	headDim := dim / a.Heads
	scale := 1 / math.Sqrt(float64(headDim))
	concat := mat.NewDense(seq, dim, nil)
	for h := 0; h < a.Heads; h++ {
		lo, hi := h*headDim, (h+1)*headDim
		q := qkv.Slice(0, seq, lo, hi)
		k := qkv.Slice(0, seq, dim+lo, dim+hi)
		v := qkv.Slice(0, seq, 2*dim+lo, 2*dim+hi)

		scores := mat.NewDense(seq, seq, nil)
		scores.Mul(q, k.T())
		scores.Scale(scale, scores)
		for i := 0; i < seq; i++ {
			softmaxInPlace(scores.RawRowView(i))
		}

		head := concat.Slice(0, seq, lo, hi).(*mat.Dense)
		head.Mul(scores, v)
	}
	return a.OutProj.Forward(concat)
}

// EncoderLayer is a post-norm transformer encoder block with a ReLU
// feed-forward network.
type EncoderLayer struct {
	SelfAttn *MultiheadAttention
	Linear1  *Linear
	Linear2  *Linear
	Norm1    *LayerNorm
	Norm2    *LayerNorm
}

func newEncoderLayer(dim, heads, hidden int, eps float64, rng *rand.Rand) *EncoderLayer {
	return &EncoderLayer{
		SelfAttn: newMultiheadAttention(dim, heads, rng),
		Linear1:  newLinear(dim, hidden, rng),
		Linear2:  newLinear(hidden, dim, rng),
		Norm1:    newLayerNorm(dim, eps),
		Norm2:    newLayerNorm(dim, eps),
	}
}

func (e *EncoderLayer) Forward(x *mat.Dense) (*mat.Dense, error) {
	attn, err := e.SelfAttn.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("self attention: %w", err)
	}
	attn.Add(x, attn)
	x, err = e.Norm1.Forward(attn)
	if err != nil {
		return nil, err
	}

	hidden, err := e.Linear1.Forward(x)
	if err != nil {
		return nil, err
	}
	reluInPlace(hidden)
	ff, err := e.Linear2.Forward(hidden)
	if err != nil {
		return nil, err
	}
	ff.Add(x, ff)
	return e.Norm2.Forward(ff)
}

func reluInPlace(x *mat.Dense) {
	x.Apply(func(_, _ int, v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}, x)
}

// Softmax returns a normalised copy of logits.
func Softmax(logits []float64) ([]float64, error) {
	if len(logits) == 0 {
		return nil, errors.New("softmax of empty logits")
	}
	probs := append([]float64(nil), logits...)
	softmaxInPlace(probs)
	for _, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("non-finite probability from logits %v", logits)
		}
	}
	return probs, nil
}

func softmaxInPlace(values []float64) {
	maxValue := math.Inf(-1)
	for _, v := range values {
		if v > maxValue {
			maxValue = v
		}
	}
	sum := 0.0
	for i, v := range values {
		values[i] = math.Exp(v - maxValue)
		sum += values[i]
	}
	for i := range values {
		values[i] /= sum
	}
}

func uniform(rng *rand.Rand, n int, bound float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = (rng.Float64()*2 - 1) * bound
	}
	return values
}
