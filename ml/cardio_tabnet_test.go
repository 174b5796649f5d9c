package ml

import (
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func newTestNet(t *testing.T, seed int64) *CardioTabNet {
	t.Helper()
	net, err := NewCardioTabNet(DefaultNetConfig(), rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return net
}

func testFeatures() []float64 {
	return []float64{0.9, 0.7, 1.9, 2.2, 0.8, 2.4, 2.8, -1.1, 1.4, 1.3, -2.3, 2.2, 1.3}
}

func TestCardioTabNetLogits(t *testing.T) {
	net := newTestNet(t, 1)
	logits, err := net.Logits(testFeatures())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logits) != 2 {
		t.Fatalf("expected 2 logits, got %d", len(logits))
	}
	for _, v := range logits {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("expected finite logits, got %v", logits)
		}
	}

	if _, err := net.Logits(testFeatures()[:12]); err == nil {
		t.Fatal("expected error for short feature vector")
	}
}

func TestCardioTabNetSeedIsDeterministic(t *testing.T) {
	a, err := newTestNet(t, 7).Logits(testFeatures())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := newTestNet(t, 7).Logits(testFeatures())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical logits, got %v and %v", a, b)
		}
	}
}

func TestSingleTokenAttentionIsValueProjection(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	attn := newMultiheadAttention(8, 2, rng)
	x := mat.NewDense(1, 8, uniform(rng, 8, 1))

	got, err := attn.Forward(x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// With a single token every softmax row is [1], so attention reduces to
	// out_proj(v_proj(x)).
	qkv, err := attn.InProj.Forward(x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := mat.DenseCopyOf(qkv.Slice(0, 1, 16, 24))
	want, err := attn.OutProj.Forward(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Fatalf("expected %v, got %v", mat.Formatted(want), mat.Formatted(got))
	}
}

func TestAttentionRowsSumToOneOverSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	attn := newMultiheadAttention(4, 1, rng)
	// identity value/output projections make the output a convex
	// combination of the inputs
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			v := 0.0
			if i == j {
				v = 1
			}
			attn.InProj.Weight.Set(8+i, j, v)
			attn.OutProj.Weight.Set(i, j, v)
		}
	}
	x := mat.NewDense(3, 4, []float64{
		1, 1, 1, 1,
		2, 2, 2, 2,
		3, 3, 3, 3,
	})
	out, err := attn.Forward(x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			if v := out.At(i, j); v < 1 || v > 3 {
				t.Fatalf("expected value within input range, got %v", v)
			}
		}
	}
}

func TestLayerNormNormalizesRows(t *testing.T) {
	norm := newLayerNorm(4, 1e-5)
	out, err := norm.Forward(mat.NewDense(1, 4, []float64{1, 2, 3, 4}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mean, variance := 0.0, 0.0
	row := out.RawRowView(0)
	for _, v := range row {
		mean += v
	}
	mean /= 4
	for _, v := range row {
		variance += (v - mean) * (v - mean)
	}
	variance /= 4
	if math.Abs(mean) > 1e-9 || math.Abs(variance-1) > 1e-4 {
		t.Fatalf("expected zero mean and unit variance, got %v and %v", mean, variance)
	}
}

func TestNetConfigValidate(t *testing.T) {
	config := DefaultNetConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	config.NumHeads = 5
	if err := config.Validate(); err == nil {
		t.Fatal("expected error when heads do not divide embed dim")
	}
	config = DefaultNetConfig()
	config.NumClasses = 1
	if err := config.Validate(); err == nil {
		t.Fatal("expected error for a single class")
	}
}

func TestStateDictRoundTrip(t *testing.T) {
	source := newTestNet(t, 1)
	target := newTestNet(t, 2)

	path := filepath.Join(t.TempDir(), "weights.json")
	if err := source.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sd, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sd) != len(source.StateDict()) {
		t.Fatalf("expected %d tensors, got %d", len(source.StateDict()), len(sd))
	}
	if _, ok := sd["transformer.layers.1.self_attn.in_proj_weight"]; !ok {
		t.Fatal("expected torch parameter names in state dict")
	}
	if err := target.LoadStateDict(sd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want, _ := source.Logits(testFeatures())
	got, _ := target.Logits(testFeatures())
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("expected logits %v, got %v", want, got)
		}
	}
}

func TestLoadStateDictIsStrict(t *testing.T) {
	net := newTestNet(t, 1)
	before, _ := net.Logits(testFeatures())

	cases := map[string]func(sd StateDict){
		"missing key": func(sd StateDict) { delete(sd, "classifier.3.bias") },
		"size mismatch": func(sd StateDict) {
			sd["fc_embed.weight"] = &Tensor{Shape: []int{32, 12}, Data: make([]float64, 32*12)}
		},
		"unexpected key": func(sd StateDict) {
			sd["transformer.layers.2.norm1.weight"] = &Tensor{Shape: []int{32}, Data: make([]float64, 32)}
		},
		"holds": func(sd StateDict) {
			sd["classifier.3.bias"] = &Tensor{Shape: []int{2}, Data: []float64{1}}
		},
	}
	for want, mutate := range cases {
		t.Run(want, func(t *testing.T) {
			sd := newTestNet(t, 9).StateDict()
			mutate(sd)
			err := net.LoadStateDict(sd)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), want) {
				t.Fatalf("expected %q in error, got %v", want, err)
			}
			after, _ := net.Logits(testFeatures())
			for i := range before {
				if before[i] != after[i] {
					t.Fatal("failed load must not modify the network")
				}
			}
		})
	}
}

func TestSoftmax(t *testing.T) {
	probs, err := Softmax([]float64{1000, 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if probs[0] != 0.5 || probs[1] != 0.5 {
		t.Fatalf("expected even split, got %v", probs)
	}
	probs, err = Softmax([]float64{-1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(probs[0]+probs[1]-1) > 1e-12 || probs[1] <= probs[0] {
		t.Fatalf("unexpected probabilities: %v", probs)
	}
	if _, err := Softmax([]float64{math.NaN(), 1}); err == nil {
		t.Fatal("expected error for NaN logits")
	}
	if _, err := Softmax(nil); err == nil {
		t.Fatal("expected error for empty logits")
	}
}
