package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"cardioserve/ml"
)

func main() {
	weightsPath := flag.String("weights", "", "PyTorch state dict (.pt) or JSON state dict to convert; empty exports a seeded random network")
	outPath := flag.String("out", "./models/cardio_tabnet.json", "JSON state dict output path")
	seed := flag.Int64("seed", 42, "seed for the random network")
	flag.Parse()

	net, err := ml.NewCardioTabNet(ml.DefaultNetConfig(), rand.New(rand.NewSource(*seed)))
	if err != nil {
		log.Fatalf("failed to build network: %v", err)
	}

	if *weightsPath != "" {
		sd, err := ml.LoadWeights(*weightsPath)
		if err != nil {
			log.Fatalf("failed to read weights: %v", err)
		}
		if err := net.LoadStateDict(sd); err != nil {
			log.Fatalf("weights do not fit the network: %v", err)
		}
		log.Printf("loaded %d tensors from %s", len(sd), *weightsPath)
	}

	logits, err := net.Logits(make([]float64, ml.FeatureCount))
	if err != nil {
		log.Fatalf("forward pass failed: %v", err)
	}
	probs, err := ml.Softmax(logits)
	if err != nil {
		log.Fatalf("softmax failed: %v", err)
	}
	log.Printf("mean patient probability=%.4f", probs[1])

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatalf("failed to create output dir: %v", err)
	}
	if err := net.Save(*outPath); err != nil {
		log.Fatalf("failed to save weights: %v", err)
	}

	fmt.Printf("weights saved to %s\n", *outPath)
}
