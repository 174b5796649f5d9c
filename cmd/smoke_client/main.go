package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"cardioserve/client"
	"cardioserve/ml"
)

type sample struct {
	name   string
	record ml.PatientRecord
}

var samples = []sample{
	{
		name: "high risk",
		record: ml.PatientRecord{
			Age: 65, Sex: 1, CP: 3, Trestbps: 170, Chol: 290, FBS: 1, RestECG: 2,
			Thalach: 125, Exang: 1, Oldpeak: 2.5, Slope: 0, CA: 3, Thal: 7,
		},
	},
	{
		name: "low risk",
		record: ml.PatientRecord{
			Age: 40, Sex: 0, CP: 0, Trestbps: 120, Chol: 180, FBS: 0, RestECG: 0,
			Thalach: 170, Exang: 0, Oldpeak: 0.0, Slope: 2, CA: 0, Thal: 3,
		},
	},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "prediction API base url")
	timeout := flag.Duration("timeout", 10*time.Second, "per request timeout")
	flag.Parse()

	c := client.New(*baseURL)
	c.HTTPClient.Timeout = *timeout
	run(context.Background(), os.Stdout, c, samples)
}

// run prints one block per sample. Failures are printed, never fatal.
func run(ctx context.Context, w io.Writer, c *client.Client, samples []sample) {
	for i, s := range samples {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Testing API with %s patient data:\n", s.name)
		testPrediction(ctx, w, c, s.record)
	}
	fmt.Fprintln(w, "\nAPI test complete!")
}

func testPrediction(ctx context.Context, w io.Writer, c *client.Client, record ml.PatientRecord) {
	prediction, err := c.Predict(ctx, record)
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		fmt.Fprintf(w, "Error: %d\n", apiErr.StatusCode)
		fmt.Fprintln(w, apiErr.Body)
		return
	case err != nil:
		fmt.Fprintf(w, "Exception: %v\n", err)
		return
	}

	label := "No Heart Disease"
	if prediction.Prediction == 1 {
		label = "Heart Disease"
	}
	fmt.Fprintf(w, "Prediction: %s\n", label)
	fmt.Fprintf(w, "Probability: %.2f\n", prediction.Probability)
	fmt.Fprintf(w, "Confidence: %s\n", prediction.Confidence)
}
