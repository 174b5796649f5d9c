package ml

type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// ConfidenceLabel buckets the class-1 probability. The checks are order
// dependent: the High band is tested first, then the Low band.
func ConfidenceLabel(probability float64) Confidence {
	switch {
	case probability > 0.8 || probability < 0.2:
		return ConfidenceHigh
	case probability >= 0.4 && probability <= 0.6:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}
