package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cardioserve/ml"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

// predictionErrorStatus maps the prediction error taxonomy onto status
// codes. Inference failures and anything unclassified are server errors.
func predictionErrorStatus(err error) int {
	if errors.Is(err, ml.ErrArtifactUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writePredictionError(w http.ResponseWriter, err error) {
	writeDetail(w, predictionErrorStatus(err), "Prediction error: "+err.Error())
}
