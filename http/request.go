package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"cardioserve/ml"
	"github.com/go-playground/validator/v10"
)

// predictRequest mirrors ml.PatientRecord with pointer fields so that a
// missing field can be told apart from a zero value.
type predictRequest struct {
	Age      *int     `json:"age" validate:"required"`
	Sex      *int     `json:"sex" validate:"required"`
	CP       *int     `json:"cp" validate:"required"`
	Trestbps *int     `json:"trestbps" validate:"required"`
	Chol     *int     `json:"chol" validate:"required"`
	FBS      *int     `json:"fbs" validate:"required"`
	RestECG  *int     `json:"restecg" validate:"required"`
	Thalach  *int     `json:"thalach" validate:"required"`
	Exang    *int     `json:"exang" validate:"required"`
	Oldpeak  *float64 `json:"oldpeak" validate:"required"`
	Slope    *int     `json:"slope" validate:"required"`
	CA       *int     `json:"ca" validate:"required"`
	Thal     *int     `json:"thal" validate:"required"`
}

func (r predictRequest) record() ml.PatientRecord {
	return ml.PatientRecord{
		Age:      *r.Age,
		Sex:      *r.Sex,
		CP:       *r.CP,
		Trestbps: *r.Trestbps,
		Chol:     *r.Chol,
		FBS:      *r.FBS,
		RestECG:  *r.RestECG,
		Thalach:  *r.Thalach,
		Exang:    *r.Exang,
		Oldpeak:  *r.Oldpeak,
		Slope:    *r.Slope,
		CA:       *r.CA,
		Thal:     *r.Thal,
	}
}

// FieldViolation is one entry of a validation error body.
type FieldViolation struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError is answered with 422, or 413 when the body is too large.
type ValidationError struct {
	Status int              `json:"-"`
	Detail []FieldViolation `json:"detail"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Detail))
	for i, v := range e.Detail {
		parts[i] = strings.Join(v.Loc, ".") + ": " + v.Msg
	}
	return strings.Join(parts, "; ")
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

func decodePredictRequest(r *http.Request, validate *validator.Validate) (ml.PatientRecord, *ValidationError) {
	var req predictRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		return ml.PatientRecord{}, decodeError(err)
	}
	// 只接受单个 JSON 对象
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		var sizeErr *http.MaxBytesError
		if errors.As(err, &sizeErr) {
			return ml.PatientRecord{}, decodeError(err)
		}
		return ml.PatientRecord{}, bodyError("value_error.jsondecode", "Extra data after the JSON object")
	}
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return ml.PatientRecord{}, bodyError("value_error", err.Error())
		}
		verr := &ValidationError{Status: http.StatusUnprocessableEntity}
		for _, fe := range fieldErrs {
			verr.Detail = append(verr.Detail, FieldViolation{
				Loc:  []string{"body", fe.Field()},
				Msg:  "field required",
				Type: "value_error.missing",
			})
		}
		return ml.PatientRecord{}, verr
	}
	return req.record(), nil
}

func decodeError(err error) *ValidationError {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		sizeErr   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &sizeErr):
		verr := bodyError("value_error.body_too_large", fmt.Sprintf("request body exceeds %d bytes", sizeErr.Limit))
		verr.Status = http.StatusRequestEntityTooLarge
		return verr
	case errors.As(err, &typeErr):
		kind, msg := "type_error.integer", "value is not a valid integer"
		if typeErr.Type.Kind() == reflect.Float64 {
			kind, msg = "type_error.float", "value is not a valid float"
		}
		loc := []string{"body"}
		if typeErr.Field != "" {
			loc = append(loc, strings.Split(typeErr.Field, ".")...)
		} else {
			kind, msg = "type_error.dict", "value is not a valid dict"
		}
		return &ValidationError{
			Status: http.StatusUnprocessableEntity,
			Detail: []FieldViolation{{Loc: loc, Msg: msg, Type: kind}},
		}
	case errors.As(err, &syntaxErr):
		return bodyError("value_error.jsondecode", fmt.Sprintf("Expecting value: offset %d: %s", syntaxErr.Offset, syntaxErr.Error()))
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return bodyError("value_error.missing", "field required")
	default:
		return bodyError("value_error.jsondecode", err.Error())
	}
}

func bodyError(kind, msg string) *ValidationError {
	return &ValidationError{
		Status: http.StatusUnprocessableEntity,
		Detail: []FieldViolation{{Loc: []string{"body"}, Msg: msg, Type: kind}},
	}
}
