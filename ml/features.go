package ml

// FeatureCount is the width of the model input vector.
const FeatureCount = 13

// PatientRecord holds the clinical measurements of one patient.
type PatientRecord struct {
	Age      int     `json:"age"`
	Sex      int     `json:"sex"`      // 1 = male, 0 = female
	CP       int     `json:"cp"`       // chest pain type
	Trestbps int     `json:"trestbps"` // resting blood pressure
	Chol     int     `json:"chol"`     // serum cholesterol in mg/dl
	FBS      int     `json:"fbs"`      // fasting blood sugar > 120 mg/dl
	RestECG  int     `json:"restecg"`
	Thalach  int     `json:"thalach"` // maximum heart rate achieved
	Exang    int     `json:"exang"`   // exercise induced angina
	Oldpeak  float64 `json:"oldpeak"` // ST depression induced by exercise relative to rest
	Slope    int     `json:"slope"`
	CA       int     `json:"ca"`   // major vessels colored by fluoroscopy (0-3)
	Thal     int     `json:"thal"` // 3 = normal, 6 = fixed defect, 7 = reversible defect
}

// FeatureVector flattens a record in the order the scaler and network were fit on.
func FeatureVector(record PatientRecord) []float64 {
	return []float64{
		float64(record.Age),
		float64(record.Sex),
		float64(record.CP),
		float64(record.Trestbps),
		float64(record.Chol),
		float64(record.FBS),
		float64(record.RestECG),
		float64(record.Thalach),
		float64(record.Exang),
		record.Oldpeak,
		float64(record.Slope),
		float64(record.CA),
		float64(record.Thal),
	}
}

func FeatureNames() []string {
	return []string{
		"age",
		"sex",
		"cp",
		"trestbps",
		"chol",
		"fbs",
		"restecg",
		"thalach",
		"exang",
		"oldpeak",
		"slope",
		"ca",
		"thal",
	}
}
