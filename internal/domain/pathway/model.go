package pathway

import "github.com/carepath/carepath/internal/upstream"

// Prediction is the orchestrator's view of one prediction verdict. The
// backend ranks candidates; the first becomes the headline disease and the
// rest are kept as alternatives rather than silently discarded.
type Prediction struct {
	Disease          string             `json:"disease"`
	Alternatives     []string           `json:"alternatives,omitempty"`
	SpecialtyID      int                `json:"specialty_id"`
	DiseaseID        int                `json:"disease_id"`
	PredictionType   string             `json:"prediction_type"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
}

// DiseasePrecautions pairs a disease with its cleaned precaution list.
type DiseasePrecautions struct {
	Disease     string   `json:"disease"`
	Precautions []string `json:"precautions"`
}

// Evaluation is the combined outcome of one symptom submission: the
// prediction, best-effort precautions, and, for signed-in users only, the
// matching doctors.
type Evaluation struct {
	Prediction  *Prediction          `json:"prediction"`
	Precautions []DiseasePrecautions `json:"precautions"`
	Doctors     []upstream.Doctor    `json:"doctors,omitempty"`
}
