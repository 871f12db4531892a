package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/carepath/carepath/internal/domain"
)

// Candidates is the final_prediction field of a prediction response. The
// backend returns either a single disease name or a ranked list, so the
// decoder accepts both shapes and always exposes a list.
type Candidates []string

func (c *Candidates) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = Candidates{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("final_prediction is neither string nor list")
	}
	*c = Candidates(many)
	return nil
}

// PredictionResult is the verdict of the prediction engine for one symptom
// set. PredictionType distinguishes the deterministic rule path from the
// model ensemble; ConfidenceScores carries whichever score keys that path
// produced (rule_based, or any subset of rf, nb, svm).
type PredictionResult struct {
	FinalPrediction  Candidates         `json:"final_prediction"`
	SpecialtyID      int                `json:"specialty_id"`
	DiseaseID        int                `json:"disease_id"`
	PredictionType   string             `json:"prediction_type"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
}

// StoredPrediction is one entry of a user's saved prediction history.
type StoredPrediction struct {
	ID        string   `json:"id"`
	Symptoms  []string `json:"symptoms"`
	Disease   string   `json:"disease"`
	CreatedAt string   `json:"created_at"`
}

// Predict submits a symptom set. userID is optional; when present the
// backend stores the prediction in the user's history.
func (c *Client) Predict(ctx context.Context, symptoms []string, userID string) (*PredictionResult, error) {
	req := struct {
		Symptoms []string `json:"symptoms"`
		UserID   string   `json:"user_id,omitempty"`
	}{Symptoms: symptoms, UserID: userID}

	var result PredictionResult
	if err := c.do(ctx, http.MethodPost, "/prediction/predict", "", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Precautions fetches the precaution list for one disease.
func (c *Client) Precautions(ctx context.Context, disease string) ([]string, error) {
	var resp struct {
		Disease     string   `json:"disease"`
		Precautions []string `json:"precautions"`
	}
	path := "/prediction/precautions?disease=" + url.QueryEscape(disease)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, domain.NewNotFoundError("precautions for disease", disease)
		}
		return nil, err
	}
	return resp.Precautions, nil
}

// PreviousPredictions lists the caller's stored prediction history.
func (c *Client) PreviousPredictions(ctx context.Context, token, userID string) ([]StoredPrediction, error) {
	var resp struct {
		Predictions []StoredPrediction `json:"predictions"`
	}
	path := "/prediction/previous-predictions/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

// DeletePrediction removes one stored prediction.
func (c *Client) DeletePrediction(ctx context.Context, token, id string) error {
	path := "/prediction/previous-predictions/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodDelete, path, token, nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return domain.NewNotFoundError("prediction", id)
	}
	return err
}
