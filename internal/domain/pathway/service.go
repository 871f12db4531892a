package pathway

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/carepath/carepath/internal/domain"
	"github.com/carepath/carepath/internal/upstream"
)

// Backend is the slice of the upstream client this service uses.
type Backend interface {
	Predict(ctx context.Context, symptoms []string, userID string) (*upstream.PredictionResult, error)
	Precautions(ctx context.Context, disease string) ([]string, error)
	Doctors(ctx context.Context) ([]upstream.Doctor, error)
	DoctorByID(ctx context.Context, id string) (*upstream.Doctor, error)
	DoctorsBySpecialty(ctx context.Context, token string, specialtyID int) ([]upstream.Doctor, error)
	PreviousPredictions(ctx context.Context, token, userID string) ([]upstream.StoredPrediction, error)
	DeletePrediction(ctx context.Context, token, id string) error
}

// precautionFetchLimit bounds the concurrent precaution sub-fetches.
const precautionFetchLimit = 4

type Service struct {
	backend Backend
	logger  zerolog.Logger
}

func NewService(backend Backend, logger zerolog.Logger) *Service {
	return &Service{backend: backend, logger: logger}
}

// normalizeSymptoms trims, lowercases, and de-duplicates while preserving
// the order of first occurrence.
func normalizeSymptoms(symptoms []string) []string {
	seen := make(map[string]bool, len(symptoms))
	out := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Predict validates the symptom set locally and submits it. An empty set
// never reaches the network. The result always names a disease: a 2xx
// response without candidates is treated as an upstream failure, never as
// an empty success.
func (s *Service) Predict(ctx context.Context, symptoms []string, userID string) (*Prediction, error) {
	cleaned := normalizeSymptoms(symptoms)
	if len(cleaned) == 0 {
		return nil, domain.NewValidationError("at least one symptom is required")
	}

	result, err := s.backend.Predict(ctx, cleaned, userID)
	if err != nil {
		return nil, err
	}
	if len(result.FinalPrediction) == 0 || result.FinalPrediction[0] == "" {
		return nil, domain.NewNetworkError("POST /prediction/predict", errors.New("response carries no candidates"))
	}

	return &Prediction{
		Disease:          result.FinalPrediction[0],
		Alternatives:     result.FinalPrediction[1:],
		SpecialtyID:      result.SpecialtyID,
		DiseaseID:        result.DiseaseID,
		PredictionType:   result.PredictionType,
		ConfidenceScores: result.ConfidenceScores,
	}, nil
}

// FetchPrecautions fetches precautions for each disease concurrently and
// returns the successful subset in input order. Individual failures are
// logged and dropped; the overall call only fails on empty input.
func (s *Service) FetchPrecautions(ctx context.Context, diseases []string) ([]DiseasePrecautions, error) {
	unique := make([]string, 0, len(diseases))
	seen := make(map[string]bool, len(diseases))
	for _, d := range diseases {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		unique = append(unique, d)
	}
	if len(unique) == 0 {
		return nil, domain.NewValidationError("at least one disease is required")
	}

	results := make([]*DiseasePrecautions, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(precautionFetchLimit)
	for i, disease := range unique {
		i, disease := i, disease
		g.Go(func() error {
			precautions, err := s.backend.Precautions(gctx, disease)
			if err != nil {
				s.logger.Warn().Str("disease", disease).Err(err).Msg("precaution fetch dropped")
				return nil
			}
			results[i] = &DiseasePrecautions{
				Disease:     disease,
				Precautions: cleanPrecautions(precautions),
			}
			return nil
		})
	}
	// Workers never return errors; Wait only orders completion.
	_ = g.Wait()

	out := make([]DiseasePrecautions, 0, len(unique))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// cleanPrecautions drops empty entries and the "nan" placeholders the
// precaution store uses for unfilled columns.
func cleanPrecautions(precautions []string) []string {
	out := make([]string, 0, len(precautions))
	for _, p := range precautions {
		p = strings.TrimSpace(p)
		if p == "" || strings.EqualFold(p, "nan") {
			continue
		}
		out = append(out, p)
	}
	return out
}

// RecommendDoctors lists doctors for a predicted specialty. Without a
// token it fails fast; no network call is made for anonymous callers.
func (s *Service) RecommendDoctors(ctx context.Context, token string, specialtyID int) ([]upstream.Doctor, error) {
	if token == "" {
		return nil, domain.NewAuthRequiredError("view recommended doctors")
	}
	return s.backend.DoctorsBySpecialty(ctx, token, specialtyID)
}

// ListDoctors returns the full directory.
func (s *Service) ListDoctors(ctx context.Context) ([]upstream.Doctor, error) {
	return s.backend.Doctors(ctx)
}

// GetDoctor returns one directory entry.
func (s *Service) GetDoctor(ctx context.Context, id string) (*upstream.Doctor, error) {
	return s.backend.DoctorByID(ctx, id)
}

// Evaluate runs the full pathway for one symptom submission: predict,
// then precautions for the primary disease and every alternative, then
// doctors when a token is present. Doctors are fetched for this
// evaluation only; signing in later never backfills an earlier result.
func (s *Service) Evaluate(ctx context.Context, token, userID string, symptoms []string) (*Evaluation, error) {
	prediction, err := s.Predict(ctx, symptoms, userID)
	if err != nil {
		return nil, err
	}

	diseases := append([]string{prediction.Disease}, prediction.Alternatives...)
	precautions, err := s.FetchPrecautions(ctx, diseases)
	if err != nil {
		// Unreachable with a non-empty prediction, but degrade instead of
		// failing a successful prediction.
		precautions = nil
	}

	eval := &Evaluation{Prediction: prediction, Precautions: precautions}

	if token != "" {
		doctors, err := s.RecommendDoctors(ctx, token, prediction.SpecialtyID)
		if err != nil {
			s.logger.Warn().Int("specialty_id", prediction.SpecialtyID).Err(err).Msg("doctor recommendation dropped")
		} else {
			eval.Doctors = doctors
		}
	}

	return eval, nil
}

// History lists the caller's stored predictions.
func (s *Service) History(ctx context.Context, token, userID string) ([]upstream.StoredPrediction, error) {
	if token == "" || userID == "" {
		return nil, domain.NewAuthRequiredError("view prediction history")
	}
	return s.backend.PreviousPredictions(ctx, token, userID)
}

// DeleteHistoryEntry removes one stored prediction.
func (s *Service) DeleteHistoryEntry(ctx context.Context, token, id string) error {
	if token == "" {
		return domain.NewAuthRequiredError("manage prediction history")
	}
	if strings.TrimSpace(id) == "" {
		return domain.NewValidationError("prediction id is required")
	}
	return s.backend.DeletePrediction(ctx, token, id)
}
