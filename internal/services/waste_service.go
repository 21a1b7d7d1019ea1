package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/civicgrid/civicgrid-be/internal/apperr"
	"github.com/civicgrid/civicgrid-be/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// recyclingGuidelines maps a predicted waste class to its disposal tip.
var recyclingGuidelines = map[string]string{
	"Organic": "Compost or use as fertilizer.",
	"Plastic": "Recycle at a plastic waste facility.",
	"Metal":   "Send to a scrap metal collection center.",
	"Paper":   "Recycle in paper mills.",
	"E-waste": "Dispose at authorized e-waste centers.",
	"Glass":   "Recycle at glass recycling facilities.",
}

// WasteServiceProvider defines the interface for the waste classification service.
type WasteServiceProvider interface {
	Classify(ctx context.Context, username, filename string, image io.Reader) (models.ClassificationResult, error)
}

// WasteService classifies waste photos through a hosted inference endpoint
// and records the retained predictions. Classification runs synchronously
// within the caller's request: the result returned always corresponds to
// the image that was uploaded, and cancelling the request context aborts
// the upstream call.
type WasteService struct {
	db            *sql.DB
	events        EventServiceProvider
	apiURL        string
	apiKey        string
	modelID       string
	minConfidence float64
	client        *http.Client
}

// NewWasteService creates a new WasteService.
func NewWasteService(db *sql.DB, events EventServiceProvider, apiURL, apiKey, modelID string, minConfidence float64) *WasteService {
	return &WasteService{
		db:            db,
		events:        events,
		apiURL:        strings.TrimRight(apiURL, "/"),
		apiKey:        apiKey,
		modelID:       modelID,
		minConfidence: minConfidence,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
}

// Classify sends the image to the inference endpoint, filters the returned
// predictions at the configured confidence threshold, annotates each with
// its recycling guideline, and persists the retained ones. An empty result
// after filtering is a valid outcome, not an error.
func (s *WasteService) Classify(ctx context.Context, username, filename string, image io.Reader) (models.ClassificationResult, error) {
	predictions, err := s.infer(ctx, filename, image)
	if err != nil {
		return models.ClassificationResult{}, err
	}

	result := models.ClassificationResult{
		Predictions: make([]models.Prediction, 0, len(predictions)),
		Threshold:   s.minConfidence,
	}
	for _, p := range predictions {
		if p.Confidence < s.minConfidence {
			continue
		}
		p.Guideline = recyclingGuidelines[p.Class]
		result.Predictions = append(result.Predictions, p)

		if err := s.record(username, p); err != nil {
			// The classification already succeeded; a failed write must
			// not fail the request.
			log.Error().Err(err).Str("label", p.Class).Msg("Failed to record classification")
		}
	}

	msg := fmt.Sprintf("Classified waste image into %d categories", len(result.Predictions))
	if err := s.events.CreateEvent("waste.classify", "info", msg, &username); err != nil {
		log.Error().Err(err).Msg("Failed to record classification event")
	}

	return result, nil
}

// infer performs the actual inference request: a multipart image upload
// with the API key and confidence floor passed as query parameters.
func (s *WasteService) infer(ctx context.Context, filename string, image io.Reader) ([]models.Prediction, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("api_key", s.apiKey)
	params.Set("confidence", fmt.Sprintf("%.0f", s.minConfidence*100))
	endpoint := fmt.Sprintf("%s/%s?%s", s.apiURL, s.modelID, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference endpoint returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Predictions []models.Prediction `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("inference response malformed: %w", err)
	}
	return parsed.Predictions, nil
}

func (s *WasteService) record(username string, p models.Prediction) error {
	_, err := s.db.Exec(
		"INSERT INTO classifications (id, username, label, confidence) VALUES (?, ?, ?, ?)",
		uuid.New().String(), username, p.Class, p.Confidence,
	)
	if err != nil {
		return apperr.NewStorage("insert classification", err)
	}
	return nil
}
