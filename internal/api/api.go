package api

import (
	"errors"
	"leaf-backend/internal/core"
	"leaf-backend/pkg/api"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const (
	uploadField = "file"

	DefaultMaxUploadMemory = 32 << 20
)

type ClassifierService struct {
	registry        *core.Registry
	maxUploadMemory int64
}

func NewClassifierService(registry *core.Registry, maxUploadMemory int64) *ClassifierService {
	if maxUploadMemory <= 0 {
		maxUploadMemory = DefaultMaxUploadMemory
	}
	return &ClassifierService{registry: registry, maxUploadMemory: maxUploadMemory}
}

func (s *ClassifierService) AddRoutes(r chi.Router) {
	r.Get("/ping", RestHandler(s.Ping))
	r.Get("/models", RestHandler(s.ListModels))

	for _, classifier := range s.registry.Classifiers() {
		r.Post("/"+classifier.Name(), RestHandler(s.Predict(classifier)))
	}
}

func (s *ClassifierService) Ping(r *http.Request) (any, error) {
	return api.PingResponse{Message: "API is live"}, nil
}

func (s *ClassifierService) ListModels(r *http.Request) (any, error) {
	return convertClassifiers(s.registry.Classifiers()), nil
}

// Predict returns the handler for one route. Every route shares this handler,
// only the classifier differs.
func (s *ClassifierService) Predict(classifier *core.Classifier) func(r *http.Request) (any, error) {
	return func(r *http.Request) (any, error) {
		params, err := ParseRequestQueryParams[api.PredictionParams](r)
		if err != nil {
			return nil, err
		}

		data, err := ReadFormFile(r, uploadField, s.maxUploadMemory)
		if err != nil {
			return nil, err
		}

		prediction, err := classifier.Classify(data)
		if err != nil {
			var decodeErr *core.DecodeError
			if errors.As(err, &decodeErr) {
				return nil, CodedError(http.StatusInternalServerError, err)
			}
			slog.Error("error classifying image", "route", classifier.Name(), "error", err)
			return nil, CodedErrorf(http.StatusInternalServerError, "error running model %s", classifier.Name())
		}

		slog.Debug("classified image", "route", classifier.Name(), "class", prediction.Label, "confidence", prediction.Confidence)

		return convertPrediction(prediction, params.Scores), nil
	}
}
