package api

import (
	"leaf-backend/internal/core"
	"leaf-backend/internal/core/types"
	"leaf-backend/pkg/api"
)

func convertPrediction(p types.Prediction, withScores bool) api.PredictionResponse {
	res := api.PredictionResponse{
		Class:        p.Label,
		Confidence:   float64(p.Confidence),
		DiseaseClass: p.Label,
	}

	if withScores {
		res.Scores = make(map[string]float64, len(p.Scores))
		for label, score := range p.ScoreMap() {
			res.Scores[label] = float64(score)
		}
	}

	return res
}

func convertClassifier(c *core.Classifier) api.ModelInfo {
	policy := c.Policy()
	return api.ModelInfo{
		Name:        c.Name(),
		Kind:        string(c.Kind()),
		Description: c.Description(),
		ImageSize:   c.InputSize(),
		Features:    policy.Features,
		Normalize:   string(policy.Normalize),
	}
}

func convertClassifiers(cs []*core.Classifier) []api.ModelInfo {
	models := make([]api.ModelInfo, 0, len(cs))
	for _, c := range cs {
		models = append(models, convertClassifier(c))
	}
	return models
}
