package core

import (
	"fmt"
	"leaf-backend/internal/core/types"
)

// ArgMax returns the index of the largest score. The first index wins on ties.
func ArgMax(scores []float32) int {
	if len(scores) == 0 {
		return -1
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}

func MapPrediction(scores []float32, labels []string) (types.Prediction, error) {
	if len(scores) != len(labels) {
		return types.Prediction{}, fmt.Errorf("%w: score vector has %d values, expected %d", ErrShapeMismatch, len(scores), len(labels))
	}

	idx := ArgMax(scores)
	if idx < 0 {
		return types.Prediction{}, fmt.Errorf("%w: empty score vector", ErrShapeMismatch)
	}

	return types.Prediction{
		Label:      labels[idx],
		Index:      idx,
		Confidence: scores[idx],
		Scores:     scores,
		Labels:     labels,
	}, nil
}
