package core_test

import (
	"testing"

	"leaf-backend/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var labels = []string{"Early Blight", "Late Blight", "Healthy"}

func TestArgMax(t *testing.T) {
	assert.Equal(t, 1, core.ArgMax([]float32{0.1, 0.8, 0.1}))
	assert.Equal(t, 0, core.ArgMax([]float32{0.4, 0.4, 0.2}))
	assert.Equal(t, 1, core.ArgMax([]float32{0.2, 0.4, 0.4}))
	assert.Equal(t, 0, core.ArgMax([]float32{0.5}))
	assert.Equal(t, -1, core.ArgMax(nil))
}

func TestMapPrediction(t *testing.T) {
	prediction, err := core.MapPrediction([]float32{0.1, 0.2, 0.7}, labels)
	require.NoError(t, err)

	assert.Equal(t, "Healthy", prediction.Label)
	assert.Equal(t, 2, prediction.Index)
	assert.InDelta(t, 0.7, prediction.Confidence, 1e-6)
	assert.InDelta(t, 0.2, prediction.ScoreMap()["Late Blight"], 1e-6)

	_, err = core.MapPrediction([]float32{0.5, 0.5}, labels)
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
}
