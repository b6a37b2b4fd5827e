package core_test

import (
	"sync"
	"testing"

	"leaf-backend/internal/core"
	"leaf-backend/internal/core/coretest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_DefaultManifest(t *testing.T) {
	registry, loaders := coretest.NewDefaultRegistry(t)

	var names []string
	for _, c := range registry.Classifiers() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"model1", "model2", "model3", "model4", "model5"}, names)

	// The feature extractor is shared by model4 and model5.
	assert.Len(t, loaders.Loaded("efficientnetb0_features.onnx"), 1)

	c, ok := registry.Get("model5")
	require.True(t, ok)
	assert.Equal(t, 128, c.InputSize())
	assert.Equal(t, core.KernelMachine, c.Kind())

	_, ok = registry.Get("model6")
	assert.False(t, ok)
}

func TestClassify_AllRoutes(t *testing.T) {
	registry, loaders := coretest.NewDefaultRegistry(t)
	data := coretest.EncodePNG(t, coretest.Gradient(300, 200))

	for _, c := range registry.Classifiers() {
		t.Run(c.Name(), func(t *testing.T) {
			prediction, err := c.Classify(data)
			require.NoError(t, err)

			assert.Contains(t, labels, prediction.Label)
			assert.Equal(t, labels[prediction.Index], prediction.Label)
			assert.GreaterOrEqual(t, prediction.Confidence, float32(0))
			assert.LessOrEqual(t, prediction.Confidence, float32(1))
			assert.Equal(t, prediction.Scores[core.ArgMax(prediction.Scores)], prediction.Confidence)

			again, err := c.Classify(data)
			require.NoError(t, err)
			assert.Equal(t, prediction, again)
		})
	}

	assert.Equal(t, int64(4), loaders.Loaded("efficientnetb0_features.onnx")[0].Calls())
}

func TestClassify_FeatureInputShape(t *testing.T) {
	registry, loaders := coretest.NewDefaultRegistry(t)
	data := coretest.EncodePNG(t, coretest.Gradient(64, 64))

	for _, name := range []string{"model4", "model5"} {
		c, _ := registry.Get(name)
		_, err := c.Classify(data)
		require.NoError(t, err)
	}

	// model4 checks its [1, 1280] input, model5 receives the 64 PCA components.
	rf := loaders.Loaded("rf_model.onnx")[0]
	assert.Equal(t, []int64{1, 1280}, rf.Spec.InputShape)
	assert.Equal(t, int64(1), rf.Calls())
	assert.Equal(t, int64(1), loaders.Loaded("svm_model.onnx")[0].Calls())
}

func TestClassify_Errors(t *testing.T) {
	dir := t.TempDir()
	coretest.WriteSvmTransforms(t, dir, 1280, 64)

	loaders := coretest.NewFakeLoaders()
	loaders.FailScoring("resnet50_model.onnx")

	registry, err := core.LoadRegistry(core.DefaultManifest(), dir, loaders.Loaders())
	require.NoError(t, err)
	defer registry.Release()

	c, _ := registry.Get("model3")
	_, err = c.Classify(coretest.EncodePNG(t, coretest.Gradient(8, 8)))
	assert.ErrorIs(t, err, coretest.ErrFakeScorer)

	c, _ = registry.Get("model1")
	_, err = c.Classify([]byte("definitely not an image"))
	var decodeErr *core.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestClassify_Concurrent(t *testing.T) {
	registry, _ := coretest.NewDefaultRegistry(t)
	data := coretest.EncodePNG(t, coretest.Gradient(32, 32))

	expected := make(map[string]string)
	for _, c := range registry.Classifiers() {
		prediction, err := c.Classify(data)
		require.NoError(t, err)
		expected[c.Name()] = prediction.Label
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		for _, c := range registry.Classifiers() {
			wg.Add(1)
			go func(c *core.Classifier) {
				defer wg.Done()
				prediction, err := c.Classify(data)
				assert.NoError(t, err)
				assert.Equal(t, expected[c.Name()], prediction.Label)
			}(c)
		}
	}
	wg.Wait()
}

func TestLoadRegistry_ReleasesOnFailure(t *testing.T) {
	dir := t.TempDir()
	// Scaler dimension does not match the 1280 features.
	coretest.WriteSvmTransforms(t, dir, 640, 64)

	loaders := coretest.NewFakeLoaders()
	_, err := core.LoadRegistry(core.DefaultManifest(), dir, loaders.Loaders())
	require.ErrorIs(t, err, core.ErrShapeMismatch)

	all := loaders.All()
	require.NotEmpty(t, all)
	for _, s := range all {
		assert.True(t, s.Released())
	}
}

func TestLoadRegistry_MissingTransforms(t *testing.T) {
	loaders := coretest.NewFakeLoaders()
	_, err := core.LoadRegistry(core.DefaultManifest(), t.TempDir(), loaders.Loaders())
	assert.Error(t, err)
}

func TestLoadRegistry_UnknownKind(t *testing.T) {
	m, err := core.ParseManifest([]byte(`
labels: [a, b]
image_size: 16
routes:
  - name: gbm
    model: {kind: gradient_boosting, path: gbm.onnx, output_dim: 2}
    preprocess: {normalize: unit}
`))
	require.NoError(t, err)

	_, err = core.LoadRegistry(m, t.TempDir(), coretest.NewFakeLoaders().Loaders())
	assert.Error(t, err)
}

func TestRegistry_Release(t *testing.T) {
	registry, loaders := coretest.NewDefaultRegistry(t)
	registry.Release()

	for _, s := range loaders.All() {
		assert.True(t, s.Released())
	}
}

func TestNewClassifier_Validation(t *testing.T) {
	scorer := &coretest.FakeScorer{Spec: core.ArtifactSpec{OutputDim: 3}}
	base := core.ClassifierParams{
		Name:      "m",
		ImageSize: 16,
		Labels:    labels,
		Policy:    core.Policy{Normalize: core.NormalizeRaw},
		Scorer:    scorer,
	}

	_, err := core.NewClassifier(base)
	require.NoError(t, err)

	noScorer := base
	noScorer.Scorer = nil
	_, err = core.NewClassifier(noScorer)
	assert.Error(t, err)

	noExtractor := base
	noExtractor.Policy.Features = true
	_, err = core.NewClassifier(noExtractor)
	assert.Error(t, err)

	chain := base
	chain.Policy.Features = true
	chain.Extractor = scorer
	chain.FeatureDim = 4
	chain.Transforms = []core.Transform{&core.StandardScaler{Mean: []float64{0, 0, 0}}}
	_, err = core.NewClassifier(chain)
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
}
