// Package coretest provides in-memory scorers so the classification pipeline
// can be exercised without ONNX Runtime or real artifacts.
package coretest

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"leaf-backend/internal/core"

	"github.com/stretchr/testify/require"
)

var ErrFakeScorer = errors.New("fake scorer failure")

// FakeScorer returns a softmax over the means of OutputDim interleaved slices
// of its input, which makes the output depend on every input value.
type FakeScorer struct {
	Spec     core.ArtifactSpec
	Fail     bool
	calls    atomic.Int64
	released atomic.Bool
}

func (f *FakeScorer) Score(input core.Tensor) ([]float32, error) {
	f.calls.Add(1)
	if f.Fail {
		return nil, ErrFakeScorer
	}
	if err := core.CheckShape(input.Shape, f.Spec.InputShape); err != nil {
		return nil, err
	}

	dim := f.Spec.OutputDim
	sums := make([]float64, dim)
	counts := make([]float64, dim)
	for i, v := range input.Data {
		sums[i%dim] += float64(v)
		counts[i%dim]++
	}

	maxMean := math.Inf(-1)
	for i := range sums {
		if counts[i] > 0 {
			sums[i] /= counts[i]
		}
		maxMean = max(maxMean, sums[i])
	}

	var total float64
	for i := range sums {
		sums[i] = math.Exp(sums[i] - maxMean)
		total += sums[i]
	}

	out := make([]float32, dim)
	for i := range sums {
		out[i] = float32(sums[i] / total)
	}
	return out, nil
}

func (f *FakeScorer) Release() {
	f.released.Store(true)
}

func (f *FakeScorer) Calls() int64 {
	return f.calls.Load()
}

func (f *FakeScorer) Released() bool {
	return f.released.Load()
}

// FakeLoaders records every scorer it creates, keyed by artifact path.
type FakeLoaders struct {
	mu      sync.Mutex
	loaded  map[string][]*FakeScorer
	failing map[string]bool
}

func NewFakeLoaders() *FakeLoaders {
	return &FakeLoaders{
		loaded:  make(map[string][]*FakeScorer),
		failing: make(map[string]bool),
	}
}

// FailScoring makes scorers loaded for path return ErrFakeScorer.
func (l *FakeLoaders) FailScoring(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failing[path] = true
}

func (l *FakeLoaders) load(spec core.ArtifactSpec, dir string) (core.Scorer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	scorer := &FakeScorer{Spec: spec, Fail: l.failing[spec.Path]}
	l.loaded[spec.Path] = append(l.loaded[spec.Path], scorer)
	return scorer, nil
}

func (l *FakeLoaders) Loaders() map[core.ModelType]core.ScorerLoader {
	return map[core.ModelType]core.ScorerLoader{
		core.NeuralNetwork:    l.load,
		core.TreeEnsemble:     l.load,
		core.KernelMachine:    l.load,
		core.FeatureExtractor: l.load,
	}
}

func (l *FakeLoaders) Loaded(path string) []*FakeScorer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[path]
}

func (l *FakeLoaders) All() []*FakeScorer {
	l.mu.Lock()
	defer l.mu.Unlock()
	var all []*FakeScorer
	for _, scorers := range l.loaded {
		all = append(all, scorers...)
	}
	return all
}

// WriteSvmTransforms writes the scaler and PCA files referenced by the default
// manifest, reducing inDim features to outDim components.
func WriteSvmTransforms(t testing.TB, dir string, inDim, outDim int) {
	scaler := core.StandardScaler{Mean: make([]float64, inDim), Scale: make([]float64, inDim)}
	for i := range scaler.Scale {
		scaler.Mean[i] = 0.001 * float64(i%7)
		scaler.Scale[i] = 1 + 0.01*float64(i%5)
	}

	pca := core.PCA{Mean: make([]float64, inDim), Components: make([][]float64, outDim)}
	for j := range pca.Components {
		pca.Components[j] = make([]float64, inDim)
		for i := range pca.Components[j] {
			if i%outDim == j {
				pca.Components[j][i] = 1 / math.Sqrt(float64(inDim/outDim))
			}
		}
	}

	writeJSON(t, filepath.Join(dir, "svm_scaler.json"), scaler)
	writeJSON(t, filepath.Join(dir, "svm_pca.json"), pca)
}

func writeJSON(t testing.TB, path string, v any) {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

// NewDefaultRegistry loads the default manifest with fake scorers.
func NewDefaultRegistry(t testing.TB) (*core.Registry, *FakeLoaders) {
	dir := t.TempDir()
	WriteSvmTransforms(t, dir, 1280, 64)

	loaders := NewFakeLoaders()
	registry, err := core.LoadRegistry(core.DefaultManifest(), dir, loaders.Loaders())
	require.NoError(t, err)
	t.Cleanup(registry.Release)

	return registry, loaders
}
