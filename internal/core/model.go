package core

import (
	"fmt"
	"path/filepath"
)

// ModelType identifies the kind of artifact behind a route.
type ModelType string

const (
	NeuralNetwork    ModelType = "neural_network"
	TreeEnsemble     ModelType = "tree_ensemble"
	KernelMachine    ModelType = "kernel_machine"
	FeatureExtractor ModelType = "feature_extractor"
)

// Scorer runs one artifact on a batch of one input and returns its flattened
// output. Implementations must be safe for concurrent use.
type Scorer interface {
	Score(input Tensor) ([]float32, error)

	Release()
}

// ArtifactSpec locates a serialized model and describes its input and output.
// InputShape may use -1 for dynamic dimensions.
type ArtifactSpec struct {
	Kind       ModelType `yaml:"kind"`
	Path       string    `yaml:"path"`
	Input      string    `yaml:"input"`
	Output     string    `yaml:"output"`
	InputShape []int64   `yaml:"input_shape"`
	OutputDim  int       `yaml:"output_dim"`
}

type ScorerLoader func(spec ArtifactSpec, dir string) (Scorer, error)

// NewScorerLoaders returns the default loaders. Every kind is served by ONNX
// Runtime: keras networks are exported with tf2onnx and the sklearn estimators
// with skl2onnx.
func NewScorerLoaders() map[ModelType]ScorerLoader {
	return map[ModelType]ScorerLoader{
		NeuralNetwork:    LoadOnnxScorer,
		TreeEnsemble:     LoadOnnxScorer,
		KernelMachine:    LoadOnnxScorer,
		FeatureExtractor: LoadOnnxScorer,
	}
}

func loadScorer(loaders map[ModelType]ScorerLoader, spec ArtifactSpec, dir string) (Scorer, error) {
	loader, ok := loaders[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("no loader registered for model kind '%s'", spec.Kind)
	}
	scorer, err := loader(spec, dir)
	if err != nil {
		return nil, fmt.Errorf("error loading %s model %s: %w", spec.Kind, spec.Path, err)
	}
	return scorer, nil
}

// ArtifactPath resolves a manifest path relative to the artifact directory.
func ArtifactPath(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
