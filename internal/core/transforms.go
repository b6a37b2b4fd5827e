package core

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

type TransformKind string

const (
	StandardScalerTransform TransformKind = "standard_scaler"
	PCATransform            TransformKind = "pca"
)

type TransformSpec struct {
	Kind TransformKind `yaml:"kind"`
	Path string        `yaml:"path"`
}

// Transform is a feature transform fit offline and applied to a single
// embedding at inference time.
type Transform interface {
	InputDim() int
	OutputDim() int
	Apply(x []float32) ([]float32, error)
}

// StandardScaler computes (x - mean) / scale per feature.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) validate() error {
	if len(s.Mean) == 0 {
		return fmt.Errorf("standard scaler has no features")
	}
	if s.Scale != nil && len(s.Scale) != len(s.Mean) {
		return fmt.Errorf("standard scaler has %d means and %d scales", len(s.Mean), len(s.Scale))
	}
	return nil
}

func (s *StandardScaler) InputDim() int  { return len(s.Mean) }
func (s *StandardScaler) OutputDim() int { return len(s.Mean) }

func (s *StandardScaler) Apply(x []float32) ([]float32, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("%w: standard scaler expects %d features, got %d", ErrShapeMismatch, len(s.Mean), len(x))
	}

	out := make([]float32, len(x))
	for i, v := range x {
		scaled := float64(v) - s.Mean[i]
		if s.Scale != nil && s.Scale[i] != 0 {
			scaled /= s.Scale[i]
		}
		out[i] = float32(scaled)
	}
	return out, nil
}

// PCA projects centered features onto the fitted components, optionally
// whitening by the explained variance.
type PCA struct {
	Mean              []float64   `json:"mean"`
	Components        [][]float64 `json:"components"`
	ExplainedVariance []float64   `json:"explained_variance"`
	Whiten            bool        `json:"whiten"`
}

func (p *PCA) validate() error {
	if len(p.Components) == 0 {
		return fmt.Errorf("pca has no components")
	}
	for i, component := range p.Components {
		if len(component) != len(p.Mean) {
			return fmt.Errorf("pca component %d has %d values, expected %d", i, len(component), len(p.Mean))
		}
	}
	if p.Whiten && len(p.ExplainedVariance) != len(p.Components) {
		return fmt.Errorf("pca whitening requires %d explained variances, got %d", len(p.Components), len(p.ExplainedVariance))
	}
	return nil
}

func (p *PCA) InputDim() int  { return len(p.Mean) }
func (p *PCA) OutputDim() int { return len(p.Components) }

func (p *PCA) Apply(x []float32) ([]float32, error) {
	if len(x) != len(p.Mean) {
		return nil, fmt.Errorf("%w: pca expects %d features, got %d", ErrShapeMismatch, len(p.Mean), len(x))
	}

	out := make([]float32, len(p.Components))
	for j, component := range p.Components {
		var sum float64
		for i, v := range x {
			sum += (float64(v) - p.Mean[i]) * component[i]
		}
		if p.Whiten {
			sum /= math.Sqrt(p.ExplainedVariance[j])
		}
		out[j] = float32(sum)
	}
	return out, nil
}

func LoadTransform(spec TransformSpec, dir string) (Transform, error) {
	path := ArtifactPath(dir, spec.Path)

	var (
		transform Transform
		validate  func() error
	)
	switch spec.Kind {
	case StandardScalerTransform:
		scaler := &StandardScaler{}
		transform, validate = scaler, scaler.validate
	case PCATransform:
		pca := &PCA{}
		transform, validate = pca, pca.validate
	default:
		return nil, fmt.Errorf("unknown transform kind '%s'", spec.Kind)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s transform: %w", spec.Kind, err)
	}

	if err := json.Unmarshal(data, transform); err != nil {
		return nil, fmt.Errorf("error parsing %s transform %s: %w", spec.Kind, path, err)
	}

	if err := validate(); err != nil {
		return nil, fmt.Errorf("invalid %s transform %s: %w", spec.Kind, path, err)
	}

	return transform, nil
}
