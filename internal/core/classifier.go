package core

import (
	"fmt"
	"leaf-backend/internal/core/types"
)

// Classifier is the full image-to-prediction path for one route. It holds only
// immutable state, so a single instance serves concurrent requests.
type Classifier struct {
	name        string
	description string
	kind        ModelType
	imageSize   int
	labels      []string
	policy      Policy

	extractor  Scorer
	featureDim int
	transforms []Transform

	scorer Scorer
}

type ClassifierParams struct {
	Name        string
	Description string
	Kind        ModelType
	ImageSize   int
	Labels      []string
	Policy      Policy

	// Extractor and FeatureDim are required when Policy.Features is set.
	Extractor  Scorer
	FeatureDim int
	Transforms []Transform

	Scorer Scorer
}

func NewClassifier(params ClassifierParams) (*Classifier, error) {
	if params.Scorer == nil {
		return nil, fmt.Errorf("classifier '%s' has no scorer", params.Name)
	}
	if len(params.Labels) == 0 {
		return nil, fmt.Errorf("classifier '%s' has no labels", params.Name)
	}
	if params.ImageSize <= 0 {
		return nil, fmt.Errorf("classifier '%s' has invalid image size %d", params.Name, params.ImageSize)
	}
	if !params.Policy.Normalize.Valid() {
		return nil, fmt.Errorf("classifier '%s' has invalid normalize mode '%s'", params.Name, params.Policy.Normalize)
	}

	if params.Policy.Features {
		if params.Extractor == nil || params.FeatureDim <= 0 {
			return nil, fmt.Errorf("classifier '%s' uses features but has no feature extractor", params.Name)
		}
		dim := params.FeatureDim
		for i, t := range params.Transforms {
			if t.InputDim() != dim {
				return nil, fmt.Errorf("%w: classifier '%s' transform %d expects %d features, previous stage produces %d", ErrShapeMismatch, params.Name, i, t.InputDim(), dim)
			}
			dim = t.OutputDim()
		}
	} else if len(params.Transforms) > 0 {
		return nil, fmt.Errorf("classifier '%s' has transforms but does not use features", params.Name)
	}

	return &Classifier{
		name:        params.Name,
		description: params.Description,
		kind:        params.Kind,
		imageSize:   params.ImageSize,
		labels:      params.Labels,
		policy:      params.Policy,
		extractor:   params.Extractor,
		featureDim:  params.FeatureDim,
		transforms:  params.Transforms,
		scorer:      params.Scorer,
	}, nil
}

func (c *Classifier) Name() string        { return c.name }
func (c *Classifier) Description() string { return c.description }
func (c *Classifier) Kind() ModelType     { return c.kind }
func (c *Classifier) ImageSize() int      { return c.imageSize }
func (c *Classifier) Policy() Policy      { return c.policy }

// InputSize is the resolution fed to the model or feature extractor.
func (c *Classifier) InputSize() int {
	if c.policy.Resize > 0 {
		return c.policy.Resize
	}
	return c.imageSize
}

// Classify decodes the uploaded bytes and runs them through the route's
// preprocessing, optional feature extraction, transforms and scorer.
func (c *Classifier) Classify(data []byte) (types.Prediction, error) {
	img, err := DecodeImage(data, c.imageSize)
	if err != nil {
		return types.Prediction{}, err
	}

	input, err := Preprocess(img, c.policy)
	if err != nil {
		return types.Prediction{}, fmt.Errorf("error preprocessing image for %s: %w", c.name, err)
	}

	if c.policy.Features {
		input, err = c.embed(input)
		if err != nil {
			return types.Prediction{}, err
		}
	}

	scores, err := c.scorer.Score(input)
	if err != nil {
		return types.Prediction{}, fmt.Errorf("error running %s: %w", c.name, err)
	}

	return MapPrediction(scores, c.labels)
}

func (c *Classifier) embed(input Tensor) (Tensor, error) {
	features, err := c.extractor.Score(input)
	if err != nil {
		return Tensor{}, fmt.Errorf("error extracting features for %s: %w", c.name, err)
	}
	if len(features) != c.featureDim {
		return Tensor{}, fmt.Errorf("%w: feature extractor returned %d values, expected %d", ErrShapeMismatch, len(features), c.featureDim)
	}

	for _, t := range c.transforms {
		if features, err = t.Apply(features); err != nil {
			return Tensor{}, fmt.Errorf("error transforming features for %s: %w", c.name, err)
		}
	}

	return NewTensor([]int64{1, int64(len(features))}, features)
}
