package core

import (
	"fmt"
	"log/slog"
)

// Registry holds the classifiers for every configured route. Artifacts are
// loaded once and never mutated, the registry is shared by all requests.
type Registry struct {
	classifiers map[string]*Classifier
	order       []string
	scorers     []Scorer
}

func NewRegistry(classifiers ...*Classifier) (*Registry, error) {
	r := &Registry{classifiers: make(map[string]*Classifier, len(classifiers))}
	for _, c := range classifiers {
		if _, ok := r.classifiers[c.name]; ok {
			return nil, fmt.Errorf("duplicate classifier '%s'", c.name)
		}
		r.classifiers[c.name] = c
		r.order = append(r.order, c.name)
	}
	return r, nil
}

// LoadRegistry loads every artifact named in the manifest from dir. The shared
// feature extractor is loaded once and reused by every route that needs it.
func LoadRegistry(m *Manifest, dir string, loaders map[ModelType]ScorerLoader) (*Registry, error) {
	var (
		loaded      []Scorer
		classifiers []*Classifier
		extractor   Scorer
		featureDim  int
	)

	fail := func(err error) (*Registry, error) {
		for _, s := range loaded {
			s.Release()
		}
		return nil, err
	}

	if m.usesFeatures() {
		var err error
		extractor, err = loadScorer(loaders, *m.FeatureExtractor, dir)
		if err != nil {
			return fail(fmt.Errorf("error loading feature extractor: %w", err))
		}
		loaded = append(loaded, extractor)
		featureDim = m.FeatureExtractor.OutputDim
		slog.Info("loaded feature extractor", "path", m.FeatureExtractor.Path, "dim", featureDim)
	}

	for _, route := range m.Routes {
		scorer, err := loadScorer(loaders, route.Model, dir)
		if err != nil {
			return fail(fmt.Errorf("error loading route '%s': %w", route.Name, err))
		}
		loaded = append(loaded, scorer)

		var transforms []Transform
		for _, spec := range route.Preprocess.Transforms {
			t, err := LoadTransform(spec, dir)
			if err != nil {
				return fail(fmt.Errorf("error loading route '%s': %w", route.Name, err))
			}
			transforms = append(transforms, t)
		}

		if route.Preprocess.Features {
			if err := checkFeatureInput(route, featureDim, transforms); err != nil {
				return fail(err)
			}
		}

		params := ClassifierParams{
			Name:        route.Name,
			Description: route.Description,
			Kind:        route.Model.Kind,
			ImageSize:   m.ImageSize,
			Labels:      m.Labels,
			Policy:      route.Preprocess,
			Transforms:  transforms,
			Scorer:      scorer,
		}
		if route.Preprocess.Features {
			params.Extractor = extractor
			params.FeatureDim = featureDim
		}

		classifier, err := NewClassifier(params)
		if err != nil {
			return fail(err)
		}
		classifiers = append(classifiers, classifier)

		slog.Info("loaded route", "route", route.Name, "kind", route.Model.Kind, "path", route.Model.Path)
	}

	registry, err := NewRegistry(classifiers...)
	if err != nil {
		return fail(err)
	}
	registry.scorers = loaded
	return registry, nil
}

func checkFeatureInput(route RouteSpec, featureDim int, transforms []Transform) error {
	dim := featureDim
	if len(transforms) > 0 {
		dim = transforms[len(transforms)-1].OutputDim()
	}
	if err := CheckShape([]int64{1, int64(dim)}, route.Model.InputShape); err != nil {
		return fmt.Errorf("route '%s' feature chain does not match model input: %w", route.Name, err)
	}
	return nil
}

func (r *Registry) Get(name string) (*Classifier, bool) {
	c, ok := r.classifiers[name]
	return c, ok
}

// Classifiers returns the classifiers in manifest order.
func (r *Registry) Classifiers() []*Classifier {
	out := make([]*Classifier, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.classifiers[name])
	}
	return out
}

// Release frees the artifacts loaded by LoadRegistry.
func (r *Registry) Release() {
	for _, s := range r.scorers {
		s.Release()
	}
	r.scorers = nil
}
