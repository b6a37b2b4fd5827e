package core

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v2"
)

//go:embed default_manifest.yaml
var defaultManifestYAML []byte

// Manifest is the route table: which artifact serves each route and how
// uploaded images are prepared for it.
type Manifest struct {
	Labels           []string      `yaml:"labels"`
	ImageSize        int           `yaml:"image_size"`
	FeatureExtractor *ArtifactSpec `yaml:"feature_extractor"`
	Routes           []RouteSpec   `yaml:"routes"`
}

type RouteSpec struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Model       ArtifactSpec `yaml:"model"`
	Preprocess  Policy       `yaml:"preprocess"`
}

var routeNameRe = regexp.MustCompile(`^[\w-]+$`)

func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, fmt.Errorf("error parsing manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func DefaultManifest() *Manifest {
	m, err := ParseManifest(defaultManifestYAML)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded manifest: %v", err))
	}
	return m
}

// LoadManifest reads the manifest at path, falling back to the embedded
// default when the file does not exist.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultManifest(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

func (m *Manifest) Validate() error {
	if len(m.Labels) == 0 {
		return fmt.Errorf("manifest must define at least one label")
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("manifest image_size must be positive, got %d", m.ImageSize)
	}
	if len(m.Routes) == 0 {
		return fmt.Errorf("manifest must define at least one route")
	}

	seen := make(map[string]struct{}, len(m.Routes))
	for _, route := range m.Routes {
		if !routeNameRe.MatchString(route.Name) {
			return fmt.Errorf("invalid route name '%s': only alphanumeric characters, underscores, and hyphens are allowed", route.Name)
		}
		if _, ok := seen[route.Name]; ok {
			return fmt.Errorf("duplicate route '%s'", route.Name)
		}
		seen[route.Name] = struct{}{}

		if route.Model.Path == "" {
			return fmt.Errorf("route '%s' has no model path", route.Name)
		}
		if route.Model.OutputDim != 0 && route.Model.OutputDim != len(m.Labels) {
			return fmt.Errorf("route '%s' outputs %d scores but there are %d labels", route.Name, route.Model.OutputDim, len(m.Labels))
		}
		if !route.Preprocess.Normalize.Valid() {
			return fmt.Errorf("route '%s' has invalid normalize mode '%s'", route.Name, route.Preprocess.Normalize)
		}
		if route.Preprocess.Resize < 0 {
			return fmt.Errorf("route '%s' has negative resize %d", route.Name, route.Preprocess.Resize)
		}
		if route.Preprocess.Features && m.FeatureExtractor == nil {
			return fmt.Errorf("route '%s' requires features but no feature_extractor is configured", route.Name)
		}
		if !route.Preprocess.Features && len(route.Preprocess.Transforms) > 0 {
			return fmt.Errorf("route '%s' has transforms but does not use features", route.Name)
		}
	}

	return nil
}

func (m *Manifest) usesFeatures() bool {
	for _, route := range m.Routes {
		if route.Preprocess.Features {
			return true
		}
	}
	return false
}
