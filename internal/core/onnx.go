//go:build !windows

package core

import (
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	initOnce sync.Once
	initErr  error
)

// InitOnnxRuntime loads the onnxruntime shared library and initializes the
// environment. Only the first call has any effect.
func InitOnnxRuntime(dylib string) error {
	initOnce.Do(func() {
		if dylib != "" {
			ort.SetSharedLibraryPath(dylib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("could not init ONNX Runtime: %w", err)
		}
	})
	return initErr
}

func DestroyOnnxRuntime() error {
	return ort.DestroyEnvironment()
}

// OnnxScorer wraps a session for a single-input single-output graph. Tensors
// are created per call, so concurrent Score calls never share buffers.
type OnnxScorer struct {
	path       string
	session    *ort.DynamicAdvancedSession
	inputShape []int64
	outputDim  int
}

func LoadOnnxScorer(spec ArtifactSpec, dir string) (Scorer, error) {
	if spec.Input == "" || spec.Output == "" {
		return nil, fmt.Errorf("onnx artifact %s requires input and output names", spec.Path)
	}
	if spec.OutputDim <= 0 {
		return nil, fmt.Errorf("onnx artifact %s requires a positive output_dim", spec.Path)
	}

	path := ArtifactPath(dir, spec.Path)
	session, err := ort.NewDynamicAdvancedSession(path, []string{spec.Input}, []string{spec.Output}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", path, err)
	}

	return &OnnxScorer{
		path:       path,
		session:    session,
		inputShape: spec.InputShape,
		outputDim:  spec.OutputDim,
	}, nil
}

func (m *OnnxScorer) Score(input Tensor) ([]float32, error) {
	if err := CheckShape(input.Shape, m.inputShape); err != nil {
		return nil, fmt.Errorf("input for %s: %w", m.path, err)
	}
	if len(input.Shape) == 0 || input.Shape[0] != 1 {
		return nil, fmt.Errorf("%w: %s accepts a batch of exactly one, got shape %v", ErrShapeMismatch, m.path, input.Shape)
	}

	inT, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}
	defer inT.Destroy()

	outT, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(m.outputDim)))
	if err != nil {
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}
	defer outT.Destroy()

	if err := m.session.Run([]ort.Value{inT}, []ort.Value{outT}); err != nil {
		return nil, fmt.Errorf("session run error for %s: %w", m.path, err)
	}

	scores := make([]float32, m.outputDim)
	copy(scores, outT.GetData())
	return scores, nil
}

func (m *OnnxScorer) Release() {
	if err := m.session.Destroy(); err != nil {
		slog.Error("error destroying onnx session", "path", m.path, "error", err)
	}
}
