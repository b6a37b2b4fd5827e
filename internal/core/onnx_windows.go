//go:build windows

package core

import "errors"

var ErrOnnxNotSupportedOnWindows = errors.New("ONNX models are not supported on Windows")

func InitOnnxRuntime(dylib string) error {
	return ErrOnnxNotSupportedOnWindows
}

func DestroyOnnxRuntime() error {
	return nil
}

func LoadOnnxScorer(spec ArtifactSpec, dir string) (Scorer, error) {
	return nil, ErrOnnxNotSupportedOnWindows
}
