package core

import (
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	ErrShapeMismatch  = errors.New("tensor shape mismatch")
	ErrRangeViolation = errors.New("tensor value out of range")
)

type Normalization string

const (
	// NormalizeRaw keeps pixel values in [0, 255].
	NormalizeRaw Normalization = "raw"
	// NormalizeUnit divides pixel values by 255.
	NormalizeUnit Normalization = "unit"
)

func (n Normalization) Valid() bool {
	return n == NormalizeRaw || n == NormalizeUnit
}

func (n Normalization) maxValue() float32 {
	if n == NormalizeUnit {
		return 1
	}
	return 255
}

// Policy describes how a decoded image becomes the tensor a route's artifact was
// trained on. The resize target and normalization are part of the artifact's
// contract, a mismatch does not fail inference, it silently changes the output.
type Policy struct {
	Resize     int             `yaml:"resize"`
	Normalize  Normalization   `yaml:"normalize"`
	Features   bool            `yaml:"features"`
	Transforms []TransformSpec `yaml:"transforms"`
}

// Tensor is a dense float32 tensor in row-major order. Image tensors are NHWC.
type Tensor struct {
	Shape []int64
	Data  []float32
}

func NewTensor(shape []int64, data []float32) (Tensor, error) {
	size := int64(1)
	for _, dim := range shape {
		if dim <= 0 {
			return Tensor{}, fmt.Errorf("%w: invalid dimension %d in shape %v", ErrShapeMismatch, dim, shape)
		}
		size *= dim
	}
	if size != int64(len(data)) {
		return Tensor{}, fmt.Errorf("%w: shape %v requires %d values, got %d", ErrShapeMismatch, shape, size, len(data))
	}
	return Tensor{Shape: shape, Data: data}, nil
}

// CheckShape compares a tensor shape against a declared shape, where -1 in the
// declared shape matches any size. An empty declared shape matches anything.
func CheckShape(got, want []int64) error {
	if len(want) == 0 {
		return nil
	}
	if len(got) != len(want) {
		return fmt.Errorf("%w: got %v, expected %v", ErrShapeMismatch, got, want)
	}
	for i := range want {
		if want[i] >= 0 && got[i] != want[i] {
			return fmt.Errorf("%w: got %v, expected %v", ErrShapeMismatch, got, want)
		}
	}
	return nil
}

// Preprocess converts a decoded image to a batch of one NHWC tensor following
// the policy. The result is checked for shape and value range before it is
// returned.
func Preprocess(img *image.NRGBA, policy Policy) (Tensor, error) {
	if !policy.Normalize.Valid() {
		return Tensor{}, fmt.Errorf("invalid normalization mode '%s'", policy.Normalize)
	}

	bounds := img.Bounds()
	height, width := bounds.Dy(), bounds.Dx()
	pixels := pixelValues(img)

	if policy.Resize > 0 && (policy.Resize != height || policy.Resize != width) {
		pixels = resizeBilinear(pixels, height, width, policy.Resize, policy.Resize)
		height, width = policy.Resize, policy.Resize
	}

	if policy.Normalize == NormalizeUnit {
		for i := range pixels {
			pixels[i] /= 255
		}
	}

	tensor, err := NewTensor([]int64{1, int64(height), int64(width), 3}, pixels)
	if err != nil {
		return Tensor{}, err
	}

	if err := checkRange(tensor.Data, policy.Normalize.maxValue()); err != nil {
		return Tensor{}, err
	}

	return tensor, nil
}

func pixelValues(img *image.NRGBA) []float32 {
	bounds := img.Bounds()
	height, width := bounds.Dy(), bounds.Dx()

	values := make([]float32, 0, height*width*3)
	for y := 0; y < height; y++ {
		start := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		row := img.Pix[start : start+width*4]
		for x := 0; x < width; x++ {
			px := row[x*4 : x*4+3]
			values = append(values, float32(px[0]), float32(px[1]), float32(px[2]))
		}
	}
	return values
}

type interpolation struct {
	lower, upper int
	lerp         float32
}

func interpolationWeights(outSize, inSize int) []interpolation {
	scale := float32(inSize) / float32(outSize)
	weights := make([]interpolation, outSize)
	for i := range weights {
		in := (float32(i)+0.5)*scale - 0.5
		inF := float32(math.Floor(float64(in)))
		weights[i] = interpolation{
			lower: max(int(inF), 0),
			upper: min(int(math.Ceil(float64(in))), inSize-1),
			lerp:  in - inF,
		}
	}
	return weights
}

// resizeBilinear resizes an HWC float image using half pixel centers without
// antialiasing. The output is not quantized.
func resizeBilinear(src []float32, inH, inW, outH, outW int) []float32 {
	ys := interpolationWeights(outH, inH)
	xs := interpolationWeights(outW, inW)

	at := func(y, x, c int) float32 {
		return src[(y*inW+x)*3+c]
	}

	dst := make([]float32, outH*outW*3)
	for oy, wy := range ys {
		for ox, wx := range xs {
			for c := 0; c < 3; c++ {
				topLeft, topRight := at(wy.lower, wx.lower, c), at(wy.lower, wx.upper, c)
				bottomLeft, bottomRight := at(wy.upper, wx.lower, c), at(wy.upper, wx.upper, c)

				top := topLeft + (topRight-topLeft)*wx.lerp
				bottom := bottomLeft + (bottomRight-bottomLeft)*wx.lerp
				dst[(oy*outW+ox)*3+c] = top + (bottom-top)*wy.lerp
			}
		}
	}
	return dst
}

func checkRange(values []float32, maxValue float32) error {
	for i, v := range values {
		if math.IsNaN(float64(v)) || v < 0 || v > maxValue {
			return fmt.Errorf("%w: value %v at index %d outside [0, %v]", ErrRangeViolation, v, i, maxValue)
		}
	}
	return nil
}
