// Package image encodes pre-decoded pixel buffers into normalised
// embedding vectors via a vision model, with a global-average-pooling
// fallback for feature-map outputs.
package image

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Encoder implements the interface.
var _ driven.ImageEncoder = (*Encoder)(nil)

// channels is the planar channel count after dropping alpha.
const channels = 3

// Encoder produces one normalised vector per image.
type Encoder struct {
	model  driven.VisionModel
	width  int
	height int
}

// NewEncoder wires a vision model at a fixed input size.
func NewEncoder(model driven.VisionModel, width, height int) *Encoder {
	return &Encoder{model: model, width: width, height: height}
}

// Dimension returns the embedding vector size.
func (e *Encoder) Dimension() int {
	return e.model.OutputSize()
}

// ModelName returns the name of the encoder model.
func (e *Encoder) ModelName() string {
	return e.model.Name()
}

// EncodeBatch preprocesses and encodes a batch of images.
func (e *Encoder) EncodeBatch(ctx context.Context, images []driven.Image) ([][]float32, error) {
	if len(images) == 0 {
		return [][]float32{}, nil
	}

	plane := channels * e.width * e.height
	pixels := driven.Tensor{
		Shape: []int{len(images), channels, e.height, e.width},
		Data:  make([]float32, len(images)*plane),
	}
	for i, img := range images {
		planar, err := Preprocess(img.Pixels, img.Width, img.Height)
		if err != nil {
			return nil, err
		}
		if img.Width != e.width || img.Height != e.height {
			return nil, fmt.Errorf("%w: image %dx%d, want %dx%d",
				domain.ErrInvalidInput, img.Width, img.Height, e.width, e.height)
		}
		copy(pixels.Data[i*plane:(i+1)*plane], planar)
	}

	out, err := e.model.Forward(ctx, pixels)
	if err != nil {
		return nil, fmt.Errorf("vision model forward: %w", err)
	}

	vectors, err := poolVision(out)
	if err != nil {
		return nil, err
	}
	for i := range vectors {
		normaliseL2(vectors[i])
	}
	return vectors, nil
}

// Preprocess converts an interleaved RGBA byte buffer into a planar
// (channel-major) float32 array scaled to [0, 1], dropping alpha.
func Preprocess(rgba []byte, width, height int) ([]float32, error) {
	if len(rgba) != width*height*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d RGBA",
			domain.ErrInvalidInput, len(rgba), width, height)
	}

	n := width * height
	planar := make([]float32, channels*n)
	for i := 0; i < n; i++ {
		r := float32(rgba[i*4]) / 255
		g := float32(rgba[i*4+1]) / 255
		b := float32(rgba[i*4+2]) / 255
		planar[i] = r
		planar[n+i] = g
		planar[2*n+i] = b
	}
	return planar, nil
}

// poolVision reduces the model output to one vector per image. A 2-D
// [batch, dim] tensor is already an embedding; a 4-D feature map
// [batch, channels, height, width] is global-average-pooled over the
// spatial dimensions per channel.
func poolVision(out driven.Tensor) ([][]float32, error) {
	switch out.Rank() {
	case 2:
		batch, dim := out.Shape[0], out.Shape[1]
		if len(out.Data) != batch*dim {
			return nil, fmt.Errorf("%w: data length %d for shape %v",
				domain.ErrUnsupportedVisionOutput, len(out.Data), out.Shape)
		}
		vectors := make([][]float32, batch)
		for i := range vectors {
			vectors[i] = append([]float32(nil), out.Data[i*dim:(i+1)*dim]...)
		}
		return vectors, nil
	case 4:
		batch, ch, h, w := out.Shape[0], out.Shape[1], out.Shape[2], out.Shape[3]
		if len(out.Data) != batch*ch*h*w {
			return nil, fmt.Errorf("%w: data length %d for shape %v",
				domain.ErrUnsupportedVisionOutput, len(out.Data), out.Shape)
		}
		spatial := h * w
		vectors := make([][]float32, batch)
		for b := 0; b < batch; b++ {
			vec := make([]float32, ch)
			for c := 0; c < ch; c++ {
				base := (b*ch + c) * spatial
				var sum float32
				for s := 0; s < spatial; s++ {
					sum += out.Data[base+s]
				}
				vec[c] = sum / float32(spatial)
			}
			vectors[b] = vec
		}
		return vectors, nil
	default:
		return nil, fmt.Errorf("%w: rank %d", domain.ErrUnsupportedVisionOutput, out.Rank())
	}
}

// Label pairs a classification label with its score.
type Label struct {
	// Name is the human-readable label.
	Name string

	// Score is the raw logit.
	Score float32
}

// TopKLabels maps raw classification logits to their highest-scoring
// labels. Diagnostics only; not part of the retrieval path.
func TopKLabels(logits []float32, labels []string, k int) []Label {
	if k <= 0 {
		return nil
	}
	n := len(logits)
	if len(labels) < n {
		n = len(labels)
	}
	out := make([]Label, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Label{Name: labels[i], Score: logits[i]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// normaliseL2 scales the vector to unit length in place, treating a zero
// norm as 1.
func normaliseL2(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	n := math.Sqrt(sum)
	if n == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
}
