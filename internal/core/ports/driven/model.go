package driven

import "context"

// Tensor is a dense row-major float32 tensor with an explicit shape.
type Tensor struct {
	// Shape holds the dimension sizes, outermost first.
	Shape []int

	// Data holds the values in row-major order.
	Data []float32
}

// Rank returns the number of dimensions.
func (t Tensor) Rank() int {
	return len(t.Shape)
}

// Elems returns the number of elements implied by the shape.
func (t Tensor) Elems() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// TextModel runs a pretrained encoder over a tokenised batch and returns
// per-token hidden states [batch, seq, hidden] or pre-pooled embeddings
// [batch, hidden].
type TextModel interface {
	// Forward runs the batch through the model.
	Forward(ctx context.Context, ids, mask [][]int64) (Tensor, error)

	// HiddenSize returns the model's embedding dimensionality.
	HiddenSize() int

	// Name returns the model identifier.
	Name() string
}

// VisionModel runs a pretrained vision encoder over a preprocessed pixel
// batch [batch, channels, height, width] and returns either pre-pooled
// embeddings [batch, dim] or a feature map [batch, channels, height, width].
type VisionModel interface {
	// Forward runs the batch through the model.
	Forward(ctx context.Context, pixels Tensor) (Tensor, error)

	// OutputSize returns the model's embedding dimensionality.
	OutputSize() int

	// Name returns the model identifier.
	Name() string
}
