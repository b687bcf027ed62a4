package driven

import "context"

// TextEncoder turns raw text into fixed-dimension L2-normalised vectors.
type TextEncoder interface {
	// EncodeBatch returns one normalised vector per input string. An empty
	// batch returns an empty result without invoking the model.
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector size.
	Dimension() int

	// ModelName returns the name of the encoder model.
	ModelName() string
}

// Image is a pre-decoded RGBA pixel buffer at fixed width/height.
type Image struct {
	// Pixels is the interleaved RGBA byte buffer.
	Pixels []byte

	// Width is the image width in pixels.
	Width int

	// Height is the image height in pixels.
	Height int
}

// ImageEncoder turns pre-decoded pixel buffers into normalised vectors.
type ImageEncoder interface {
	// EncodeBatch returns one normalised vector per image.
	EncodeBatch(ctx context.Context, images []Image) ([][]float32, error)

	// Dimension returns the embedding vector size.
	Dimension() int

	// ModelName returns the name of the encoder model.
	ModelName() string
}
