package image

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

type stubModel struct {
	out   driven.Tensor
	err   error
	dim   int
	got   driven.Tensor
	calls int
}

func (m *stubModel) Forward(_ context.Context, pixels driven.Tensor) (driven.Tensor, error) {
	m.calls++
	m.got = pixels
	return m.out, m.err
}

func (m *stubModel) OutputSize() int { return m.dim }
func (m *stubModel) Name() string    { return "stub-vision" }

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// solidRGBA builds a w*h buffer of one colour.
func solidRGBA(w, h int, r, g, b, a byte) []byte {
	buf := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		buf[i*4], buf[i*4+1], buf[i*4+2], buf[i*4+3] = r, g, b, a
	}
	return buf
}

func TestPreprocess_PlanarScaled(t *testing.T) {
	planar, err := Preprocess(solidRGBA(2, 1, 255, 0, 51, 255), 2, 1)
	require.NoError(t, err)
	require.Len(t, planar, 6)

	// R plane, then G plane, then B plane; alpha dropped.
	assert.InDelta(t, 1.0, float64(planar[0]), 1e-6)
	assert.InDelta(t, 1.0, float64(planar[1]), 1e-6)
	assert.InDelta(t, 0.0, float64(planar[2]), 1e-6)
	assert.InDelta(t, 0.2, float64(planar[4]), 1e-6)
}

func TestPreprocess_BadLength(t *testing.T) {
	_, err := Preprocess([]byte{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEncodeBatch_Empty(t *testing.T) {
	model := &stubModel{dim: 2}
	enc := NewEncoder(model, 2, 2)

	out, err := enc.EncodeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, model.calls)
}

func TestEncodeBatch_PrePooled(t *testing.T) {
	model := &stubModel{
		dim: 2,
		out: driven.Tensor{Shape: []int{1, 2}, Data: []float32{3, 4}},
	}
	enc := NewEncoder(model, 2, 2)

	out, err := enc.EncodeBatch(context.Background(), []driven.Image{
		{Pixels: solidRGBA(2, 2, 10, 20, 30, 255), Width: 2, Height: 2},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.6, float64(out[0][0]), 1e-6)
	assert.InDelta(t, 0.8, float64(out[0][1]), 1e-6)

	// Input tensor is [batch, channels, height, width].
	assert.Equal(t, []int{1, 3, 2, 2}, model.got.Shape)
}

func TestEncodeBatch_FeatureMapGAP(t *testing.T) {
	// 1 image, 2 channels, 2x2 spatial: channel means are 2.5 and 10.
	model := &stubModel{
		dim: 2,
		out: driven.Tensor{
			Shape: []int{1, 2, 2, 2},
			Data:  []float32{1, 2, 3, 4, 10, 10, 10, 10},
		},
	}
	enc := NewEncoder(model, 2, 2)

	out, err := enc.EncodeBatch(context.Background(), []driven.Image{
		{Pixels: solidRGBA(2, 2, 0, 0, 0, 0), Width: 2, Height: 2},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	expected := math.Sqrt(2.5*2.5 + 10*10)
	assert.InDelta(t, 2.5/expected, float64(out[0][0]), 1e-6)
	assert.InDelta(t, 10/expected, float64(out[0][1]), 1e-6)
	assert.InDelta(t, 1.0, norm(out[0]), 1e-6)
}

func TestEncodeBatch_UnsupportedRank(t *testing.T) {
	model := &stubModel{
		dim: 2,
		out: driven.Tensor{Shape: []int{1, 2, 2}, Data: make([]float32, 4)},
	}
	enc := NewEncoder(model, 2, 2)

	_, err := enc.EncodeBatch(context.Background(), []driven.Image{
		{Pixels: solidRGBA(2, 2, 0, 0, 0, 0), Width: 2, Height: 2},
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedVisionOutput)
}

func TestEncodeBatch_SizeMismatch(t *testing.T) {
	model := &stubModel{dim: 2}
	enc := NewEncoder(model, 4, 4)

	_, err := enc.EncodeBatch(context.Background(), []driven.Image{
		{Pixels: solidRGBA(2, 2, 0, 0, 0, 0), Width: 2, Height: 2},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTopKLabels(t *testing.T) {
	logits := []float32{0.1, 2.5, 1.0}
	labels := []string{"cat", "dog", "bird"}

	top := TopKLabels(logits, labels, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "dog", top[0].Name)
	assert.Equal(t, "bird", top[1].Name)

	assert.Nil(t, TopKLabels(logits, labels, 0))
	assert.Len(t, TopKLabels(logits, labels, 10), 3)
}
