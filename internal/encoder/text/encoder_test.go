package text

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

// stubModel returns a canned tensor and counts invocations.
type stubModel struct {
	out    driven.Tensor
	err    error
	hidden int
	calls  int
}

func (m *stubModel) Forward(_ context.Context, ids, mask [][]int64) (driven.Tensor, error) {
	m.calls++
	return m.out, m.err
}

func (m *stubModel) HiddenSize() int { return m.hidden }
func (m *stubModel) Name() string    { return "stub-encoder" }

func l2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func newTestEncoder(t *testing.T, model driven.TextModel) *Encoder {
	t.Helper()
	tok, err := NewTokenizer(fullVocab(t, "hi"), 4)
	require.NoError(t, err)
	return NewEncoder(tok, model)
}

func TestEncodeBatch_Empty(t *testing.T) {
	model := &stubModel{hidden: 2}
	enc := newTestEncoder(t, model)

	out, err := enc.EncodeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, model.calls, "empty batch must not invoke the model")
}

func TestEncodeBatch_MeanPooling(t *testing.T) {
	// Batch 1, seq 4, hidden 2; "hi" tokenises to [CLS] hi [SEP] [PAD],
	// so the mask covers the first three positions only.
	model := &stubModel{
		hidden: 2,
		out: driven.Tensor{
			Shape: []int{1, 4, 2},
			Data: []float32{
				2, 0, // [CLS]
				4, 0, // hi
				6, 0, // [SEP]
				100, 100, // [PAD], must be ignored
			},
		},
	}
	enc := newTestEncoder(t, model)

	out, err := enc.EncodeBatch(context.Background(), []string{"hi"})
	require.NoError(t, err)
	require.Len(t, out, 1)

	// Mean over positions 0-2 is (4, 0); normalised to (1, 0).
	assert.InDelta(t, 1.0, float64(out[0][0]), 1e-6)
	assert.InDelta(t, 0.0, float64(out[0][1]), 1e-6)
	assert.InDelta(t, 1.0, l2Norm(out[0]), 1e-6)
}

func TestEncodeBatch_PrePooledOutput(t *testing.T) {
	model := &stubModel{
		hidden: 3,
		out: driven.Tensor{
			Shape: []int{1, 3},
			Data:  []float32{3, 0, 4},
		},
	}
	enc := newTestEncoder(t, model)

	out, err := enc.EncodeBatch(context.Background(), []string{"hi"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.6, float64(out[0][0]), 1e-6)
	assert.InDelta(t, 0.8, float64(out[0][2]), 1e-6)
	assert.InDelta(t, 1.0, l2Norm(out[0]), 1e-6)
}

func TestEncodeBatch_UnrecognisedRank(t *testing.T) {
	model := &stubModel{
		hidden: 2,
		out:    driven.Tensor{Shape: []int{1, 2, 2, 2}, Data: make([]float32, 8)},
	}
	enc := newTestEncoder(t, model)

	_, err := enc.EncodeBatch(context.Background(), []string{"hi"})
	assert.ErrorIs(t, err, domain.ErrUnrecognisedModelOutput)
}

func TestEncodeBatch_ShapeDataMismatch(t *testing.T) {
	model := &stubModel{
		hidden: 2,
		out:    driven.Tensor{Shape: []int{1, 4, 2}, Data: []float32{1, 2}},
	}
	enc := newTestEncoder(t, model)

	_, err := enc.EncodeBatch(context.Background(), []string{"hi"})
	assert.ErrorIs(t, err, domain.ErrUnrecognisedModelOutput)
}

func TestEncodeBatch_ZeroVectorNoNaN(t *testing.T) {
	model := &stubModel{
		hidden: 2,
		out:    driven.Tensor{Shape: []int{1, 2}, Data: []float32{0, 0}},
	}
	enc := newTestEncoder(t, model)

	out, err := enc.EncodeBatch(context.Background(), []string{"hi"})
	require.NoError(t, err)
	for _, x := range out[0] {
		assert.False(t, math.IsNaN(float64(x)))
		assert.Zero(t, x)
	}
}

func TestEncoder_Metadata(t *testing.T) {
	model := &stubModel{hidden: 2}
	enc := newTestEncoder(t, model)

	assert.Equal(t, 2, enc.Dimension())
	assert.Equal(t, "stub-encoder", enc.ModelName())
}
