package text

import (
	"context"
	"fmt"
	"math"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Encoder implements the interface.
var _ driven.TextEncoder = (*Encoder)(nil)

// Encoder produces one L2-normalised vector per input string.
type Encoder struct {
	tokenizer *Tokenizer
	model     driven.TextModel
}

// NewEncoder wires a tokenizer to a model.
func NewEncoder(tokenizer *Tokenizer, model driven.TextModel) *Encoder {
	return &Encoder{tokenizer: tokenizer, model: model}
}

// Dimension returns the embedding vector size.
func (e *Encoder) Dimension() int {
	return e.model.HiddenSize()
}

// ModelName returns the name of the encoder model.
func (e *Encoder) ModelName() string {
	return e.model.Name()
}

// EncodeBatch tokenises and encodes a batch. An empty batch returns an
// empty result without invoking the model.
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ids := make([][]int64, len(texts))
	mask := make([][]int64, len(texts))
	for i, t := range texts {
		ids[i], mask[i] = e.tokenizer.Encode(t)
	}

	out, err := e.model.Forward(ctx, ids, mask)
	if err != nil {
		return nil, fmt.Errorf("text model forward: %w", err)
	}

	pooled, err := pool(out, mask)
	if err != nil {
		return nil, err
	}
	for i := range pooled {
		normaliseL2(pooled[i])
	}
	return pooled, nil
}

// pool reduces the model output to one vector per sequence. A 3-D
// [batch, seq, hidden] tensor is mean-pooled over non-padding positions;
// a 2-D [batch, hidden] tensor is already pooled. Any other shape is an
// unrecognised model output.
func pool(out driven.Tensor, mask [][]int64) ([][]float32, error) {
	switch out.Rank() {
	case 3:
		return meanPool(out, mask)
	case 2:
		batch, hidden := out.Shape[0], out.Shape[1]
		if len(out.Data) != batch*hidden {
			return nil, fmt.Errorf("%w: data length %d for shape %v",
				domain.ErrUnrecognisedModelOutput, len(out.Data), out.Shape)
		}
		vectors := make([][]float32, batch)
		for i := range vectors {
			vectors[i] = append([]float32(nil), out.Data[i*hidden:(i+1)*hidden]...)
		}
		return vectors, nil
	default:
		return nil, fmt.Errorf("%w: rank %d", domain.ErrUnrecognisedModelOutput, out.Rank())
	}
}

// meanPool computes the attention-mask-weighted mean of hidden states.
func meanPool(out driven.Tensor, mask [][]int64) ([][]float32, error) {
	batch, seq, hidden := out.Shape[0], out.Shape[1], out.Shape[2]
	if len(out.Data) != batch*seq*hidden || batch != len(mask) {
		return nil, fmt.Errorf("%w: data length %d for shape %v",
			domain.ErrUnrecognisedModelOutput, len(out.Data), out.Shape)
	}

	vectors := make([][]float32, batch)
	for b := 0; b < batch; b++ {
		vec := make([]float32, hidden)
		var count float32
		for s := 0; s < seq; s++ {
			if s >= len(mask[b]) || mask[b][s] == 0 {
				continue
			}
			count++
			base := (b*seq + s) * hidden
			for h := 0; h < hidden; h++ {
				vec[h] += out.Data[base+h]
			}
		}
		if count > 0 {
			for h := range vec {
				vec[h] /= count
			}
		}
		vectors[b] = vec
	}
	return vectors, nil
}

// normaliseL2 scales the vector to unit length in place. A zero norm is
// treated as 1 to avoid division by zero.
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
