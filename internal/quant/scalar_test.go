package quant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarQuantizerTrainAndRoundTrip(t *testing.T) {
	sq := NewScalarQuantizer()
	require.NoError(t, sq.Configure(DefaultConfig()))
	require.False(t, sq.IsTrained())

	values := []float32{0.0, 0.25, 0.5, 0.75, 1.0}
	require.NoError(t, sq.Train(context.Background(), values))
	require.True(t, sq.IsTrained())

	for _, v := range values {
		code := sq.EncodeOne(v)
		decoded := sq.DecodeOne(code)
		require.InDelta(t, v, decoded, 0.01)
	}
}

func TestScalarQuantizerCompressDecompress(t *testing.T) {
	sq := NewScalarQuantizer()
	require.NoError(t, sq.Configure(&Config{Bits: 8, TrainRatio: 1}))
	require.NoError(t, sq.Train(context.Background(), []float32{1, 2, 3, 4, 5}))

	packed := sq.Compress([]float32{1, 3, 5})
	require.Len(t, packed, 3)

	back := sq.Decompress(packed, 3)
	require.InDeltaSlice(t, []float64{1, 3, 5}, toFloat64Slice(back), 0.05)
}

func TestScalarQuantizerConstantRange(t *testing.T) {
	sq := NewScalarQuantizer()
	require.NoError(t, sq.Configure(DefaultConfig()))
	require.NoError(t, sq.Train(context.Background(), []float32{5, 5, 5}))
	require.Equal(t, byte(0), sq.EncodeOne(5))
}

func toFloat64Slice(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
