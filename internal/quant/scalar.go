package quant

import (
	"context"
	"fmt"
	"sync"
)

// ScalarQuantizer maps float32 values into fixed-point codes using one
// min/diff range for the whole index, per the §4.3.1 term-weight encoding
// `u8(clamp((v-min)/diff*255, 0, 255))`. Bit widths other than 8 use the
// same formula generalized to maxLevel = 2^bits-1.
type ScalarQuantizer struct {
	mu sync.RWMutex

	cfg *Config

	trained  bool
	minVal   float32
	diff     float32
	maxLevel uint32
}

func NewScalarQuantizer() *ScalarQuantizer {
	return &ScalarQuantizer{}
}

func (sq *ScalarQuantizer) Configure(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("quant: config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	sq.mu.Lock()
	defer sq.mu.Unlock()
	sq.cfg = cfg
	sq.maxLevel = (1 << uint(cfg.Bits)) - 1
	return nil
}

// Train computes the global min/diff range from a sample of values.
func (sq *ScalarQuantizer) Train(ctx context.Context, values []float32) error {
	if len(values) == 0 {
		return fmt.Errorf("quant: no training values provided")
	}
	sq.mu.Lock()
	defer sq.mu.Unlock()
	if sq.cfg == nil {
		return fmt.Errorf("quant: quantizer not configured")
	}

	step := int(1.0 / sq.cfg.TrainRatio)
	if step < 1 {
		step = 1
	}

	minVal, maxVal := values[0], values[0]
	for i := 0; i < len(values); i += step {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		v := values[i]
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	sq.minVal = minVal
	sq.diff = maxVal - minVal
	if sq.diff == 0 {
		sq.diff = 1
	}
	sq.trained = true
	return nil
}

// EncodeOne quantizes a single value against the trained range.
func (sq *ScalarQuantizer) EncodeOne(v float32) byte {
	sq.mu.RLock()
	defer sq.mu.RUnlock()
	normalized := (v - sq.minVal) / sq.diff
	if normalized < 0 {
		normalized = 0
	} else if normalized > 1 {
		normalized = 1
	}
	return byte(uint32(normalized*float32(sq.maxLevel) + 0.5))
}

// DecodeOne dequantizes a single code back to an approximate float32.
func (sq *ScalarQuantizer) DecodeOne(b byte) float32 {
	sq.mu.RLock()
	defer sq.mu.RUnlock()
	return sq.minVal + float32(b)/float32(sq.maxLevel)*sq.diff
}

// Compress encodes every value in values to one byte each.
func (sq *ScalarQuantizer) Compress(values []float32) []byte {
	out := make([]byte, len(values))
	for i, v := range values {
		out[i] = sq.EncodeOne(v)
	}
	return out
}

// Decompress reverses Compress for n values.
func (sq *ScalarQuantizer) Decompress(data []byte, n int) []float32 {
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = sq.DecodeOne(data[i])
	}
	return out
}

func (sq *ScalarQuantizer) IsTrained() bool {
	sq.mu.RLock()
	defer sq.mu.RUnlock()
	return sq.trained
}

func (sq *ScalarQuantizer) Config() *Config {
	sq.mu.RLock()
	defer sq.mu.RUnlock()
	if sq.cfg == nil {
		return nil
	}
	cp := *sq.cfg
	return &cp
}

func (sq *ScalarQuantizer) MemoryUsage() int64 {
	return int64(3 * 4) // minVal, diff, maxLevel
}

// ScalarFactory creates ScalarQuantizer instances; the only Factory
// registered today since HGraph's optional vector quantization and SINDI's
// term-weight quantization both map onto the same scalar representation.
type ScalarFactory struct{}

func NewScalarFactory() *ScalarFactory { return &ScalarFactory{} }

func (f *ScalarFactory) Create(cfg *Config) (Quantizer, error) {
	sq := NewScalarQuantizer()
	if err := sq.Configure(cfg); err != nil {
		return nil, err
	}
	return sq, nil
}

func (f *ScalarFactory) Name() string { return "scalar" }
