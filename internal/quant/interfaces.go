// Package quant implements scalar quantization of SINDI term weights (and,
// optionally, HGraph node vectors) to 8-bit fixed point, trading a small
// amount of ranking precision for a 4x memory reduction on the quantized
// values.
package quant

import (
	"context"
	"fmt"
)

// Config configures a Quantizer. Rather than a per-dimension scalar range,
// this index-level config derives a single min/diff pair from the whole
// observed value stream, matching term-weight quantization (one range per
// index, not one per dimension).
type Config struct {
	// Bits is the fixed-point width, in [1,8]: every code is stored in one
	// byte, so wider codes are rejected.
	Bits int `json:"bits"`
	// TrainRatio is the fraction of observed values sampled when deriving
	// the min/max range, trading training cost for range accuracy.
	TrainRatio float64 `json:"train_ratio"`
}

func (c *Config) Validate() error {
	if c.Bits < 1 || c.Bits > 8 {
		return fmt.Errorf("quant: bits must be in [1,8], got %d", c.Bits)
	}
	if c.TrainRatio <= 0 || c.TrainRatio > 1 {
		return fmt.Errorf("quant: train_ratio must be in (0,1], got %f", c.TrainRatio)
	}
	return nil
}

// DefaultConfig is the 8-bit configuration used by SINDI's
// sindi.use_quantization flag.
func DefaultConfig() *Config {
	return &Config{Bits: 8, TrainRatio: 0.1}
}

// Quantizer compresses a stream of float32 values into a packed byte
// representation using a single trained range, and can decode single
// values back without materializing a whole vector.
type Quantizer interface {
	Train(ctx context.Context, values []float32) error
	Configure(cfg *Config) error
	EncodeOne(v float32) byte
	DecodeOne(b byte) float32
	Compress(values []float32) []byte
	Decompress(data []byte, n int) []float32
	IsTrained() bool
	Config() *Config
	MemoryUsage() int64
}

// Factory constructs a Quantizer for a Config.
type Factory interface {
	Create(cfg *Config) (Quantizer, error)
	Name() string
}
