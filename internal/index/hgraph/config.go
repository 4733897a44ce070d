package hgraph

import (
	"fmt"
	"math"

	"github.com/xDarkicex/annsearch/internal/quant"
	"github.com/xDarkicex/annsearch/internal/util"
)

// Config holds the build_params (§6.2) recognized for an HGraph index.
// It is assembled with the functional-options pattern rather than a
// parsed JSON document.
type Config struct {
	Name           string
	Dimension      int
	Metric         util.Metric
	M              int // target degree above layer 0
	EfConstruction int
	MaxElements    int // initial capacity hint; triggers resize when exceeded
	BlockCap       int // block manager cap in bytes, 0 = blockstore.DefaultBlockCap

	UseReversedEdges bool // edges are wired bidirectionally regardless; this only documents the intent
	UseStatic        bool // disallow mutation after Build
	AllowDuplicates  bool // thread duplicate labels onto a chain instead of rejecting

	Seed int64

	Quantization *quant.Config // nil disables vector quantization
	MemoryLimit  int64         // 0 = unlimited
}

// Option mutates a Config during construction, the functional-options
// convention used throughout this module.
type Option func(*Config) error

func WithName(name string) Option {
	return func(c *Config) error { c.Name = name; return nil }
}

func WithDimension(dim int) Option {
	return func(c *Config) error {
		if dim <= 0 {
			return fmt.Errorf("hgraph: dimension must be positive, got %d", dim)
		}
		c.Dimension = dim
		return nil
	}
}

func WithMetric(m util.Metric) Option {
	return func(c *Config) error { c.Metric = m; return nil }
}

func WithMaxDegree(m int) Option {
	return func(c *Config) error {
		if m < 5 || m > 64 {
			return fmt.Errorf("hgraph: M must be in [5,64], got %d", m)
		}
		c.M = m
		return nil
	}
}

func WithEfConstruction(ef int) Option {
	return func(c *Config) error {
		if ef <= 0 || ef > 1000 {
			return fmt.Errorf("hgraph: ef_construction must be in (0,1000], got %d", ef)
		}
		c.EfConstruction = ef
		return nil
	}
}

func WithMaxElements(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return fmt.Errorf("hgraph: max_elements must be non-negative")
		}
		c.MaxElements = n
		return nil
	}
}

func WithUseStatic(static bool) Option {
	return func(c *Config) error { c.UseStatic = static; return nil }
}

func WithAllowDuplicates(allow bool) Option {
	return func(c *Config) error { c.AllowDuplicates = allow; return nil }
}

func WithQuantization(cfg *quant.Config) Option {
	return func(c *Config) error { c.Quantization = cfg; return nil }
}

func WithMemoryLimit(bytes int64) Option {
	return func(c *Config) error { c.MemoryLimit = bytes; return nil }
}

func WithSeed(seed int64) Option {
	return func(c *Config) error { c.Seed = seed; return nil }
}

// DefaultConfig returns sane defaults for every Config field.
func DefaultConfig() *Config {
	return &Config{
		Dimension:      128,
		Metric:         util.L2Distance,
		M:              16,
		EfConstruction: 200,
		MaxElements:    1000,
		BlockCap:       0,
	}
}

// NewConfig applies opts over DefaultConfig and validates the result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("hgraph: dimension must be positive")
	}
	if c.M < 5 || c.M > 64 {
		return fmt.Errorf("hgraph: M must be in [5,64]")
	}
	if c.EfConstruction < c.M || c.EfConstruction > 1000 {
		return fmt.Errorf("hgraph: ef_construction must be >= M and <= 1000")
	}
	return nil
}

// maxM0 is level 0's neighbor cap; levels >= 1 use M directly (§3).
func (c *Config) maxM0() int { return c.M * 2 }

// levelFactor returns mL = 1/ln(M), the geometric-distribution constant
// §3's random-level draw uses.
func (c *Config) levelFactor() float64 { return 1.0 / math.Log(float64(c.M)) }
