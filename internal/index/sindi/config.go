// Package sindi implements the sparse inverted index: term-major posting
// lists over a fixed term-id space, two-stage (accumulate + reorder)
// inner-product search, and optional 8-bit term-weight quantization,
// expressed with the same functional-options config, internal/util heaps,
// internal/filter, internal/quant, and internal/obs building blocks as the
// rest of this module.
package sindi

import (
	"fmt"

	"github.com/xDarkicex/annsearch/internal/filter"
)

// Config holds the build_params (§6.2) recognized for a SINDI index.
type Config struct {
	Name string

	TermIDLimit   int     // term ids must be in [0, TermIDLimit)
	UseReorder    bool    // enable the two-stage accumulate+rerank search
	DocPruneRatio float64 // fraction of each document's weight mass discarded on insert; 0 disables pruning
	WindowSize    int     // table-scan window hint; informational only in this core

	UseQuantization bool
	QuantBits       int

	MemoryLimit int64
}

type Option func(*Config) error

func WithName(name string) Option {
	return func(c *Config) error { c.Name = name; return nil }
}

func WithTermIDLimit(limit int) Option {
	return func(c *Config) error {
		if limit <= 0 {
			return fmt.Errorf("sindi: term_id_limit must be positive, got %d", limit)
		}
		c.TermIDLimit = limit
		return nil
	}
}

func WithUseReorder(use bool) Option {
	return func(c *Config) error { c.UseReorder = use; return nil }
}

func WithDocPruneRatio(ratio float64) Option {
	return func(c *Config) error {
		if ratio < 0 || ratio >= 1 {
			return fmt.Errorf("sindi: doc_prune_ratio must be in [0,1), got %f", ratio)
		}
		c.DocPruneRatio = ratio
		return nil
	}
}

func WithWindowSize(n int) Option {
	return func(c *Config) error { c.WindowSize = n; return nil }
}

func WithQuantization(bits int) Option {
	return func(c *Config) error {
		if bits < 1 || bits > 8 {
			return fmt.Errorf("sindi: quantization bits must be in [1,8], got %d", bits)
		}
		c.UseQuantization = true
		c.QuantBits = bits
		return nil
	}
}

func WithMemoryLimit(bytes int64) Option {
	return func(c *Config) error { c.MemoryLimit = bytes; return nil }
}

func DefaultConfig() *Config {
	return &Config{
		TermIDLimit:   1_000_000,
		UseReorder:    true,
		DocPruneRatio: 0,
		WindowSize:    60_000,
	}
}

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
	if c.TermIDLimit <= 0 {
		return fmt.Errorf("sindi: term_id_limit must be positive")
	}
	if c.DocPruneRatio < 0 || c.DocPruneRatio >= 1 {
		return fmt.Errorf("sindi: doc_prune_ratio must be in [0,1)")
	}
	return nil
}

// docRetainRatio is the fraction of a document's weight mass kept after
// pruning, the complement of DocPruneRatio (§4.3.2).
func (c *Config) docRetainRatio() float64 {
	return 1.0 - c.DocPruneRatio
}

// SearchParams configures a single KnnSearch/RangeSearch call.
type SearchParams struct {
	QueryPruneRatio float64 // fraction of query terms retained, top by weight; 0 keeps all
	TermPruneRatio  float64 // fraction of each posting list scanned per query term; 0 (or 1) scans all
	NCandidate      int     // stage-2 reorder set size; ignored unless UseReorder
	Filter          filter.Filter
}
