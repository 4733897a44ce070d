package hgraph

import "errors"

// Sentinel errors returned by the public contract in §4.2.1/§4.2.6.
var (
	ErrNotFound        = errors.New("hgraph: label not found")
	ErrDuplicateLabel  = errors.New("hgraph: duplicate live label")
	ErrLabelLive       = errors.New("hgraph: target label is live")
	ErrAlreadyBuilt    = errors.New("hgraph: Build called on a non-empty index")
	ErrStatic          = errors.New("hgraph: index built with UseStatic disallows mutation")
	ErrClosed          = errors.New("hgraph: index is closed")
	ErrDimensionMismatch = errors.New("hgraph: vector dimension mismatch")
	ErrNonEmptyTarget  = errors.New("hgraph: Deserialize called on a non-empty index")
	ErrOutOfMemory     = errors.New("hgraph: memory limit reached")
)
