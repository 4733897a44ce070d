package sindi

import "errors"

// Sentinel errors returned by the public contract (§4.3.1/§4.3.4).
var (
	ErrNotFound       = errors.New("sindi: label not found")
	ErrDuplicateLabel = errors.New("sindi: duplicate live label")
	ErrLabelLive      = errors.New("sindi: target label is live")
	ErrAlreadyBuilt   = errors.New("sindi: Build called on a non-empty index")
	ErrTermOutOfRange = errors.New("sindi: term id exceeds term_id_limit")
	ErrClosed         = errors.New("sindi: index is closed")
	ErrNonEmptyTarget = errors.New("sindi: Deserialize called on a non-empty index")
	ErrOutOfMemory    = errors.New("sindi: memory limit reached")
)
