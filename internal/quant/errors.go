package quant

import "errors"

// ErrNotTrained is returned when a caller asks a Quantizer to encode or
// decode before Train has established a range.
var ErrNotTrained = errors.New("quant: quantizer not trained")
