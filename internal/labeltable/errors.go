package labeltable

import "errors"

// ErrLabelLive is returned by UpdateLabel when the target label is already
// held by a different id, live or tombstoned.
var ErrLabelLive = errors.New("labeltable: new label is already live")
