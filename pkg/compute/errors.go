package compute

import (
	"github.com/pkg/errors"
)

var (
	ErrUnsupportedKeyType = errors.New("unsupported group key type")
	ErrTypeMismatch       = errors.New("chunk type mismatch")
	ErrAllocationFailure  = errors.New("state allocation failure")
	ErrNotFinalized       = errors.New("aggregation not finalized")
	ErrFinalized          = errors.New("aggregation already finalized")
	ErrUnknownAggr        = errors.New("unknown aggregate function")
)
