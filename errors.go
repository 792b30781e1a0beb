package theinecore

import "github.com/pkg/errors"

// ErrInvalidCapacity is returned by every constructor when size == 0.
//
// There is no corresponding invalid-key error: keys are opaque uint64s
// with no validation surface.
var ErrInvalidCapacity = errors.New("theinecore: capacity must be at least 1")

func invalidCapacity(size uint64) error {
	return errors.Wrapf(ErrInvalidCapacity, "got size=%d", size)
}
